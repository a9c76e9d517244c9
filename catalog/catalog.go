// Package catalog enumerates the HDF5 compression filter configurations
// benchmarked by h5bench.
package catalog

import "strconv"

// FilterID is a registered HDF5 filter identifier.
// See https://portal.hdfgroup.org/display/support/Registered+Filters.
type FilterID int

const (
	// NoFilter stores datasets uncompressed (H5Z_FILTER_NONE).
	NoFilter FilterID = 0
	// Deflate is the gzip filter built into libhdf5.
	Deflate FilterID = 1
	LZF     FilterID = 32000
	Blosc   FilterID = 32001
	JPEGLS  FilterID = 32012
	Zstd    FilterID = 32015
)

func (id FilterID) String() string {
	switch id {
	case NoFilter:
		return "none"
	case Deflate:
		return "deflate"
	case LZF:
		return "lzf"
	case Blosc:
		return "blosc"
	case JPEGLS:
		return "jpeg-ls"
	case Zstd:
		return "zstd"
	default:
		return strconv.Itoa(int(id))
	}
}

// BloscCompressor selects the codec Blosc runs internally.
// Values follow blosc.h.
type BloscCompressor int

const (
	BloscLZ   BloscCompressor = 0
	LZ4       BloscCompressor = 1
	LZ4HC     BloscCompressor = 2
	Snappy    BloscCompressor = 3
	Zlib      BloscCompressor = 4
	BloscZstd BloscCompressor = 5
)

func (c BloscCompressor) String() string {
	switch c {
	case BloscLZ:
		return "blosclz"
	case LZ4:
		return "lz4"
	case LZ4HC:
		return "lz4hc"
	case Snappy:
		return "snappy"
	case Zlib:
		return "zlib"
	case BloscZstd:
		return "zstd"
	default:
		return strconv.Itoa(int(c))
	}
}

// Filter is one configuration under test. Params is only meaningful
// together with Code and is nil when Code is NoFilter.
type Filter struct {
	Label  string   `json:"label"`
	Code   FilterID `json:"filter"`
	Params []uint   `json:"params,omitempty"`
}

// Compressed reports whether the configuration applies any filter.
func (f Filter) Compressed() bool {
	return f.Code != NoFilter
}

// Default returns the built-in catalog in sweep order. Codec availability
// is not checked here; an unavailable codec fails when the runner uses it.
func Default() []Filter {
	return []Filter{
		{Label: "none", Code: NoFilter},
		{Label: "lzf", Code: LZF},
		{Label: "zstd", Code: Zstd},
		{Label: "jpeg-ls", Code: JPEGLS},
		{Label: "blosc-lz4", Code: Blosc, Params: BloscOptions(WithCompressor(LZ4))},
		{Label: "blosc-zstd", Code: Blosc, Params: BloscOptions(WithCompressor(BloscZstd))},
	}
}
