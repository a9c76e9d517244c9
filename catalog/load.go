package catalog

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// file is the on-disk layout of a YAML catalog.
type file struct {
	Filters []entry `yaml:"filters" validate:"required,min=1,unique=Label,dive"`
}

type entry struct {
	Label  string      `yaml:"label" validate:"required"`
	Filter FilterID    `yaml:"filter"`
	Params []uint      `yaml:"params" validate:"dive,max=4294967295"`
	Blosc  *bloscEntry `yaml:"blosc"`
}

type bloscEntry struct {
	Level      *int            `yaml:"level" validate:"omitempty,min=0,max=9"`
	Shuffle    bool            `yaml:"shuffle"`
	Compressor BloscCompressor `yaml:"compressor"`
}

// Load reads a YAML catalog from path. See Parse.
func Load(path string) ([]Filter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()

	filters, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	return filters, nil
}

// Parse decodes a YAML catalog of the form
//
//	filters:
//	  - label: gzip-6
//	    filter: deflate
//	    params: [6]
//	  - label: blosc-lz4hc
//	    filter: blosc
//	    blosc: {level: 9, shuffle: true, compressor: lz4hc}
//
// Filters may be given by name or by raw registered ID. Only the document
// structure is validated; whether libhdf5 can load a filter is left to the
// runner.
func Parse(r io.Reader) ([]Filter, error) {
	var doc file

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	filters := make([]Filter, 0, len(doc.Filters))

	for _, e := range doc.Filters {
		if e.Filter == NoFilter && (len(e.Params) > 0 || e.Blosc != nil) {
			return nil, fmt.Errorf("%s: parameters given without a filter", e.Label)
		}

		params := e.Params
		if e.Blosc != nil {
			if e.Filter != Blosc {
				return nil, fmt.Errorf("%s: blosc options on %s filter", e.Label, e.Filter)
			}
			if len(params) > 0 {
				return nil, fmt.Errorf("%s: both params and blosc options given", e.Label)
			}

			opts := []BloscOption{
				WithShuffle(e.Blosc.Shuffle),
				WithCompressor(e.Blosc.Compressor),
			}
			if e.Blosc.Level != nil {
				opts = append(opts, WithLevel(*e.Blosc.Level))
			}

			params = BloscOptions(opts...)
		}

		filters = append(filters, Filter{
			Label:  e.Label,
			Code:   e.Filter,
			Params: params,
		})
	}

	return filters, nil
}

// UnmarshalYAML accepts a filter name or a registered filter number.
func (id *FilterID) UnmarshalYAML(value *yaml.Node) error {
	v, err := parseEnum(value.Value, []FilterID{NoFilter, Deflate, LZF, Blosc, JPEGLS, Zstd})
	if err != nil {
		return fmt.Errorf("line %d: filter: %w", value.Line, err)
	}

	*id = v

	return nil
}

// UnmarshalYAML accepts a compressor name or its numeric code.
func (c *BloscCompressor) UnmarshalYAML(value *yaml.Node) error {
	v, err := parseEnum(value.Value, []BloscCompressor{BloscLZ, LZ4, LZ4HC, Snappy, Zlib, BloscZstd})
	if err != nil {
		return fmt.Errorf("line %d: compressor: %w", value.Line, err)
	}

	*c = v

	return nil
}

func parseEnum[T interface {
	~int
	fmt.Stringer
}](s string, known []T) (T, error) {
	s = strings.TrimSpace(s)

	for _, k := range known {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("unknown value %q", s)
	}

	return T(n), nil
}
