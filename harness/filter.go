package harness

// #cgo LDFLAGS: -lhdf5
// #cgo darwin CFLAGS: -I/usr/local/include
// #cgo darwin LDFLAGS: -L/usr/local/lib
// #include <stdlib.h>
// #include <hdf5.h>
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/weiihann/h5bench/catalog"
	"gonum.org/v1/hdf5"
)

// ErrFilterUnavailable is returned when libhdf5 cannot load the codec a
// filter configuration asks for.
var ErrFilterUnavailable = errors.New("filter not available")

// FilterAvailable reports whether libhdf5 can apply code, loading the
// filter plugin if needed.
func FilterAvailable(code catalog.FilterID) bool {
	if code == catalog.NoFilter {
		return true
	}

	return C.H5Zfilter_avail(C.H5Z_filter_t(code)) > 0
}

// setFilter appends code to the pipeline of dcpl. The filter is optional
// in the HDF5 sense: chunks it cannot compress are stored raw.
func setFilter(dcpl *hdf5.PropList, code catalog.FilterID, params []uint) error {
	if !FilterAvailable(code) {
		return fmt.Errorf("%w: %s (id %d)", ErrFilterUnavailable, code, int(code))
	}

	cd := make([]C.uint, len(params))
	for i, p := range params {
		cd[i] = C.uint(p)
	}

	var values *C.uint
	if len(cd) > 0 {
		values = &cd[0]
	}

	rc := C.H5Pset_filter(
		C.hid_t(dcpl.ID()),
		C.H5Z_filter_t(code),
		C.H5Z_FLAG_OPTIONAL,
		C.size_t(len(cd)),
		values,
	)
	if rc < 0 {
		return fmt.Errorf("set filter %s with params %v: H5Pset_filter failed", code, params)
	}

	return nil
}

// RegisterPluginDir puts dir at the front of the HDF5 plugin search path.
func RegisterPluginDir(dir string) error {
	cdir := C.CString(dir)
	defer C.free(unsafe.Pointer(cdir))

	if C.H5PLprepend(cdir) < 0 {
		return fmt.Errorf("register plugin dir %s: H5PLprepend failed", dir)
	}

	return nil
}
