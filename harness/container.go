package harness

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/weiihann/h5bench/catalog"
	"gonum.org/v1/hdf5"
	"gorgonia.org/tensor"
)

// datasetName names the dataset holding repetition rep of image id.
func datasetName(id string, rep int) string {
	return fmt.Sprintf("%s_%d", id, rep)
}

func nativeType(dt tensor.Dtype) (*hdf5.Datatype, error) {
	switch dt {
	case tensor.Uint8:
		return hdf5.T_NATIVE_UINT8, nil
	case tensor.Uint16:
		return hdf5.T_NATIVE_UINT16, nil
	case tensor.Uint32:
		return hdf5.T_NATIVE_UINT32, nil
	case tensor.Uint64:
		return hdf5.T_NATIVE_UINT64, nil
	case tensor.Int8:
		return hdf5.T_NATIVE_INT8, nil
	case tensor.Int16:
		return hdf5.T_NATIVE_INT16, nil
	case tensor.Int32:
		return hdf5.T_NATIVE_INT32, nil
	case tensor.Int64:
		return hdf5.T_NATIVE_INT64, nil
	case tensor.Int:
		if strconv.IntSize == 64 {
			return hdf5.T_NATIVE_INT64, nil
		}
		return hdf5.T_NATIVE_INT32, nil
	case tensor.Uint:
		if strconv.IntSize == 64 {
			return hdf5.T_NATIVE_UINT64, nil
		}
		return hdf5.T_NATIVE_UINT32, nil
	case tensor.Float32:
		return hdf5.T_NATIVE_FLOAT, nil
	case tensor.Float64:
		return hdf5.T_NATIVE_DOUBLE, nil
	default:
		return nil, fmt.Errorf("unsupported element type %s", dt)
	}
}

func extent(shape tensor.Shape) []uint {
	dims := make([]uint, len(shape))
	for i, d := range shape {
		dims[i] = uint(d)
	}

	return dims
}

// datasetPlan is everything needed to create the datasets of one image.
type datasetPlan struct {
	dtype *hdf5.Datatype
	space *hdf5.Dataspace
	dcpl  *hdf5.PropList
	// data points at the image's backing slice, as hdf5 expects.
	data interface{}
}

func newDatasetPlan(img Image, filter catalog.Filter) (*datasetPlan, error) {
	dtype, err := nativeType(img.Data.Dtype())
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", img.ID, err)
	}

	dims := extent(img.Data.Shape())

	space, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return nil, fmt.Errorf("image %s: dataspace: %w", img.ID, err)
	}

	plan := &datasetPlan{
		dtype: dtype,
		space: space,
		data:  slicePointer(img.Data.Data()),
	}

	if !filter.Compressed() {
		return plan, nil
	}

	plan.dcpl, err = hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		plan.close()

		return nil, fmt.Errorf("dataset creation properties: %w", err)
	}

	// Filters need a chunked layout.
	chunk := guessChunk(dims, int(img.Data.Dtype().Size()))
	if err := plan.dcpl.SetChunk(chunk); err != nil {
		plan.close()

		return nil, fmt.Errorf("image %s: set chunk: %w", img.ID, err)
	}

	if err := setFilter(plan.dcpl, filter.Code, filter.Params); err != nil {
		plan.close()

		return nil, err
	}

	return plan, nil
}

func (p *datasetPlan) close() {
	if p.dcpl != nil {
		p.dcpl.Close()
	}
	p.space.Close()
}

func (p *datasetPlan) create(f *hdf5.File, name string) error {
	var (
		ds  *hdf5.Dataset
		err error
	)

	if p.dcpl != nil {
		ds, err = f.CreateDatasetWith(name, p.dtype, p.space, p.dcpl)
	} else {
		ds, err = f.CreateDataset(name, p.dtype, p.space)
	}

	if err != nil {
		return fmt.Errorf("create dataset %s: %w", name, err)
	}

	if err := ds.Write(p.data); err != nil {
		ds.Close()

		return fmt.Errorf("write dataset %s: %w", name, err)
	}

	if err := ds.Close(); err != nil {
		return fmt.Errorf("close dataset %s: %w", name, err)
	}

	return nil
}

// writeSweep creates path and stores every image repeat times under the
// given filter.
func writeSweep(path string, images []Image, repeat int, filter catalog.Filter) error {
	plans := make([]*datasetPlan, 0, len(images))
	defer func() {
		for _, p := range plans {
			p.close()
		}
	}()

	for _, img := range images {
		plan, err := newDatasetPlan(img, filter)
		if err != nil {
			return err
		}
		plans = append(plans, plan)
	}

	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	for rep := 0; rep < repeat; rep++ {
		for i, img := range images {
			if err := plans[i].create(f, datasetName(img.ID, rep)); err != nil {
				f.Close()

				return err
			}
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	return nil
}

// readDataset reads the whole of dataset name in path and returns its
// dimensions.
func readDataset(path, name string, img Image) ([]uint, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ds, err := f.OpenDataset(name)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", name, err)
	}
	defer ds.Close()

	space := ds.Space()
	defer space.Close()

	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, fmt.Errorf("dataset %s extent: %w", name, err)
	}

	n := 1
	for _, d := range dims {
		n *= int(d)
	}

	elem := reflect.TypeOf(img.Data.Data()).Elem()
	buf := reflect.New(reflect.SliceOf(elem))
	buf.Elem().Set(reflect.MakeSlice(reflect.SliceOf(elem), n, n))

	if err := ds.Read(buf.Interface()); err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", name, err)
	}

	return dims, nil
}

// listDatasets returns the names of the top-level objects in path.
func listDatasets(path string) ([]string, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	n, err := f.NumObjects()
	if err != nil {
		return nil, fmt.Errorf("count objects: %w", err)
	}

	names := make([]string, 0, n)

	for i := uint(0); i < n; i++ {
		name, err := f.ObjectNameByIndex(i)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		names = append(names, name)
	}

	return names, nil
}

// slicePointer returns a pointer to a copy of the slice header in v.
func slicePointer(v interface{}) interface{} {
	ptr := reflect.New(reflect.TypeOf(v))
	ptr.Elem().Set(reflect.ValueOf(v))

	return ptr.Interface()
}
