package harness

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gorgonia.org/tensor"
)

// Image is one input array, named after its file.
type Image struct {
	ID   string
	Data *tensor.Dense
}

// LoadImages reads every .npy file directly inside dir, in name order.
func LoadImages(dir string) ([]Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image dir: %w", err)
	}

	var images []Image

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".npy" {
			continue
		}

		path := filepath.Join(dir, e.Name())

		arr, err := loadNpy(path)
		if err != nil {
			return nil, err
		}

		images = append(images, Image{
			ID:   strings.TrimSuffix(e.Name(), ".npy"),
			Data: arr,
		})
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("no .npy files in %s", dir)
	}

	return images, nil
}

// wideInt matches the 64-bit integer descriptors of an .npy header.
// ReadNpy maps them to the platform int types and then cannot decode
// the data, so they are read as float64 of the same width and the bits
// reinterpreted.
var wideInt = regexp.MustCompile(`'descr':\s*'[<|]([iu])8'`)

func loadNpy(path string) (*tensor.Dense, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	var kind byte

	if len(raw) > 10 {
		end := min(len(raw), 10+int(binary.LittleEndian.Uint16(raw[8:10])))
		if m := wideInt.FindSubmatchIndex(raw[:end]); m != nil {
			kind = raw[m[2]]
			raw[m[2]] = 'f'
		}
	}

	arr := new(tensor.Dense)
	if err := arr.ReadNpy(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if kind != 0 {
		return widen(arr, kind), nil
	}

	return arr, nil
}

// widen turns a float64 array holding raw 64-bit integers back into an
// int64 ('i') or uint64 ('u') array.
func widen(arr *tensor.Dense, kind byte) *tensor.Dense {
	src := arr.Float64s()
	shape := arr.Shape().Clone()

	if kind == 'u' {
		pix := make([]uint64, len(src))
		for i, v := range src {
			pix[i] = math.Float64bits(v)
		}

		return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(pix))
	}

	pix := make([]int64, len(src))
	for i, v := range src {
		pix[i] = int64(math.Float64bits(v))
	}

	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(pix))
}
