package harness

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiihann/h5bench/catalog"
	"gorgonia.org/tensor"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeNpy(t *testing.T, dir, id string, arr *tensor.Dense) {
	t.Helper()

	f, err := os.Create(filepath.Join(dir, id+".npy"))
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, arr.WriteNpy(f))
}

func gradient(h, w int) *tensor.Dense {
	pix := make([]uint8, h*w)
	for i := range pix {
		pix[i] = uint8(i % 251)
	}

	return tensor.New(tensor.WithShape(h, w), tensor.WithBacking(pix))
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch directory left behind")
}

func TestRunUncompressed(t *testing.T) {
	imgDir := t.TempDir()
	scratch := t.TempDir()
	writeNpy(t, imgDir, "sample", gradient(64, 64))

	var datasets []string

	runner := NewRunner(discardLogger())
	runner.written = func(path string) {
		names, err := listDatasets(path)
		require.NoError(t, err)
		datasets = names
	}

	result, err := runner.Run(context.Background(), RunConfig{
		Filter:     catalog.Filter{Label: "none"},
		ImageDir:   imgDir,
		Repeat:     2,
		ScratchDir: scratch,
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"sample_0", "sample_1"}, datasets)
	assert.Equal(t, 2, result.Datasets)
	assert.Equal(t, 1, result.Images)
	assert.Equal(t, 2, result.Repeat)
	assert.Equal(t, "none", result.Label)
	assert.GreaterOrEqual(t, int64(result.WriteTime), int64(0))
	assert.GreaterOrEqual(t, int64(result.ReadTime), int64(0))
	assert.Greater(t, result.FileSizeBytes, uint64(64*64*2))

	assertEmptyDir(t, scratch)
}

func TestRunMultipleImages(t *testing.T) {
	imgDir := t.TempDir()
	writeNpy(t, imgDir, "b", gradient(16, 8))
	writeNpy(t, imgDir, "a", tensor.New(
		tensor.WithShape(4, 4, 3),
		tensor.WithBacking(make([]uint16, 48)),
	))

	var datasets []string

	runner := NewRunner(discardLogger())
	runner.written = func(path string) {
		names, err := listDatasets(path)
		require.NoError(t, err)
		datasets = names
	}

	result, err := runner.Run(context.Background(), RunConfig{
		ImageDir:    imgDir,
		WriteTrials: 2,
		ReadTrials:  2,
		ScratchDir:  t.TempDir(),
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultRepeat, result.Repeat)
	assert.Equal(t, 2*DefaultRepeat, result.Datasets)
	assert.ElementsMatch(t,
		[]string{"a_0", "a_1", "a_2", "b_0", "b_1", "b_2"},
		datasets,
	)
}

func TestRunDeterministicSize(t *testing.T) {
	imgDir := t.TempDir()
	writeNpy(t, imgDir, "sample", gradient(32, 32))

	filters := []catalog.Filter{{Label: "none"}}
	if FilterAvailable(catalog.Deflate) {
		filters = append(filters, catalog.Filter{
			Label: "gzip", Code: catalog.Deflate, Params: []uint{6},
		})
	}

	runner := NewRunner(discardLogger())

	for _, f := range filters {
		cfg := RunConfig{
			Filter:      f,
			ImageDir:    imgDir,
			WriteTrials: 1,
			ReadTrials:  1,
			ScratchDir:  t.TempDir(),
		}

		first, err := runner.Run(context.Background(), cfg)
		require.NoError(t, err)
		second, err := runner.Run(context.Background(), cfg)
		require.NoError(t, err)

		assert.InEpsilon(t, first.FileSizeBytes, second.FileSizeBytes, 0.01, f.Label)
	}
}

func TestRunDeflateShrinksFlatImage(t *testing.T) {
	if !FilterAvailable(catalog.Deflate) {
		t.Skip("libhdf5 built without zlib")
	}

	imgDir := t.TempDir()
	writeNpy(t, imgDir, "flat", tensor.New(
		tensor.WithShape(128, 128),
		tensor.WithBacking(make([]uint8, 128*128)),
	))

	runner := NewRunner(discardLogger())
	cfg := RunConfig{ImageDir: imgDir, WriteTrials: 1, ReadTrials: 1}

	raw, err := runner.Run(context.Background(), cfg)
	require.NoError(t, err)

	cfg.Filter = catalog.Filter{Label: "gzip", Code: catalog.Deflate, Params: []uint{9}}
	packed, err := runner.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Less(t, packed.FileSizeBytes, raw.FileSizeBytes)
}

func TestRunUnavailableFilter(t *testing.T) {
	imgDir := t.TempDir()
	scratch := t.TempDir()
	writeNpy(t, imgDir, "sample", gradient(8, 8))

	runner := NewRunner(discardLogger())

	_, err := runner.Run(context.Background(), RunConfig{
		Filter:     catalog.Filter{Label: "bogus", Code: catalog.FilterID(31999)},
		ImageDir:   imgDir,
		ScratchDir: scratch,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFilterUnavailable)

	assertEmptyDir(t, scratch)
}

func TestRunEmptyImageDir(t *testing.T) {
	scratch := t.TempDir()
	runner := NewRunner(discardLogger())

	_, err := runner.Run(context.Background(), RunConfig{
		ImageDir:   t.TempDir(),
		ScratchDir: scratch,
	})
	assert.Error(t, err)

	assertEmptyDir(t, scratch)
}

func TestRunCancelled(t *testing.T) {
	imgDir := t.TempDir()
	scratch := t.TempDir()
	writeNpy(t, imgDir, "sample", gradient(8, 8))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(discardLogger()).Run(ctx, RunConfig{
		ImageDir:   imgDir,
		ScratchDir: scratch,
	})
	assert.ErrorIs(t, err, context.Canceled)

	assertEmptyDir(t, scratch)
}

func TestLoadImages(t *testing.T) {
	dir := t.TempDir()
	writeNpy(t, dir, "zebra", gradient(2, 3))
	writeNpy(t, dir, "apple", tensor.New(
		tensor.WithShape(2, 2, 3),
		tensor.WithBacking(make([]uint16, 12)),
	))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.npy"), 0o755))

	images, err := LoadImages(dir)
	require.NoError(t, err)
	require.Len(t, images, 2)

	assert.Equal(t, "apple", images[0].ID)
	assert.Equal(t, tensor.Uint16, images[0].Data.Dtype())
	assert.Equal(t, tensor.Shape{2, 2, 3}, images[0].Data.Shape())

	assert.Equal(t, "zebra", images[1].ID)
	assert.Equal(t, tensor.Shape{2, 3}, images[1].Data.Shape())
}

func TestLoadImagesWideIntegers(t *testing.T) {
	dir := t.TempDir()
	writeNpy(t, dir, "signed", tensor.New(
		tensor.WithShape(2, 2),
		tensor.WithBacking([]int64{-1, 0, 1 << 40, math.MinInt64}),
	))
	writeNpy(t, dir, "unsigned", tensor.New(
		tensor.WithShape(3),
		tensor.WithBacking([]uint64{0, 7, math.MaxUint64}),
	))

	images, err := LoadImages(dir)
	require.NoError(t, err)
	require.Len(t, images, 2)

	assert.Equal(t, tensor.Int64, images[0].Data.Dtype())
	assert.Equal(t, tensor.Shape{2, 2}, images[0].Data.Shape())
	assert.Equal(t, []int64{-1, 0, 1 << 40, math.MinInt64}, images[0].Data.Data())

	assert.Equal(t, tensor.Uint64, images[1].Data.Dtype())
	assert.Equal(t, tensor.Shape{3}, images[1].Data.Shape())
	assert.Equal(t, []uint64{0, 7, math.MaxUint64}, images[1].Data.Data())
}

func TestRunNumericTypes(t *testing.T) {
	imgDir := t.TempDir()

	counts := make([]int64, 12*10)
	for i := range counts {
		counts[i] = int64(i) - 60
	}
	writeNpy(t, imgDir, "counts", tensor.New(
		tensor.WithShape(12, 10),
		tensor.WithBacking(counts),
	))

	levels := make([]float32, 6*4*3)
	for i := range levels {
		levels[i] = float32(i) / 7
	}
	writeNpy(t, imgDir, "levels", tensor.New(
		tensor.WithShape(6, 4, 3),
		tensor.WithBacking(levels),
	))

	result, err := NewRunner(discardLogger()).Run(context.Background(), RunConfig{
		Filter:      catalog.Filter{Label: "none"},
		ImageDir:    imgDir,
		Repeat:      1,
		WriteTrials: 1,
		ReadTrials:  1,
		ScratchDir:  t.TempDir(),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Images)
	assert.Equal(t, 2, result.Datasets)
	assert.Greater(t, result.FileSizeBytes, uint64(12*10*8+6*4*3*4))

	path := filepath.Join(t.TempDir(), "c.h5")
	images, err := LoadImages(imgDir)
	require.NoError(t, err)
	require.NoError(t, writeSweep(path, images, 1, catalog.Filter{}))

	dims, err := readDataset(path, "counts_0", images[0])
	require.NoError(t, err)
	assert.Equal(t, []uint{12, 10}, dims)

	dims, err = readDataset(path, "levels_0", images[1])
	require.NoError(t, err)
	assert.Equal(t, []uint{6, 4, 3}, dims)
}

func TestLoadImagesCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.npy"), []byte("not numpy"), 0o644))

	_, err := LoadImages(dir)
	assert.Error(t, err)

	_, err = LoadImages(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestReadDatasetDims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.h5")
	img := Image{ID: "x", Data: gradient(5, 7)}

	require.NoError(t, writeSweep(path, []Image{img}, 1, catalog.Filter{}))

	dims, err := readDataset(path, "x_0", img)
	require.NoError(t, err)
	assert.Equal(t, []uint{5, 7}, dims)

	_, err = readDataset(path, "x_1", img)
	assert.Error(t, err)
}

func TestNativeType(t *testing.T) {
	_, err := nativeType(tensor.Bool)
	assert.Error(t, err)

	for _, dt := range []tensor.Dtype{
		tensor.Float32, tensor.Int, tensor.Uint, tensor.Int64, tensor.Uint64,
	} {
		h5t, err := nativeType(dt)
		require.NoError(t, err, dt.String())
		assert.NotNil(t, h5t, dt.String())
	}
}

func TestDatasetName(t *testing.T) {
	assert.Equal(t, "baboon_0", datasetName("baboon", 0))
	assert.Equal(t, "my_img_12", datasetName("my_img", 12))
}
