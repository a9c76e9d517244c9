package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/weiihann/h5bench/catalog"
)

const (
	DefaultRepeat      = 3
	DefaultWriteTrials = 10
	DefaultReadTrials  = 100

	containerName = "bench.h5"
)

// RunConfig holds parameters for a single benchmark run.
type RunConfig struct {
	Filter   catalog.Filter
	ImageDir string
	// Repeat is how many copies of each image one sweep writes.
	Repeat int
	// WriteTrials and ReadTrials are the number of timed executions of
	// the write sweep and of the single-dataset read. Reported times are
	// the sum over all trials.
	WriteTrials int
	ReadTrials  int
	// ScratchDir is the parent of the per-run scratch directory. Empty
	// means the OS temp dir.
	ScratchDir string
}

func (c RunConfig) withDefaults() RunConfig {
	if c.Repeat <= 0 {
		c.Repeat = DefaultRepeat
	}
	if c.WriteTrials <= 0 {
		c.WriteTrials = DefaultWriteTrials
	}
	if c.ReadTrials <= 0 {
		c.ReadTrials = DefaultReadTrials
	}

	return c
}

// Runner times HDF5 writes and reads of a directory of arrays.
type Runner struct {
	Logger *slog.Logger

	// written, when set, sees the container after the last write trial.
	written func(path string)
}

// NewRunner creates a Runner.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{Logger: logger}
}

// Run loads the arrays in cfg.ImageDir, then times WriteTrials sweeps
// into a fresh container and ReadTrials reads of the first image's
// first copy. The scratch directory holding the container is removed
// before Run returns, whatever the outcome.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (result *Result, err error) {
	cfg = cfg.withDefaults()
	logger := r.Logger.With(slog.String("filter", cfg.Filter.Label))

	images, err := LoadImages(cfg.ImageDir)
	if err != nil {
		return nil, err
	}

	scratch, err := os.MkdirTemp(cfg.ScratchDir, "h5bench-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			err = multierror.Append(err, fmt.Errorf("remove scratch dir %s: %w", scratch, rmErr)).ErrorOrNil()
			result = nil
		}
	}()

	path := filepath.Join(scratch, containerName)

	logger.DebugContext(ctx, "starting write phase",
		slog.Int("images", len(images)),
		slog.Int("repeat", cfg.Repeat),
		slog.Int("trials", cfg.WriteTrials),
		slog.String("container", path),
	)

	var writeTime time.Duration

	for trial := 0; trial < cfg.WriteTrials; trial++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()

		if err := writeSweep(path, images, cfg.Repeat, cfg.Filter); err != nil {
			return nil, fmt.Errorf("write trial %d: %w", trial, err)
		}

		writeTime += time.Since(start)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat container: %w", err)
	}

	names, err := listDatasets(path)
	if err != nil {
		return nil, err
	}

	if r.written != nil {
		r.written(path)
	}

	rss, err := residentSetSize()
	if err != nil {
		logger.Warn("failed to measure resident set size",
			slog.String("error", err.Error()),
		)
	}

	first := datasetName(images[0].ID, 0)

	logger.DebugContext(ctx, "starting read phase",
		slog.String("dataset", first),
		slog.Int("trials", cfg.ReadTrials),
	)

	var readTime time.Duration

	for trial := 0; trial < cfg.ReadTrials; trial++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()

		if _, err := readDataset(path, first, images[0]); err != nil {
			return nil, fmt.Errorf("read trial %d: %w", trial, err)
		}

		readTime += time.Since(start)
	}

	result = &Result{
		Label:         cfg.Filter.Label,
		FilterCode:    int(cfg.Filter.Code),
		Images:        len(images),
		Repeat:        cfg.Repeat,
		Datasets:      len(names),
		WriteTime:     writeTime,
		ReadTime:      readTime,
		FileSizeBytes: uint64(info.Size()),
		RSSBytes:      rss,
	}

	// Debug only: at info the line would land between the label and the
	// measurements of a progress row.
	logger.DebugContext(ctx, "run finished",
		slog.Duration("write_time", writeTime),
		slog.Duration("read_time", readTime),
		slog.String("file_size", humanize.Bytes(result.FileSizeBytes)),
	)

	return result, nil
}

func residentSetSize() (uint64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}

	mem, err := p.MemoryInfo()
	if err != nil {
		return 0, err
	}

	return mem.RSS, nil
}
