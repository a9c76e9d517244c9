// Package main provides the CLI entry point for h5bench, a benchmark of
// HDF5 compression filters on sample images.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/weiihann/h5bench/acquire"
	"github.com/weiihann/h5bench/catalog"
	"github.com/weiihann/h5bench/harness"
	"github.com/weiihann/h5bench/report"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	root := newRootCmd(logger, level)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	root := &cobra.Command{
		Use:   "h5bench",
		Short: "HDF5 compression filter benchmark",
		Long: `h5bench writes a set of images into HDF5 files under several
compression filters and reports write time, read time and file size for
each filter.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger, level))

	return root
}

type runConfig struct {
	ImgDir        string        `validate:"omitempty,dir"`
	PixelDepth    int           `validate:"oneof=8 16"`
	Repeat        int           `validate:"min=1"`
	WriteTrials   int           `validate:"min=1"`
	ReadTrials    int           `validate:"min=1"`
	Images        []string      `validate:"min=1,dive,required,excludesall=/\\"`
	URLTemplate   string        `validate:"required,contains=%s"`
	HTTPTimeout   time.Duration `validate:"gte=0"`
	MaxSize       int           `validate:"gte=0"`
	SyntheticSize int           `validate:"min=1"`
	CatalogPath   string        `validate:"omitempty,file"`
	PluginDir     string        `validate:"omitempty,dir"`
	ScratchDir    string        `validate:"omitempty,dir"`
	Summary       string        `validate:"oneof=none markdown json csv"`
	LogLevel      string        `validate:"oneof=debug info warn error"`
	CleanImgDir   bool
	Synthetic     bool
	Seed          int64
}

func newRunCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var cfg runConfig

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Benchmark every filter in the catalog",
		Long: `Acquire sample images (or use --img-dir), then for each filter in the
catalog time repeated writes of all images into one HDF5 file and repeated
reads of a single dataset. One line is printed per filter.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
				return fmt.Errorf("log level: %w", err)
			}

			return runSweep(cmd.Context(), logger, cfg, cmd.OutOrStdout())
		},
	}

	formats := make([]string, 0, len(report.Formats()))
	for _, f := range report.Formats() {
		formats = append(formats, string(f))
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.ImgDir, "img-dir", "",
		"Directory of .npy images (default: acquire into a temp dir)")
	flags.IntVar(&cfg.PixelDepth, "pixel-depth", 8,
		"Bits per channel of acquired images: 8 or 16")
	flags.BoolVar(&cfg.CleanImgDir, "clean-img-dir", false,
		"Delete the image directory after the sweep")
	flags.IntVar(&cfg.Repeat, "repeat", 10,
		"Copies of each image written per sweep")
	flags.IntVar(&cfg.WriteTrials, "write-trials", harness.DefaultWriteTrials,
		"Timed write sweeps per filter")
	flags.IntVar(&cfg.ReadTrials, "read-trials", harness.DefaultReadTrials,
		"Timed single-dataset reads per filter")
	flags.StringSliceVar(&cfg.Images, "images", acquire.DefaultImages,
		"Image identifiers to acquire")
	flags.StringVar(&cfg.URLTemplate, "url-template", acquire.DefaultURLTemplate,
		"URL template for acquiring images; %s is the identifier")
	flags.DurationVar(&cfg.HTTPTimeout, "http-timeout", 0,
		"Timeout per image download (0 = none)")
	flags.IntVar(&cfg.MaxSize, "max-size", 0,
		"Downscale acquired images to fit this many pixels per side (0 = keep)")
	flags.BoolVar(&cfg.Synthetic, "synthetic", false,
		"Generate images locally instead of downloading them")
	flags.IntVar(&cfg.SyntheticSize, "synthetic-size", 512,
		"Width and height of synthetic images")
	flags.Int64Var(&cfg.Seed, "seed", 1,
		"Seed for synthetic images")
	flags.StringVar(&cfg.CatalogPath, "catalog", "",
		"YAML filter catalog replacing the built-in one")
	flags.StringVar(&cfg.PluginDir, "plugin-dir", "",
		"HDF5 filter plugin directory to search first")
	flags.StringVar(&cfg.ScratchDir, "scratch-dir", "",
		"Parent directory for scratch HDF5 files (default: OS temp dir)")
	flags.StringVar(&cfg.Summary, "summary", string(report.FormatNone),
		"Summary printed after the sweep: "+strings.Join(formats, ", "))
	flags.StringVar(&cfg.LogLevel, "log-level", "info",
		"Log level: debug, info, warn, error")

	return cmd
}

func runSweep(
	ctx context.Context,
	logger *slog.Logger,
	cfg runConfig,
	out io.Writer,
) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	// Step 1: Filter catalog.
	filters := catalog.Default()
	if cfg.CatalogPath != "" {
		var err error

		filters, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			return err
		}
	}

	// Step 2: Filter plugins.
	pluginDir, explicit := harness.ResolvePluginDir(cfg.PluginDir)
	if explicit {
		if err := harness.RegisterPluginDir(pluginDir); err != nil {
			return err
		}
	}

	logger.InfoContext(ctx, "starting benchmark",
		slog.Int("filters", len(filters)),
		slog.Int("repeat", cfg.Repeat),
		slog.String("plugin_dir", pluginDir),
	)

	harness.CheckFilters(ctx, logger, filters)

	// Step 3: Images.
	imgDir := cfg.ImgDir
	if imgDir == "" {
		var err error

		imgDir, err = acquireImages(ctx, logger, cfg)
		if err != nil {
			return err
		}
	}

	// Step 4: Run each filter sequentially. The first failure ends the
	// sweep.
	runner := harness.NewRunner(logger)
	results := make([]harness.Result, 0, len(filters))

	for _, f := range filters {
		report.Label(out, f.Label)

		result, err := runner.Run(ctx, harness.RunConfig{
			Filter:      f,
			ImageDir:    imgDir,
			Repeat:      cfg.Repeat,
			WriteTrials: cfg.WriteTrials,
			ReadTrials:  cfg.ReadTrials,
			ScratchDir:  cfg.ScratchDir,
		})
		if err != nil {
			fmt.Fprintln(out)

			return fmt.Errorf("benchmark %s: %w", f.Label, err)
		}

		report.Line(out, *result)
		results = append(results, *result)
	}

	// Step 5: Clean up and summarize.
	if cfg.CleanImgDir {
		if err := os.RemoveAll(imgDir); err != nil {
			return fmt.Errorf("clean image dir: %w", err)
		}

		logger.InfoContext(ctx, "image directory removed", slog.String("path", imgDir))
	}

	if err := report.Write(out, report.Format(cfg.Summary), results); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	logger.InfoContext(ctx, "benchmark complete")

	return nil
}

// acquireImages populates a new temp dir with the configured images and
// returns its path.
func acquireImages(
	ctx context.Context,
	logger *slog.Logger,
	cfg runConfig,
) (string, error) {
	dir, err := os.MkdirTemp("", "h5bench-images-*")
	if err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	depth := acquire.Depth(cfg.PixelDepth)

	fetcher := acquire.NewFetcher(logger,
		acquire.WithClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		acquire.WithURLTemplate(cfg.URLTemplate),
		acquire.WithMaxSize(cfg.MaxSize),
	)

	for _, id := range cfg.Images {
		var path string

		if cfg.Synthetic {
			path, err = acquire.SynthesizeAndStore(
				id, dir, cfg.SyntheticSize, cfg.SyntheticSize, depth, cfg.Seed,
			)
		} else {
			path, err = fetcher.FetchAndStore(ctx, id, dir, depth)
		}

		if err != nil {
			if rmErr := os.RemoveAll(dir); rmErr != nil {
				err = multierror.Append(err, fmt.Errorf("remove image dir %s: %w", dir, rmErr))
			}

			return "", err
		}

		logger.DebugContext(ctx, "image stored", slog.String("path", path))
	}

	logger.InfoContext(ctx, "images acquired",
		slog.String("dir", dir),
		slog.Int("count", len(cfg.Images)),
		slog.Int("pixel_depth", cfg.PixelDepth),
		slog.Bool("synthetic", cfg.Synthetic),
	)

	return dir, nil
}
