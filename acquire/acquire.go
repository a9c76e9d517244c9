// Package acquire downloads sample raster images and stores them as
// numpy array files for the benchmark runner.
package acquire

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	"gorgonia.org/tensor"
)

// DefaultURLTemplate is formatted with the image identifier.
const DefaultURLTemplate = "https://homepages.cae.wisc.edu/~ece533/images/%s.png"

// DefaultImages are fetched when no image directory is given.
var DefaultImages = []string{"airplane", "baboon", "peppers"}

// Fetcher retrieves images from a remote catalog.
type Fetcher struct {
	Client      *http.Client
	URLTemplate string
	// MaxSize, when positive, bounds the width and height of fetched
	// images. Aspect ratio is preserved.
	MaxSize int
	Logger  *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient overrides the HTTP client. The default client has no timeout.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.Client = c }
}

// WithURLTemplate overrides DefaultURLTemplate.
func WithURLTemplate(tmpl string) Option {
	return func(f *Fetcher) { f.URLTemplate = tmpl }
}

// WithMaxSize downscales fetched images to fit a size×size box.
func WithMaxSize(size int) Option {
	return func(f *Fetcher) { f.MaxSize = size }
}

// NewFetcher creates a Fetcher.
func NewFetcher(logger *slog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		Client:      &http.Client{},
		URLTemplate: DefaultURLTemplate,
		Logger:      logger,
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch downloads the image named id and converts it to an array with
// the given bit depth. Grayscale images become H×W arrays, everything
// else H×W×3.
func (f *Fetcher) Fetch(ctx context.Context, id string, depth Depth) (*tensor.Dense, error) {
	if err := depth.Validate(); err != nil {
		return nil, newError(id, err)
	}

	url := fmt.Sprintf(f.URLTemplate, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, newError(id, errors.Wrap(err, "build request"))
	}

	f.Logger.DebugContext(ctx, "fetching image",
		slog.String("id", id),
		slog.String("url", url),
	)

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, newError(id, errors.Wrap(err, "request failed"))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)

		return nil, newError(id, errors.Errorf("unexpected status %s", resp.Status))
	}

	img, format, err := image.Decode(resp.Body)
	if err != nil {
		return nil, newError(id, errors.Wrap(err, "image decoding failed"))
	}

	if f.MaxSize > 0 {
		img = resize.Thumbnail(uint(f.MaxSize), uint(f.MaxSize), img, resize.Lanczos3)
	}

	b := img.Bounds()
	f.Logger.InfoContext(ctx, "image fetched",
		slog.String("id", id),
		slog.String("format", format),
		slog.Int("width", b.Dx()),
		slog.Int("height", b.Dy()),
	)

	return ToArray(img, depth), nil
}

// FetchAndStore fetches id and writes it to <dir>/<id>.npy, returning
// the path.
func (f *Fetcher) FetchAndStore(ctx context.Context, id, dir string, depth Depth) (string, error) {
	arr, err := f.Fetch(ctx, id, depth)
	if err != nil {
		return "", err
	}

	path, err := Store(arr, id, dir)
	if err != nil {
		return "", newError(id, err)
	}

	return path, nil
}

// Store writes arr to <dir>/<id>.npy.
func Store(arr *tensor.Dense, id, dir string) (string, error) {
	path := filepath.Join(dir, id+".npy")

	out, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "create array file")
	}

	if err := arr.WriteNpy(out); err != nil {
		out.Close()

		return "", errors.Wrapf(err, "write %s", path)
	}

	if err := out.Close(); err != nil {
		return "", errors.Wrapf(err, "close %s", path)
	}

	return path, nil
}
