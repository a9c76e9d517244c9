package acquire

import (
	"hash/fnv"
	"image"
	"image/color"
	"math"
	mrand "math/rand"

	"gorgonia.org/tensor"
)

// Synthesize builds a deterministic colour test image. The picture is a
// pair of smooth gradients with a ring pattern and seeded noise on top, so
// it compresses somewhere between a flat field and random data, much like
// a photograph.
func Synthesize(width, height int, depth Depth, seed int64) (*tensor.Dense, error) {
	if err := depth.Validate(); err != nil {
		return nil, err
	}

	rng := mrand.New(mrand.NewSource(seed))
	img := image.NewRGBA64(image.Rect(0, 0, width, height))

	cx, cy := float64(width)/2, float64(height)/2
	period := math.Max(float64(width), float64(height)) / 8

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			fx := float64(x) / math.Max(float64(width-1), 1)
			fy := float64(y) / math.Max(float64(height-1), 1)
			ring := 0.5 + 0.5*math.Sin(math.Hypot(float64(x)-cx, float64(y)-cy)/period*2*math.Pi)

			img.SetRGBA64(x, y, color.RGBA64{
				R: channel(fx, rng),
				G: channel(fy, rng),
				B: channel(ring, rng),
				A: math.MaxUint16,
			})
		}
	}

	return ToArray(img, depth), nil
}

// SynthesizeAndStore synthesizes an image seeded from id and writes it to
// <dir>/<id>.npy.
func SynthesizeAndStore(id, dir string, width, height int, depth Depth, seed int64) (string, error) {
	arr, err := Synthesize(width, height, depth, seed^int64(hashID(id)))
	if err != nil {
		return "", newError(id, err)
	}

	path, err := Store(arr, id, dir)
	if err != nil {
		return "", newError(id, err)
	}

	return path, nil
}

func channel(v float64, rng *mrand.Rand) uint16 {
	v = v*0.9 + rng.Float64()*0.1

	return uint16(math.Round(math.Min(math.Max(v, 0), 1) * math.MaxUint16))
}

func hashID(id string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(id))

	return h.Sum32()
}
