package harness

import "math"

const (
	chunkBase = 16 * 1024
	chunkMin  = 8 * 1024
	chunkMax  = 1024 * 1024
)

// guessChunk picks the chunk shape h5py uses when a filter implies a
// chunked layout: axes are halved in turn until a chunk is close to a
// target size that grows with the dataset, bounded by chunkMin and
// chunkMax.
func guessChunk(dims []uint, typeSize int) []uint {
	if len(dims) == 0 {
		return nil
	}

	chunks := make([]float64, len(dims))
	for i, d := range dims {
		if d == 0 {
			d = 1024
		}
		chunks[i] = float64(d)
	}

	volume := func() float64 {
		v := 1.0
		for _, c := range chunks {
			v *= c
		}

		return v
	}

	dsetSize := volume() * float64(typeSize)
	target := chunkBase * math.Pow(2, math.Log10(dsetSize/(1024*1024)))
	target = math.Max(chunkMin, math.Min(chunkMax, target))

	for idx := 0; ; idx++ {
		size := volume() * float64(typeSize)
		if (size < target || math.Abs(size-target)/target < 0.5) && size < chunkMax {
			break
		}

		if volume() == 1 {
			break
		}

		i := idx % len(chunks)
		chunks[i] = math.Ceil(chunks[i] / 2)
	}

	out := make([]uint, len(chunks))
	for i, c := range chunks {
		out[i] = uint(c)
	}

	return out
}
