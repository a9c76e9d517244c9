package acquire

import (
	"fmt"
	"image"
	"image/color"

	"gorgonia.org/tensor"
)

// Depth is the number of bits per channel of an acquired array.
type Depth int

const (
	Depth8  Depth = 8
	Depth16 Depth = 16
)

// Validate rejects anything other than 8 or 16 bits.
func (d Depth) Validate() error {
	switch d {
	case Depth8, Depth16:
		return nil
	default:
		return fmt.Errorf("unsupported pixel depth %d", int(d))
	}
}

// ToArray converts img to an H×W (grayscale sources, including palettes
// of grays) or H×W×3 array of uint8 or uint16 depending on depth.
func ToArray(img image.Image, depth Depth) *tensor.Dense {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	channels := 3
	if isGray(img) {
		channels = 1
	}

	shape := []int{h, w, channels}
	if channels == 1 {
		shape = shape[:2]
	}

	n := w * h * channels

	if depth == Depth16 {
		pix := make([]uint16, 0, n)
		eachPixel(img, channels, func(v uint32) {
			pix = append(pix, uint16(v))
		})

		return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(pix))
	}

	pix := make([]uint8, 0, n)
	eachPixel(img, channels, func(v uint32) {
		pix = append(pix, uint8(v>>8))
	})

	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(pix))
}

func isGray(img image.Image) bool {
	switch m := img.ColorModel().(type) {
	case color.Palette:
		for _, c := range m {
			n := straight(c)
			if n.R != n.G || n.G != n.B {
				return false
			}
		}

		return len(m) > 0
	default:
		return m == color.GrayModel || m == color.Gray16Model
	}
}

// eachPixel visits img in row-major order and emits 16-bit channel values.
// Alpha is dropped without premultiplying, so transparent pixels keep
// their colour.
func eachPixel(img image.Image, channels int, emit func(uint32)) {
	b := img.Bounds()

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := straight(img.At(x, y))

			emit(uint32(c.R))

			if channels == 1 {
				continue
			}

			emit(uint32(c.G))
			emit(uint32(c.B))
		}
	}
}

// straight returns c with its alpha not applied. Non-premultiplied
// colours are read as stored; the rest go through NRGBA64Model, which
// cannot recover the colour of fully transparent pixels.
func straight(c color.Color) color.NRGBA64 {
	switch v := c.(type) {
	case color.NRGBA:
		return color.NRGBA64{
			R: uint16(v.R) * 0x101,
			G: uint16(v.G) * 0x101,
			B: uint16(v.B) * 0x101,
			A: uint16(v.A) * 0x101,
		}
	case color.NRGBA64:
		return v
	default:
		return color.NRGBA64Model.Convert(c).(color.NRGBA64)
	}
}
