package recolor

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Counts tallies how many pixels of an image fell in each Class.
type Counts struct {
	Transparent int
	Colored     int
	Grayscale   int
}

func (c Counts) Add(o Counts) Counts {
	return Counts{
		Transparent: c.Transparent + o.Transparent,
		Colored:     c.Colored + o.Colored,
		Grayscale:   c.Grayscale + o.Grayscale,
	}
}

func (c Counts) Total() int {
	return c.Transparent + c.Colored + c.Grayscale
}

// Image converts img to non-premultiplied RGBA and recolors every pixel. The
// result has the same size as img with its origin at (0, 0); img is left
// untouched.
func (t Transform) Image(img image.Image) (*image.NRGBA, Counts) {
	dst := imaging.Clone(img)

	var counts Counts
	bounds := dst.Bounds()
	for y := 0; y < bounds.Dy(); y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+bounds.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			p := color.NRGBA{R: row[i], G: row[i+1], B: row[i+2], A: row[i+3]}
			switch t.Classify(p) {
			case Transparent:
				counts.Transparent++
			case Colored:
				counts.Colored++
			default:
				counts.Grayscale++
			}

			p = t.Pixel(p)
			row[i], row[i+1], row[i+2], row[i+3] = p.R, p.G, p.B, p.A
		}
	}

	return dst, counts
}
