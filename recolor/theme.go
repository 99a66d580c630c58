package recolor

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	DefaultThemeHex  = "#CC66FF"
	DefaultThreshold = 10
)

// DefaultTheme is DefaultThemeHex as a color.
var DefaultTheme = color.NRGBA{R: 0xCC, G: 0x66, B: 0xFF, A: 0xFF}

type Class int

const (
	Transparent Class = iota
	Colored
	Grayscale
)

func (c Class) String() string {
	switch c {
	case Transparent:
		return "transparent"
	case Colored:
		return "colored"
	case Grayscale:
		return "grayscale"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// Transform maps every colored pixel to Theme. A pixel is colored when the
// spread between its largest and smallest RGB channel exceeds Threshold.
type Transform struct {
	Theme     color.NRGBA
	Threshold uint8
}

func DefaultTransform() Transform {
	return Transform{Theme: DefaultTheme, Threshold: DefaultThreshold}
}

func (t Transform) Classify(p color.NRGBA) Class {
	if p.A == 0 {
		return Transparent
	}
	if max(p.R, p.G, p.B)-min(p.R, p.G, p.B) > t.Threshold {
		return Colored
	}
	return Grayscale
}

// Pixel recolors a single non-premultiplied pixel. Fully transparent pixels
// become transparent black, colored pixels take the theme RGB and keep their
// alpha, everything else passes through.
func (t Transform) Pixel(p color.NRGBA) color.NRGBA {
	switch t.Classify(p) {
	case Transparent:
		return color.NRGBA{}
	case Colored:
		return color.NRGBA{R: t.Theme.R, G: t.Theme.G, B: t.Theme.B, A: p.A}
	default:
		return p
	}
}

// ParseTheme reads a #RGB or #RRGGBB color. The leading '#' is optional.
func ParseTheme(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}

	if len(s) != 4 && len(s) != 7 {
		return color.NRGBA{}, fmt.Errorf("invalid theme color %q, should be #RGB or #RRGGBB", s)
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid theme color %q, should be #RGB or #RRGGBB: %w", s, err)
	}

	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xFF}, nil
}
