package imaging

import (
	"fmt"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Endpoints of the cloud cover frame scale.
var (
	ClearSky = mustHex("#1a9850")
	Overcast = mustHex("#d73027")
)

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseHexColor parses "#RRGGBB" into an opaque color.
func ParseHexColor(hex string) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// CloudColor maps a cloud cover fraction to a frame color, blending from
// ClearSky at 0 to Overcast at 1 in HCL space. Fractions outside [0, 1]
// are clamped.
func CloudColor(fraction float64) color.NRGBA {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return toNRGBA(ClearSky.BlendHcl(Overcast, fraction))
}

// Palette returns n perceptually spaced colors from start to end. One color
// is start; zero or fewer is nil.
func Palette(n int, start, end colorful.Color) []color.NRGBA {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []color.NRGBA{toNRGBA(start)}
	}
	out := make([]color.NRGBA, n)
	for i := range out {
		out[i] = toNRGBA(start.BlendHcl(end, float64(i)/float64(n-1)))
	}
	return out
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
