package render

import (
	"fmt"
	"math"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/transitlab/transit-ratio/internal/model"
)

type rgb struct {
	r, g, b uint8
}

// Colormap linearly interpolates between evenly spaced color stops over
// a value range. Values outside the range clamp to the nearest end.
type Colormap struct {
	stops    []rgb
	min, max float64
}

// NewColormap builds a colormap from hex stops ("#rrggbb") spanning
// [min, max].
func NewColormap(stops []string, min, max float64) (*Colormap, error) {
	if len(stops) < 2 {
		return nil, eris.Wrap(model.ErrInvalidArgument, "render: colormap needs at least two stops")
	}
	if max <= min {
		return nil, eris.Wrap(model.ErrInvalidArgument, "render: colormap max must exceed min")
	}

	parsed := make([]rgb, len(stops))
	for i, stop := range stops {
		c, err := parseHexColor(stop)
		if err != nil {
			return nil, err
		}
		parsed[i] = c
	}
	return &Colormap{stops: parsed, min: min, max: max}, nil
}

// At returns the hex color for v, clamping v to the colormap range.
func (c *Colormap) At(v float64) string {
	if v < c.min {
		v = c.min
	}
	if v > c.max {
		v = c.max
	}

	t := (v - c.min) / (c.max - c.min)
	scaled := t * float64(len(c.stops)-1)
	lo := int(scaled)
	if lo == len(c.stops)-1 {
		return formatHexColor(c.stops[lo])
	}
	frac := scaled - float64(lo)

	a, b := c.stops[lo], c.stops[lo+1]
	mixed := rgb{
		r: lerpChannel(a.r, b.r, frac),
		g: lerpChannel(a.g, b.g, frac),
		b: lerpChannel(a.b, b.b, frac),
	}
	return formatHexColor(mixed)
}

func lerpChannel(a, b uint8, frac float64) uint8 {
	return uint8(math.Round(float64(a) + frac*(float64(b)-float64(a))))
}

func parseHexColor(s string) (rgb, error) {
	if len(s) != 7 || s[0] != '#' {
		return rgb{}, eris.Wrapf(model.ErrInvalidArgument, "render: want \"#rrggbb\", got %q", s)
	}
	n, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return rgb{}, eris.Wrapf(model.ErrInvalidArgument, "render: bad hex color %q", s)
	}
	return rgb{r: uint8(n >> 16), g: uint8(n >> 8), b: uint8(n)}, nil
}

func formatHexColor(c rgb) string {
	return fmt.Sprintf("#%02x%02x%02x", c.r, c.g, c.b)
}
