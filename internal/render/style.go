// Package render projects a session's city table into map views and
// their HTML, GeoJSON and XLSX encodings.
package render

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/transitlab/transit-ratio/internal/model"
)

// Style controls the visual parameters of a rendered map.
type Style struct {
	// GradientStops are hex colors, ordered from the best ratio to the
	// worst.
	GradientStops []string `yaml:"gradient_stops"`
	// ClampMin and ClampMax bound the ratio before it is mapped onto the
	// gradient.
	ClampMin float64 `yaml:"clamp_min"`
	ClampMax float64 `yaml:"clamp_max"`
	// Circle radius in pixels: RadiusBase + RadiusSpan*ratioNormalized,
	// rounded.
	RadiusBase  float64 `yaml:"radius_base"`
	RadiusSpan  float64 `yaml:"radius_span"`
	FillOpacity float64 `yaml:"fill_opacity"`
	Zoom        int     `yaml:"zoom"`
	TileURL     string  `yaml:"tile_url"`
	Attribution string  `yaml:"attribution"`
}

// DefaultStyle returns the stock look: a green to yellow to red gradient
// keyed on ratios clamped to [0.5, 1.5], radii from 5 to 30 pixels,
// zoom 5 and OpenStreetMap tiles.
func DefaultStyle() Style {
	return Style{
		GradientStops: []string{"#008000", "#ffff00", "#ff0000"},
		ClampMin:      0.5,
		ClampMax:      1.5,
		RadiusBase:    5,
		RadiusSpan:    25,
		FillOpacity:   0.75,
		Zoom:          5,
		TileURL:       "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution:   "&copy; OpenStreetMap contributors",
	}
}

// LoadStyle reads a YAML style file. Knobs absent from the file keep
// their DefaultStyle values.
func LoadStyle(path string) (Style, error) {
	style := DefaultStyle()

	data, err := os.ReadFile(path)
	if err != nil {
		return style, eris.Wrapf(err, "render: read style %s", path)
	}
	if err := yaml.Unmarshal(data, &style); err != nil {
		return style, eris.Wrapf(err, "render: parse style %s", path)
	}
	if err := style.validate(); err != nil {
		return style, err
	}
	return style, nil
}

func (s Style) validate() error {
	switch {
	case len(s.GradientStops) < 2:
		return eris.Wrap(model.ErrInvalidArgument, "render: style needs at least two gradient stops")
	case s.ClampMax <= s.ClampMin:
		return eris.Wrap(model.ErrInvalidArgument, "render: style clamp_max must exceed clamp_min")
	case s.RadiusBase < 0 || s.RadiusSpan < 0:
		return eris.Wrap(model.ErrInvalidArgument, "render: style radii must not be negative")
	case s.Zoom < 1:
		return eris.Wrap(model.ErrInvalidArgument, "render: style zoom must be at least 1")
	}
	return nil
}
