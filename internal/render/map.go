package render

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/transitlab/transit-ratio/internal/geo"
	"github.com/transitlab/transit-ratio/internal/model"
)

// Marker is one rendered city.
type Marker struct {
	City            string // title-cased for display
	Geopoint        model.Geopoint
	Population      int
	Ratio           float64
	RatioNormalized float64
	Radius          int
	FillColor       string
	StrokeColor     string
	DriveTime       string // H:MM:SS
	TransitTime     string // H:MM:SS
}

// OriginMarker pins the evaluated origin address.
type OriginMarker struct {
	Address  string
	Geopoint model.Geopoint
}

// MapView is a fully computed, render-ready map: center, zoom, bounds,
// an origin pin and one circle marker per city with a defined ratio. It
// is a pure projection; building it never mutates the session.
type MapView struct {
	SessionID string
	Country   string
	Center    model.Geopoint
	Zoom      int
	Bounds    geo.Bounds
	Origin    *OriginMarker
	Markers   []Marker
	Style     Style
}

// Build computes the map view for sess. center is the preferred map
// center and may be nil; the fallback chain is center, then the
// session's origin geopoint, then the centroid of the rendered markers.
// Rows without a defined positive ratio are left out entirely.
func Build(sess *model.Session, center *model.Geopoint, style Style) (*MapView, error) {
	if err := style.validate(); err != nil {
		return nil, err
	}
	cmap, err := NewColormap(style.GradientStops, style.ClampMin, style.ClampMax)
	if err != nil {
		return nil, err
	}

	rows := make([]model.CityRow, 0, len(sess.Cities))
	for _, row := range sess.Cities {
		if row.Ratio == nil || *row.Ratio <= 0 {
			continue
		}
		if row.DurationDriving == nil || row.DurationTransit == nil {
			continue
		}
		rows = append(rows, row)
	}

	// Marker size follows the inverse ratio, min-max scaled: the city
	// transit serves best gets the largest circle. A collapsed scale
	// (all inverses equal) puts every row at 0.5.
	minInv, maxInv := math.Inf(1), math.Inf(-1)
	for _, row := range rows {
		inv := 1 / *row.Ratio
		if inv < minInv {
			minInv = inv
		}
		if inv > maxInv {
			maxInv = inv
		}
	}

	caser := cases.Title(language.English)
	markers := make([]Marker, 0, len(rows))
	for _, row := range rows {
		rn := 0.5
		if maxInv > minInv {
			rn = (1 / *row.Ratio - minInv) / (maxInv - minInv)
		}
		fill := cmap.At(*row.Ratio)
		markers = append(markers, Marker{
			City:            caser.String(row.City),
			Geopoint:        row.Geopoint,
			Population:      row.Population,
			Ratio:           *row.Ratio,
			RatioNormalized: rn,
			Radius:          int(math.Round(style.RadiusSpan*rn + style.RadiusBase)),
			FillColor:       fill,
			StrokeColor:     fill + "30",
			DriveTime:       FormatDuration(*row.DurationDriving),
			TransitTime:     FormatDuration(*row.DurationTransit),
		})
	}

	points := make([]model.Geopoint, 0, len(markers)+1)
	for _, m := range markers {
		points = append(points, m.Geopoint)
	}

	resolved := center
	if resolved == nil && sess.OriginGeopoint != nil {
		resolved = sess.OriginGeopoint
	}
	if resolved == nil {
		if centroid, ok := geo.Centroid(points); ok {
			resolved = &centroid
		}
	}
	if resolved == nil {
		return nil, eris.Wrap(model.ErrInvalidArgument, "render: no center point available")
	}

	var origin *OriginMarker
	if sess.OriginGeopoint != nil {
		origin = &OriginMarker{Address: sess.Origin, Geopoint: *sess.OriginGeopoint}
		points = append(points, *sess.OriginGeopoint)
	}

	bounds, ok := geo.BoundsOf(points)
	if !ok {
		bounds, _ = geo.BoundsOf([]model.Geopoint{*resolved})
	}

	return &MapView{
		SessionID: sess.ID,
		Country:   sess.CountryName,
		Center:    *resolved,
		Zoom:      style.Zoom,
		Bounds:    bounds,
		Origin:    origin,
		Markers:   markers,
		Style:     style,
	}, nil
}

// FormatDuration renders whole seconds as H:MM:SS.
func FormatDuration(seconds int) string {
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}
