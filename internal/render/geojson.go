package render

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// GeoJSON writes the view as a FeatureCollection: one Point feature per
// marker plus the origin pin. Coordinates are GeoJSON-ordered, longitude
// first.
func GeoJSON(w io.Writer, view *MapView) error {
	fc := &geojson.FeatureCollection{}

	if view.Origin != nil {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{view.Origin.Geopoint.Lng, view.Origin.Geopoint.Lat}),
			Properties: map[string]interface{}{
				"kind":    "origin",
				"address": view.Origin.Address,
			},
		})
	}

	for _, m := range view.Markers {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{m.Geopoint.Lng, m.Geopoint.Lat}),
			Properties: map[string]interface{}{
				"kind":             "city",
				"city":             m.City,
				"population":       m.Population,
				"ratio":            m.Ratio,
				"ratio_normalized": m.RatioNormalized,
				"radius":           m.Radius,
				"fill_color":       m.FillColor,
				"stroke_color":     m.StrokeColor,
				"duration_driving": m.DriveTime,
				"duration_transit": m.TransitTime,
			},
		})
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return eris.Wrap(err, "render: marshal geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "render: write geojson")
	}
	return nil
}
