// Package geo provides small spherical-geometry helpers for map
// rendering.
package geo

import (
	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"

	"github.com/transitlab/transit-ratio/internal/model"
)

// Bounds is a latitude/longitude rectangle enclosing a set of points.
type Bounds struct {
	SouthWest model.Geopoint `json:"south_west"`
	NorthEast model.Geopoint `json:"north_east"`
}

// BoundsOf returns the tightest rectangle enclosing points. ok is false
// when points is empty.
func BoundsOf(points []model.Geopoint) (Bounds, bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	rect := s2.EmptyRect()
	for _, p := range points {
		rect = rect.AddPoint(s2.LatLngFromDegrees(p.Lat, p.Lng))
	}
	return Bounds{
		SouthWest: model.Geopoint{Lat: rect.Lo().Lat.Degrees(), Lng: rect.Lo().Lng.Degrees()},
		NorthEast: model.Geopoint{Lat: rect.Hi().Lat.Degrees(), Lng: rect.Hi().Lng.Degrees()},
	}, true
}

// Centroid returns the spherical centroid of points. ok is false when
// points is empty.
func Centroid(points []model.Geopoint) (model.Geopoint, bool) {
	if len(points) == 0 {
		return model.Geopoint{}, false
	}
	var sum r3.Vector
	for _, p := range points {
		sum = sum.Add(s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lng)).Vector)
	}
	ll := s2.LatLngFromPoint(s2.Point{Vector: sum.Normalize()})
	return model.Geopoint{Lat: ll.Lat.Degrees(), Lng: ll.Lng.Degrees()}, true
}
