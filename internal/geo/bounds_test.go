package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitlab/transit-ratio/internal/model"
)

func TestBoundsOf(t *testing.T) {
	t.Parallel()

	points := []model.Geopoint{
		{Lat: 51.5074, Lng: -0.1278}, // London
		{Lat: 55.8642, Lng: -4.2518}, // Glasgow
		{Lat: 52.4814, Lng: -1.8998}, // Birmingham
	}

	b, ok := BoundsOf(points)
	require.True(t, ok)
	assert.InDelta(t, 51.5074, b.SouthWest.Lat, 1e-6)
	assert.InDelta(t, -4.2518, b.SouthWest.Lng, 1e-6)
	assert.InDelta(t, 55.8642, b.NorthEast.Lat, 1e-6)
	assert.InDelta(t, -0.1278, b.NorthEast.Lng, 1e-6)
}

func TestBoundsOf_SinglePoint(t *testing.T) {
	t.Parallel()

	b, ok := BoundsOf([]model.Geopoint{{Lat: 1.5, Lng: 2.5}})
	require.True(t, ok)
	assert.InDelta(t, 1.5, b.SouthWest.Lat, 1e-6)
	assert.InDelta(t, 1.5, b.NorthEast.Lat, 1e-6)
	assert.InDelta(t, 2.5, b.SouthWest.Lng, 1e-6)
	assert.InDelta(t, 2.5, b.NorthEast.Lng, 1e-6)
}

func TestBoundsOf_Empty(t *testing.T) {
	t.Parallel()

	_, ok := BoundsOf(nil)
	assert.False(t, ok)
}

func TestCentroid(t *testing.T) {
	t.Parallel()

	// Symmetric points around the equator/prime meridian.
	points := []model.Geopoint{
		{Lat: 10, Lng: 10},
		{Lat: -10, Lng: 10},
		{Lat: 10, Lng: -10},
		{Lat: -10, Lng: -10},
	}

	c, ok := Centroid(points)
	require.True(t, ok)
	assert.InDelta(t, 0, c.Lat, 1e-6)
	assert.InDelta(t, 0, c.Lng, 1e-6)
}

func TestCentroid_SinglePoint(t *testing.T) {
	t.Parallel()

	c, ok := Centroid([]model.Geopoint{{Lat: 51.5, Lng: -0.12}})
	require.True(t, ok)
	assert.InDelta(t, 51.5, c.Lat, 1e-6)
	assert.InDelta(t, -0.12, c.Lng, 1e-6)
}

func TestCentroid_Empty(t *testing.T) {
	t.Parallel()

	_, ok := Centroid(nil)
	assert.False(t, ok)
}
