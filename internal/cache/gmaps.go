package cache

import (
	"context"
	"encoding/json"

	"github.com/transitlab/transit-ratio/internal/metrics"
	"github.com/transitlab/transit-ratio/internal/model"
	"github.com/transitlab/transit-ratio/pkg/gmaps"
)

// Maps wraps a gmaps.Client with response caching. Successful lookups
// are cached including negative ones (no match, no route), so repeat
// runs against the same country resolve without touching the API.
// Failed lookups are never cached.
type Maps struct {
	inner   gmaps.Client
	cache   Cache
	metrics *metrics.Metrics
}

// NewMaps creates the caching decorator.
func NewMaps(inner gmaps.Client, cache Cache, m *metrics.Metrics) *Maps {
	return &Maps{inner: inner, cache: cache, metrics: m}
}

// cachedPoint wraps a geocode result; Point nil records a negative
// lookup.
type cachedPoint struct {
	Point *model.Geopoint `json:"point"`
}

// cachedLeg wraps a directions result; Leg nil records a route the API
// could not produce.
type cachedLeg struct {
	Leg *gmaps.Leg `json:"leg"`
}

func (m *Maps) Geocode(ctx context.Context, address string) (*model.Geopoint, error) {
	key := GeocodeKey(address)
	if payload, ok := m.cache.Get(ctx, key); ok {
		var cached cachedPoint
		if err := json.Unmarshal(payload, &cached); err == nil {
			m.metrics.CacheLookups.WithLabelValues("geocode", "hit").Inc()
			return cached.Point, nil
		}
	}
	m.metrics.CacheLookups.WithLabelValues("geocode", "miss").Inc()

	point, err := m.inner.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(cachedPoint{Point: point}); err == nil {
		m.cache.Set(ctx, key, payload)
	}
	return point, nil
}

func (m *Maps) Directions(ctx context.Context, origin, destination string, mode model.TravelMode) (*gmaps.Leg, error) {
	key := DirectionsKey(origin, destination, mode)
	if payload, ok := m.cache.Get(ctx, key); ok {
		var cached cachedLeg
		if err := json.Unmarshal(payload, &cached); err == nil {
			m.metrics.CacheLookups.WithLabelValues("directions", "hit").Inc()
			return cached.Leg, nil
		}
	}
	m.metrics.CacheLookups.WithLabelValues("directions", "miss").Inc()

	leg, err := m.inner.Directions(ctx, origin, destination, mode)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(cachedLeg{Leg: leg}); err == nil {
		m.cache.Set(ctx, key, payload)
	}
	return leg, nil
}
