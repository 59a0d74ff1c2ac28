// Package cache provides response caches for the Google Maps clients.
package cache

import (
	"context"
	"fmt"

	"github.com/transitlab/transit-ratio/internal/model"
)

// Cache stores serialized API responses under string keys. Lookups never
// fail: a backend error degrades to a miss. Implementations must be safe
// for concurrent use.
type Cache interface {
	// Get returns the payload cached under key, or ok false on a miss.
	Get(ctx context.Context, key string) (payload []byte, ok bool)
	// Set stores payload under key for the cache's TTL. Best effort.
	Set(ctx context.Context, key string, payload []byte)
	// Close releases backend resources.
	Close() error
}

// GeocodeKey is the canonical cache key for a geocode lookup.
func GeocodeKey(address string) string {
	return "geo:" + address
}

// DirectionsKey is the canonical cache key for a directions lookup.
func DirectionsKey(origin, destination string, mode model.TravelMode) string {
	return fmt.Sprintf("dir:%s|%s|%s", origin, destination, mode)
}
