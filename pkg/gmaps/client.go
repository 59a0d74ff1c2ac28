// Package gmaps provides Google Maps Geocoding and Directions API clients.
package gmaps

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/transitlab/transit-ratio/internal/model"
)

const (
	defaultBaseURL = "https://maps.googleapis.com"
	geocodePath    = "/maps/api/geocode/json"
	directionsPath = "/maps/api/directions/json"
)

// Leg is the distance and duration summary of one route leg.
type Leg struct {
	DistanceMeters  int `json:"distance_meters"`
	DurationSeconds int `json:"duration_seconds"`
}

// Client calls the Google Maps web service APIs.
type Client interface {
	// Geocode resolves a free-form address to a coordinate pair. A
	// response with no results or an unreadable body yields (nil, nil),
	// not an error.
	Geocode(ctx context.Context, address string) (*model.Geopoint, error)

	// Directions returns the first leg of the first route between origin
	// and destination for the given travel mode. A response without a
	// usable leg yields (nil, nil), not an error.
	Directions(ctx context.Context, origin, destination string, mode model.TravelMode) (*Leg, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets the requests-per-second limit shared by both APIs.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Google Maps client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(10, 10),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}
