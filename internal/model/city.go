package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// TravelMode is a Google Directions travel mode.
type TravelMode string

const (
	ModeDriving   TravelMode = "driving"
	ModeWalking   TravelMode = "walking"
	ModeBicycling TravelMode = "bicycling"
	ModeTransit   TravelMode = "transit"
)

// Valid reports whether the mode is one the Directions API accepts.
func (m TravelMode) Valid() bool {
	switch m {
	case ModeDriving, ModeWalking, ModeBicycling, ModeTransit:
		return true
	}
	return false
}

// Geopoint is a WGS84 coordinate pair.
type Geopoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String renders the point as "lat,lng", the form the Google APIs accept
// as an origin or destination.
func (g Geopoint) String() string {
	return fmt.Sprintf("%.6f,%.6f", g.Lat, g.Lng)
}

// ParseGeopoint parses a "lat,lng" pair as found in Opendatasoft geopoint
// columns.
func ParseGeopoint(s string) (Geopoint, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Geopoint{}, eris.Errorf("geopoint: want \"lat,lng\", got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Geopoint{}, eris.Wrapf(err, "geopoint: latitude in %q", s)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Geopoint{}, eris.Wrapf(err, "geopoint: longitude in %q", s)
	}
	return Geopoint{Lat: lat, Lng: lng}, nil
}

// CityRow is one city in a session's table. Route columns are nil until
// travel evaluation runs, and stay nil for legs the Directions API could
// not produce. Distances are meters, durations seconds.
type CityRow struct {
	City            string   `json:"city"`
	Population      int      `json:"population"`
	Geopoint        Geopoint `json:"geopoint"`
	DistanceDriving *int     `json:"distance_driving,omitempty"`
	DurationDriving *int     `json:"duration_driving,omitempty"`
	DistanceTransit *int     `json:"distance_transit,omitempty"`
	DurationTransit *int     `json:"duration_transit,omitempty"`
	Ratio           *float64 `json:"ratio,omitempty"`
}

// HasRoutes reports whether travel evaluation produced a defined ratio for
// this row.
func (c CityRow) HasRoutes() bool {
	return c.Ratio != nil
}

// Session is one analysis run: a country's filtered city table plus the
// origin it was evaluated against. Cities is replaced wholesale on each
// retrieval.
type Session struct {
	ID             string    `json:"id"`
	Country        string    `json:"country"`
	CountryName    string    `json:"country_name"`
	Percentile     float64   `json:"percentile"`
	Origin         string    `json:"origin,omitempty"`
	OriginGeopoint *Geopoint `json:"origin_geopoint,omitempty"`
	Cities         []CityRow `json:"cities,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TopCities returns the first min(n, len) rows of the city table. The
// table is population-descending after retrieval, so these are the n most
// populous cities.
func (s *Session) TopCities(n int) []CityRow {
	if n < 0 {
		n = 0
	}
	if n > len(s.Cities) {
		n = len(s.Cities)
	}
	return s.Cities[:n]
}
