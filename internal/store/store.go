package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/transitlab/transit-ratio/internal/model"
)

// Latest selects the most recently updated session instead of a specific ID.
const Latest = "latest"

// ErrNotFound is returned by GetSession when no session matches.
var ErrNotFound = eris.New("store: session not found")

// SessionFilter specifies criteria for listing sessions.
type SessionFilter struct {
	Country string `json:"country,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for analysis sessions.
//
// GetSession accepts a session ID or Latest and returns the session with
// its full city table. ListSessions returns session headers only, without
// city rows. SaveCities and SaveTravel both replace the stored city table
// wholesale with the rows on the session.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, country, countryName string, percentile float64) (*model.Session, error)
	GetSession(ctx context.Context, id string) (*model.Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error)
	SaveCities(ctx context.Context, sess *model.Session) error
	SaveTravel(ctx context.Context, sess *model.Session) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
