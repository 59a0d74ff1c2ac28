package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/transitlab/transit-ratio/internal/cities"
	"github.com/transitlab/transit-ratio/internal/model"
	"github.com/transitlab/transit-ratio/internal/store"
	"github.com/transitlab/transit-ratio/pkg/gmaps"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateSession(ctx context.Context, country, countryName string, percentile float64) (*model.Session, error) {
	args := m.Called(ctx, country, countryName, percentile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockStore) ListSessions(ctx context.Context, filter store.SessionFilter) ([]model.Session, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Session), args.Error(1)
}

func (m *mockStore) SaveCities(ctx context.Context, sess *model.Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

func (m *mockStore) SaveTravel(ctx context.Context, sess *model.Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Retriever Mock ---

type mockRetriever struct {
	mock.Mock
}

func (m *mockRetriever) Retrieve(ctx context.Context, country string, percentile float64) (*cities.Result, error) {
	args := m.Called(ctx, country, percentile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cities.Result), args.Error(1)
}

// --- Evaluator Mock ---

// mockEvaluator is stateful rather than mock.Mock-backed: Evaluate writes
// route columns into its rows argument.
type mockEvaluator struct {
	point      *model.Geopoint
	err        error
	gotOrigin  string
	gotCountry string
	calls      int
}

func (m *mockEvaluator) Evaluate(_ context.Context, origin, countryName string, rows []model.CityRow) (*model.Geopoint, error) {
	m.calls++
	m.gotOrigin = origin
	m.gotCountry = countryName
	if m.err != nil {
		return nil, m.err
	}
	for i := range rows {
		dd, dud, dt, dut := 10000, 600, 12000, 1200
		ratio := 2.0
		rows[i].DistanceDriving, rows[i].DurationDriving = &dd, &dud
		rows[i].DistanceTransit, rows[i].DurationTransit = &dt, &dut
		rows[i].Ratio = &ratio
	}
	return m.point, nil
}

// --- Maps Mock ---

type mockMapsClient struct {
	mock.Mock
}

func (m *mockMapsClient) Geocode(ctx context.Context, address string) (*model.Geopoint, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Geopoint), args.Error(1)
}

func (m *mockMapsClient) Directions(ctx context.Context, origin, destination string, mode model.TravelMode) (*gmaps.Leg, error) {
	args := m.Called(ctx, origin, destination, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gmaps.Leg), args.Error(1)
}

// --- Ensure interface compliance ---

var (
	_ store.Store    = (*mockStore)(nil)
	_ CityRetriever  = (*mockRetriever)(nil)
	_ RouteEvaluator = (*mockEvaluator)(nil)
	_ gmaps.Client   = (*mockMapsClient)(nil)
)
