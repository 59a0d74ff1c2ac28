package travel

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitlab/transit-ratio/internal/model"
	"github.com/transitlab/transit-ratio/pkg/gmaps"
)

// fakeMaps is an in-memory gmaps.Client. Legs are keyed by
// "<destination>|<mode>".
type fakeMaps struct {
	mu            sync.Mutex
	points        map[string]*model.Geopoint
	legs          map[string]*gmaps.Leg
	geocodeErr    error
	directionsErr error
	origins       []string
	destinations  []string

	active    atomic.Int32
	maxActive atomic.Int32
	delay     time.Duration
}

func (f *fakeMaps) Geocode(_ context.Context, address string) (*model.Geopoint, error) {
	if f.geocodeErr != nil {
		return nil, f.geocodeErr
	}
	return f.points[address], nil
}

func (f *fakeMaps) Directions(_ context.Context, origin, destination string, mode model.TravelMode) (*gmaps.Leg, error) {
	cur := f.active.Add(1)
	for {
		peak := f.maxActive.Load()
		if cur <= peak || f.maxActive.CompareAndSwap(peak, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	defer f.active.Add(-1)

	if f.directionsErr != nil {
		return nil, f.directionsErr
	}

	f.mu.Lock()
	f.origins = append(f.origins, origin)
	f.destinations = append(f.destinations, destination)
	f.mu.Unlock()
	return f.legs[destination+"|"+string(mode)], nil
}

func intPtr(v int) *int { return &v }

func TestEvaluate_FillsRowsInOrder(t *testing.T) {
	t.Parallel()

	maps := &fakeMaps{
		points: map[string]*model.Geopoint{
			"Victoria Station, London": {Lat: 51.4952, Lng: -0.1441},
		},
		legs: map[string]*gmaps.Leg{
			"london, United Kingdom|driving":     {DistanceMeters: 4800, DurationSeconds: 600},
			"london, United Kingdom|transit":     {DistanceMeters: 5100, DurationSeconds: 1200},
			"birmingham, United Kingdom|driving": {DistanceMeters: 188000, DurationSeconds: 7200},
			"birmingham, United Kingdom|transit": {DistanceMeters: 190000, DurationSeconds: 5400},
		},
	}

	rows := []model.CityRow{
		{City: "london", Population: 7421228},
		{City: "birmingham", Population: 984333},
	}

	e := NewEvaluator(maps, 2)
	point, err := e.Evaluate(context.Background(), "Victoria Station, London", "United Kingdom", rows)
	require.NoError(t, err)
	require.NotNil(t, point)
	assert.InDelta(t, 51.4952, point.Lat, 1e-6)

	require.Equal(t, "london", rows[0].City)
	assert.Equal(t, intPtr(4800), rows[0].DistanceDriving)
	assert.Equal(t, intPtr(600), rows[0].DurationDriving)
	assert.Equal(t, intPtr(5100), rows[0].DistanceTransit)
	assert.Equal(t, intPtr(1200), rows[0].DurationTransit)
	require.NotNil(t, rows[0].Ratio)
	assert.InDelta(t, 2.0, *rows[0].Ratio, 1e-9)

	require.Equal(t, "birmingham", rows[1].City)
	require.NotNil(t, rows[1].Ratio)
	assert.InDelta(t, 0.75, *rows[1].Ratio, 1e-9)

	assert.Contains(t, maps.destinations, "london, United Kingdom")
	assert.Contains(t, maps.destinations, "birmingham, United Kingdom")
}

func TestEvaluate_SendsOriginAsAddress(t *testing.T) {
	t.Parallel()

	// The geocode validates the origin but must not replace it: the
	// directions endpoint loses transit legs for coordinate-form
	// endpoints, and under the error-to-null policy that loss would be
	// silent.
	maps := &fakeMaps{
		points: map[string]*model.Geopoint{
			"Victoria Station, London": {Lat: 51.4952, Lng: -0.1441},
		},
		legs: map[string]*gmaps.Leg{},
	}

	rows := []model.CityRow{{City: "london"}, {City: "leeds"}}
	e := NewEvaluator(maps, 2)
	_, err := e.Evaluate(context.Background(), "Victoria Station, London", "United Kingdom", rows)
	require.NoError(t, err)

	require.Len(t, maps.origins, 4)
	for _, origin := range maps.origins {
		assert.Equal(t, "Victoria Station, London", origin)
	}
}

func TestEvaluate_InvalidOrigin(t *testing.T) {
	t.Parallel()

	maps := &fakeMaps{points: map[string]*model.Geopoint{}}
	e := NewEvaluator(maps, 1)

	_, err := e.Evaluate(context.Background(), "xyzzy nowhere", "United Kingdom", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	assert.Contains(t, err.Error(), `not a valid origin "xyzzy nowhere"`)
}

func TestEvaluate_GeocodeErrorPropagates(t *testing.T) {
	t.Parallel()

	maps := &fakeMaps{geocodeErr: eris.Wrap(model.ErrDataSource, "boom")}
	e := NewEvaluator(maps, 1)

	_, err := e.Evaluate(context.Background(), "Victoria Station, London", "United Kingdom", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrDataSource)
}

func TestEvaluate_MissingTransitLeavesNilRatio(t *testing.T) {
	t.Parallel()

	maps := &fakeMaps{
		points: map[string]*model.Geopoint{"origin": {Lat: 1, Lng: 2}},
		legs: map[string]*gmaps.Leg{
			"stornoway, United Kingdom|driving": {DistanceMeters: 1000, DurationSeconds: 100},
		},
	}

	rows := []model.CityRow{{City: "stornoway"}}
	e := NewEvaluator(maps, 1)
	_, err := e.Evaluate(context.Background(), "origin", "United Kingdom", rows)
	require.NoError(t, err)

	assert.Equal(t, intPtr(1000), rows[0].DistanceDriving)
	assert.Nil(t, rows[0].DistanceTransit)
	assert.Nil(t, rows[0].DurationTransit)
	assert.Nil(t, rows[0].Ratio)
}

func TestEvaluate_ZeroDrivingDurationLeavesNilRatio(t *testing.T) {
	t.Parallel()

	maps := &fakeMaps{
		points: map[string]*model.Geopoint{"origin": {Lat: 1, Lng: 2}},
		legs: map[string]*gmaps.Leg{
			"london, United Kingdom|driving": {DistanceMeters: 0, DurationSeconds: 0},
			"london, United Kingdom|transit": {DistanceMeters: 500, DurationSeconds: 300},
		},
	}

	rows := []model.CityRow{{City: "london"}}
	e := NewEvaluator(maps, 1)
	_, err := e.Evaluate(context.Background(), "origin", "United Kingdom", rows)
	require.NoError(t, err)

	assert.Nil(t, rows[0].Ratio)
	assert.Equal(t, intPtr(300), rows[0].DurationTransit)
}

func TestEvaluate_DirectionsErrorAborts(t *testing.T) {
	t.Parallel()

	maps := &fakeMaps{
		points:        map[string]*model.Geopoint{"origin": {Lat: 1, Lng: 2}},
		directionsErr: eris.Wrap(model.ErrDataSource, "quota exceeded"),
	}

	rows := []model.CityRow{{City: "london"}, {City: "leeds"}}
	e := NewEvaluator(maps, 2)
	_, err := e.Evaluate(context.Background(), "origin", "United Kingdom", rows)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrDataSource)
}

func TestEvaluate_BoundedConcurrency(t *testing.T) {
	t.Parallel()

	maps := &fakeMaps{
		points: map[string]*model.Geopoint{"origin": {Lat: 1, Lng: 2}},
		legs:   map[string]*gmaps.Leg{},
		delay:  5 * time.Millisecond,
	}

	rows := make([]model.CityRow, 12)
	for i := range rows {
		rows[i] = model.CityRow{City: string(rune('a' + i))}
	}

	e := NewEvaluator(maps, 2)
	_, err := e.Evaluate(context.Background(), "origin", "United Kingdom", rows)
	require.NoError(t, err)

	assert.LessOrEqual(t, maps.maxActive.Load(), int32(2))
}

func TestMeanDistanceKM(t *testing.T) {
	t.Parallel()

	rows := []model.CityRow{
		{DistanceDriving: intPtr(10000), DistanceTransit: intPtr(30000)},
		{DistanceDriving: intPtr(20000)},
		{},
	}

	mean, ok := MeanDistanceKM(rows)
	require.True(t, ok)
	// Driving mean 15 km, transit mean 30 km.
	assert.InDelta(t, 22.5, mean, 1e-9)

	_, ok = MeanDistanceKM(nil)
	assert.False(t, ok)

	_, ok = MeanDistanceKM([]model.CityRow{{DistanceDriving: intPtr(1000)}})
	assert.False(t, ok)
}
