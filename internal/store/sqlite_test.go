package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitlab/transit-ratio/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testCityRows() []model.CityRow {
	ratio := 2.0
	dd, dud := 12000, 900
	dt, dut := 13500, 1800
	return []model.CityRow{
		{
			City:            "london",
			Population:      7421228,
			Geopoint:        model.Geopoint{Lat: 51.514248, Lng: -0.093145},
			DistanceDriving: &dd,
			DurationDriving: &dud,
			DistanceTransit: &dt,
			DurationTransit: &dut,
			Ratio:           &ratio,
		},
		{
			City:       "birmingham",
			Population: 984333,
			Geopoint:   model.Geopoint{Lat: 52.481419, Lng: -1.899983},
		},
	}
}

// --- Sessions ---

func TestSQLite_CreateSession_And_GetSession(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sess, err := st.CreateSession(ctx, "GB", "United Kingdom", 99.5)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "GB", sess.Country)
	assert.Equal(t, 99.5, sess.Percentile)

	fetched, err := st.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, fetched.ID)
	assert.Equal(t, "United Kingdom", fetched.CountryName)
	assert.Empty(t, fetched.Cities)
	assert.Nil(t, fetched.OriginGeopoint)
}

func TestSQLite_GetSession_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetSession(ctx, "nonexistent-session")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_GetSession_Latest(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.CreateSession(ctx, "GB", "United Kingdom", 99.5)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond) // ensure distinct updated_at
	second, err := st.CreateSession(ctx, "FR", "France", 98)
	require.NoError(t, err)

	latest, err := st.GetSession(ctx, Latest)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	// Saving cities bumps updated_at, so the first session becomes latest.
	time.Sleep(10 * time.Millisecond)
	first.Cities = testCityRows()
	require.NoError(t, st.SaveCities(ctx, first))

	latest, err = st.GetSession(ctx, Latest)
	require.NoError(t, err)
	assert.Equal(t, first.ID, latest.ID)
}

func TestSQLite_GetSession_Latest_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetSession(ctx, Latest)
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- SaveCities ---

func TestSQLite_SaveCities_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sess, err := st.CreateSession(ctx, "GB", "United Kingdom", 99.5)
	require.NoError(t, err)

	sess.Cities = testCityRows()
	require.NoError(t, st.SaveCities(ctx, sess))

	fetched, err := st.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Cities, 2)

	london := fetched.Cities[0]
	assert.Equal(t, "london", london.City)
	assert.Equal(t, 7421228, london.Population)
	assert.Equal(t, model.Geopoint{Lat: 51.514248, Lng: -0.093145}, london.Geopoint)
	require.NotNil(t, london.Ratio)
	assert.Equal(t, 2.0, *london.Ratio)
	require.NotNil(t, london.DurationDriving)
	assert.Equal(t, 900, *london.DurationDriving)

	birmingham := fetched.Cities[1]
	assert.Equal(t, "birmingham", birmingham.City)
	assert.Nil(t, birmingham.Ratio)
	assert.Nil(t, birmingham.DistanceDriving)
	assert.Nil(t, birmingham.DurationTransit)
}

func TestSQLite_SaveCities_ReplacesExisting(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sess, err := st.CreateSession(ctx, "GB", "United Kingdom", 99.5)
	require.NoError(t, err)

	sess.Cities = testCityRows()
	require.NoError(t, st.SaveCities(ctx, sess))

	sess.Cities = []model.CityRow{
		{City: "glasgow", Population: 610268, Geopoint: model.Geopoint{Lat: 55.833333, Lng: -4.25}},
	}
	sess.Percentile = 98
	require.NoError(t, st.SaveCities(ctx, sess))

	fetched, err := st.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Cities, 1)
	assert.Equal(t, "glasgow", fetched.Cities[0].City)
	assert.Equal(t, 98.0, fetched.Percentile)
}

func TestSQLite_SaveCities_MissingSession(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sess := &model.Session{ID: "nonexistent", Country: "GB", CountryName: "United Kingdom", Percentile: 99.5}
	err := st.SaveCities(ctx, sess)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
}

// --- SaveTravel ---

func TestSQLite_SaveTravel_PersistsOriginAndRoutes(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sess, err := st.CreateSession(ctx, "GB", "United Kingdom", 99.5)
	require.NoError(t, err)
	sess.Cities = testCityRows()
	require.NoError(t, st.SaveCities(ctx, sess))

	sess.Origin = "Victoria Station, London"
	sess.OriginGeopoint = &model.Geopoint{Lat: 51.4952, Lng: -0.1441}
	ratio := 1.5
	dd, dud, dt, dut := 160000, 5400, 180000, 8100
	sess.Cities[1].DistanceDriving = &dd
	sess.Cities[1].DurationDriving = &dud
	sess.Cities[1].DistanceTransit = &dt
	sess.Cities[1].DurationTransit = &dut
	sess.Cities[1].Ratio = &ratio
	require.NoError(t, st.SaveTravel(ctx, sess))

	fetched, err := st.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Victoria Station, London", fetched.Origin)
	require.NotNil(t, fetched.OriginGeopoint)
	assert.InDelta(t, 51.4952, fetched.OriginGeopoint.Lat, 1e-9)
	require.Len(t, fetched.Cities, 2)
	require.NotNil(t, fetched.Cities[1].Ratio)
	assert.Equal(t, 1.5, *fetched.Cities[1].Ratio)
}

func TestSQLite_SaveTravel_NilOriginGeopoint(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sess, err := st.CreateSession(ctx, "GB", "United Kingdom", 99.5)
	require.NoError(t, err)

	sess.Origin = "somewhere"
	require.NoError(t, st.SaveTravel(ctx, sess))

	fetched, err := st.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "somewhere", fetched.Origin)
	assert.Nil(t, fetched.OriginGeopoint)
}

// --- ListSessions ---

func TestSQLite_ListSessions(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	gb, err := st.CreateSession(ctx, "GB", "United Kingdom", 99.5)
	require.NoError(t, err)
	gb.Cities = testCityRows()
	require.NoError(t, st.SaveCities(ctx, gb))

	_, err = st.CreateSession(ctx, "FR", "France", 98)
	require.NoError(t, err)

	sessions, err := st.ListSessions(ctx, SessionFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	for _, sess := range sessions {
		assert.Empty(t, sess.Cities, "listing returns headers only")
	}
}

func TestSQLite_ListSessions_FilterByCountry(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	gb, err := st.CreateSession(ctx, "GB", "United Kingdom", 99.5)
	require.NoError(t, err)
	_, err = st.CreateSession(ctx, "FR", "France", 98)
	require.NoError(t, err)

	sessions, err := st.ListSessions(ctx, SessionFilter{Country: "GB", Limit: 10})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, gb.ID, sessions[0].ID)
}

func TestSQLite_ListSessions_NewestFirst(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreateSession(ctx, "GB", "United Kingdom", 99.5)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	second, err := st.CreateSession(ctx, "FR", "France", 98)
	require.NoError(t, err)

	sessions, err := st.ListSessions(ctx, SessionFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
}

// --- Migrate ---

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// Migrate was already called in newTestSQLiteStore; calling again should not error.
	err := st.Migrate(ctx)
	require.NoError(t, err)
}
