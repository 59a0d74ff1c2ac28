package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/transitlab/transit-ratio/internal/db"
	"github.com/transitlab/transit-ratio/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_session":        `INSERT INTO sessions (id, country, country_name, percentile, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"get_session":           `SELECT id, country, country_name, percentile, origin, origin_lat, origin_lng, created_at, updated_at FROM sessions WHERE id = $1`,
	"update_session_cities": `UPDATE sessions SET country = $1, country_name = $2, percentile = $3, updated_at = $4 WHERE id = $5`,
	"update_session_travel": `UPDATE sessions SET origin = $1, origin_lat = $2, origin_lng = $3, updated_at = $4 WHERE id = $5`,
	"delete_session_cities": `DELETE FROM session_cities WHERE session_id = $1`,
	"load_session_cities":   `SELECT city, population, lat, lng, distance_driving, duration_driving, distance_transit, duration_transit, ratio FROM session_cities WHERE session_id = $1 ORDER BY position`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for use by subsystems that
// need direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	country      TEXT NOT NULL,
	country_name TEXT NOT NULL,
	percentile   DOUBLE PRECISION NOT NULL,
	origin       TEXT NOT NULL DEFAULT '',
	origin_lat   DOUBLE PRECISION,
	origin_lng   DOUBLE PRECISION,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS session_cities (
	session_id       TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	position         INTEGER NOT NULL,
	city             TEXT NOT NULL,
	population       BIGINT NOT NULL,
	lat              DOUBLE PRECISION NOT NULL,
	lng              DOUBLE PRECISION NOT NULL,
	geom             BYTEA,
	distance_driving INTEGER,
	duration_driving INTEGER,
	distance_transit INTEGER,
	duration_transit INTEGER,
	ratio            DOUBLE PRECISION,
	PRIMARY KEY (session_id, position)
);

CREATE INDEX IF NOT EXISTS idx_sessions_country ON sessions(country);
CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, country, countryName string, percentile float64) (*model.Session, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, country, country_name, percentile, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, country, countryName, percentile, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert session")
	}

	return &model.Session{
		ID:          id,
		Country:     country,
		CountryName: countryName,
		Percentile:  percentile,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	query := `SELECT id, country, country_name, percentile, origin, origin_lat, origin_lng, created_at, updated_at FROM sessions WHERE id = $1`
	args := []any{id}
	if id == Latest {
		query = `SELECT id, country, country_name, percentile, origin, origin_lat, origin_lng, created_at, updated_at FROM sessions ORDER BY updated_at DESC LIMIT 1`
		args = nil
	}

	var sess model.Session
	var originLat, originLng *float64

	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&sess.ID, &sess.Country, &sess.CountryName, &sess.Percentile,
		&sess.Origin, &originLat, &originLng, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get session %s", id)
	}
	if originLat != nil && originLng != nil {
		sess.OriginGeopoint = &model.Geopoint{Lat: *originLat, Lng: *originLng}
	}

	if err := s.loadCities(ctx, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error) {
	query := `SELECT id, country, country_name, percentile, origin, origin_lat, origin_lng, created_at, updated_at FROM sessions WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Country != "" {
		query += fmt.Sprintf(` AND country = $%d`, argIdx)
		args = append(args, filter.Country)
		argIdx++
	}
	query += ` ORDER BY updated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sessions")
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		var originLat, originLng *float64

		if err := rows.Scan(&sess.ID, &sess.Country, &sess.CountryName, &sess.Percentile,
			&sess.Origin, &originLat, &originLng, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan session")
		}
		if originLat != nil && originLng != nil {
			sess.OriginGeopoint = &model.Geopoint{Lat: *originLat, Lng: *originLng}
		}
		sessions = append(sessions, sess)
	}
	return sessions, eris.Wrap(rows.Err(), "postgres: list sessions iterate")
}

func (s *PostgresStore) SaveCities(ctx context.Context, sess *model.Session) error {
	now := time.Now().UTC()

	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET country = $1, country_name = $2, percentile = $3, updated_at = $4 WHERE id = $5`,
		sess.Country, sess.CountryName, sess.Percentile, now, sess.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update session %s", sess.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("session not found: %s", sess.ID)
	}

	if err := s.replaceCities(ctx, sess.ID, sess.Cities); err != nil {
		return err
	}
	sess.UpdatedAt = now
	return nil
}

func (s *PostgresStore) SaveTravel(ctx context.Context, sess *model.Session) error {
	now := time.Now().UTC()

	var originLat, originLng *float64
	if sess.OriginGeopoint != nil {
		originLat, originLng = &sess.OriginGeopoint.Lat, &sess.OriginGeopoint.Lng
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET origin = $1, origin_lat = $2, origin_lng = $3, updated_at = $4 WHERE id = $5`,
		sess.Origin, originLat, originLng, now, sess.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update session travel %s", sess.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("session not found: %s", sess.ID)
	}

	if err := s.replaceCities(ctx, sess.ID, sess.Cities); err != nil {
		return err
	}
	sess.UpdatedAt = now
	return nil
}

// sessionCityColumns is the COPY column order for replaceCities.
var sessionCityColumns = []string{
	"session_id", "position", "city", "population", "lat", "lng", "geom",
	"distance_driving", "duration_driving", "distance_transit", "duration_transit", "ratio",
}

func (s *PostgresStore) replaceCities(ctx context.Context, sessionID string, cities []model.CityRow) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM session_cities WHERE session_id = $1`, sessionID,
	); err != nil {
		return eris.Wrapf(err, "postgres: clear cities for session %s", sessionID)
	}

	rows := make([][]any, 0, len(cities))
	for i, c := range cities {
		g, err := encodeCityGeom(c.Geopoint)
		if err != nil {
			return err
		}
		rows = append(rows, []any{
			sessionID, i, c.City, c.Population, c.Geopoint.Lat, c.Geopoint.Lng, g,
			c.DistanceDriving, c.DurationDriving, c.DistanceTransit, c.DurationTransit, c.Ratio,
		})
	}

	_, err := db.CopyFrom(ctx, s.pool, "session_cities", sessionCityColumns, rows)
	return err
}

func (s *PostgresStore) loadCities(ctx context.Context, sess *model.Session) error {
	rows, err := s.pool.Query(ctx,
		`SELECT city, population, lat, lng, distance_driving, duration_driving, distance_transit, duration_transit, ratio FROM session_cities WHERE session_id = $1 ORDER BY position`,
		sess.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: load cities for session %s", sess.ID)
	}
	defer rows.Close()

	for rows.Next() {
		var c model.CityRow
		if err := rows.Scan(&c.City, &c.Population, &c.Geopoint.Lat, &c.Geopoint.Lng,
			&c.DistanceDriving, &c.DurationDriving, &c.DistanceTransit, &c.DurationTransit, &c.Ratio); err != nil {
			return eris.Wrap(err, "postgres: scan city")
		}
		sess.Cities = append(sess.Cities, c)
	}
	return eris.Wrap(rows.Err(), "postgres: cities iterate")
}

// encodeCityGeom renders a city's coordinates as an EWKB point with SRID
// 4326, so the bytea column can be cast straight to a PostGIS geometry.
func encodeCityGeom(p model.Geopoint) ([]byte, error) {
	g := geom.NewPointFlat(geom.XY, []float64{p.Lng, p.Lat}).SetSRID(4326)
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: encode city geom")
	}
	return data, nil
}
