package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/transitlab/transit-ratio/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY,
	country      TEXT NOT NULL,
	country_name TEXT NOT NULL,
	percentile   REAL NOT NULL,
	origin       TEXT NOT NULL DEFAULT '',
	origin_lat   REAL,
	origin_lng   REAL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS session_cities (
	session_id       TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	position         INTEGER NOT NULL,
	city             TEXT NOT NULL,
	population       INTEGER NOT NULL,
	lat              REAL NOT NULL,
	lng              REAL NOT NULL,
	distance_driving INTEGER,
	duration_driving INTEGER,
	distance_transit INTEGER,
	duration_transit INTEGER,
	ratio            REAL,
	PRIMARY KEY (session_id, position)
);

CREATE INDEX IF NOT EXISTS idx_sessions_country ON sessions(country);
CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSession(ctx context.Context, country, countryName string, percentile float64) (*model.Session, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, country, country_name, percentile, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, country, countryName, percentile, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert session")
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

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	const cols = `id, country, country_name, percentile, origin, origin_lat, origin_lng, created_at, updated_at`

	var row *sql.Row
	if id == Latest {
		row = s.db.QueryRowContext(ctx,
			`SELECT `+cols+` FROM sessions ORDER BY updated_at DESC LIMIT 1`)
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT `+cols+` FROM sessions WHERE id = ?`, id)
	}

	sess, err := scanSession(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadCities(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error) {
	query := `SELECT id, country, country_name, percentile, origin, origin_lat, origin_lng, created_at, updated_at FROM sessions WHERE 1=1`
	var args []any

	if filter.Country != "" {
		query += ` AND country = ?`
		args = append(args, filter.Country)
	}
	query += ` ORDER BY updated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, eris.Wrap(rows.Err(), "sqlite: list sessions iterate")
}

func (s *SQLiteStore) SaveCities(ctx context.Context, sess *model.Session) error {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET country = ?, country_name = ?, percentile = ?, updated_at = ? WHERE id = ?`,
		sess.Country, sess.CountryName, sess.Percentile, now, sess.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update session %s", sess.ID)
	}
	if err := checkRowsAffected(res, "session", sess.ID); err != nil {
		return err
	}

	if err := s.replaceCities(ctx, sess.ID, sess.Cities); err != nil {
		return err
	}
	sess.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) SaveTravel(ctx context.Context, sess *model.Session) error {
	now := time.Now().UTC()

	var originLat, originLng any
	if sess.OriginGeopoint != nil {
		originLat, originLng = sess.OriginGeopoint.Lat, sess.OriginGeopoint.Lng
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET origin = ?, origin_lat = ?, origin_lng = ?, updated_at = ? WHERE id = ?`,
		sess.Origin, originLat, originLng, now, sess.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update session travel %s", sess.ID)
	}
	if err := checkRowsAffected(res, "session", sess.ID); err != nil {
		return err
	}

	if err := s.replaceCities(ctx, sess.ID, sess.Cities); err != nil {
		return err
	}
	sess.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) replaceCities(ctx context.Context, sessionID string, cities []model.CityRow) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_cities WHERE session_id = ?`, sessionID,
	); err != nil {
		return eris.Wrapf(err, "sqlite: clear cities for session %s", sessionID)
	}

	for i, c := range cities {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO session_cities (session_id, position, city, population, lat, lng, distance_driving, duration_driving, distance_transit, duration_transit, ratio)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, i, c.City, c.Population, c.Geopoint.Lat, c.Geopoint.Lng,
			c.DistanceDriving, c.DurationDriving, c.DistanceTransit, c.DurationTransit, c.Ratio,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert city %q for session %s", c.City, sessionID)
		}
	}
	return nil
}

func (s *SQLiteStore) loadCities(ctx context.Context, sess *model.Session) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT city, population, lat, lng, distance_driving, duration_driving, distance_transit, duration_transit, ratio
		 FROM session_cities WHERE session_id = ? ORDER BY position`,
		sess.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: load cities for session %s", sess.ID)
	}
	defer rows.Close()

	for rows.Next() {
		var c model.CityRow
		if err := rows.Scan(&c.City, &c.Population, &c.Geopoint.Lat, &c.Geopoint.Lng,
			&c.DistanceDriving, &c.DurationDriving, &c.DistanceTransit, &c.DurationTransit, &c.Ratio); err != nil {
			return eris.Wrap(err, "sqlite: scan city")
		}
		sess.Cities = append(sess.Cities, c)
	}
	return eris.Wrap(rows.Err(), "sqlite: cities iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSession(row scannable) (*model.Session, error) {
	var sess model.Session
	var originLat, originLng sql.NullFloat64

	err := row.Scan(&sess.ID, &sess.Country, &sess.CountryName, &sess.Percentile,
		&sess.Origin, &originLat, &originLng, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan session")
	}
	if originLat.Valid && originLng.Valid {
		sess.OriginGeopoint = &model.Geopoint{Lat: originLat.Float64, Lng: originLng.Float64}
	}
	return &sess, nil
}
