package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"campustransit.dev/transit/model"
)

type PSQLStorage struct {
	db *sql.DB
}

// Creates a new Postgres Storage using the provided connection string.
//
// If clearDB is true, the database will be cleared on startup. You
// probably only want this for testing.
func NewPSQLStorage(connStr string, clearDB bool) (*PSQLStorage, error) {

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if clearDB {
		_, err = db.Exec(`
DROP TABLE IF EXISTS favorites;
DROP TABLE IF EXISTS user_preferences;
DROP TABLE IF EXISTS gtfs_cache;
`)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("clearing db: %w", err)
		}
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS favorites (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    from_stop_id TEXT NOT NULL,
    to_stop_id TEXT NOT NULL,
    preferred_routes TEXT[] NOT NULL DEFAULT '{}',
    priority_mode TEXT NOT NULL DEFAULT 'time',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS user_preferences (
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (key)
);

CREATE TABLE IF NOT EXISTS gtfs_cache (
    key TEXT NOT NULL,
    data BYTEA NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (key)
);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &PSQLStorage{
		db: db,
	}, nil
}

func (s *PSQLStorage) Close() error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close db: %w", err)
	}
	return nil
}

func scanPSQLFavorite(row rowScanner) (*model.Favorite, error) {
	var fav model.Favorite
	var mode string
	routes := []string{}
	err := row.Scan(
		&fav.ID,
		&fav.Name,
		&fav.FromStopID,
		&fav.ToStopID,
		pq.Array(&routes),
		&mode,
		&fav.CreatedAt,
		&fav.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	fav.PriorityMode = model.PriorityMode(mode)
	fav.PreferredRoutes = routes
	return &fav, nil
}

const psqlFavoriteColumns = `
    id,
    name,
    from_stop_id,
    to_stop_id,
    preferred_routes,
    priority_mode,
    created_at,
    updated_at`

func (s *PSQLStorage) ListFavorites() ([]*model.Favorite, error) {
	rows, err := s.db.Query(`SELECT` + psqlFavoriteColumns + `
FROM favorites
ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	defer rows.Close()

	favorites := []*model.Favorite{}
	for rows.Next() {
		fav, err := scanPSQLFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning favorite: %w", err)
		}
		favorites = append(favorites, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating favorites: %w", err)
	}

	return favorites, nil
}

func (s *PSQLStorage) GetFavorite(id int64) (*model.Favorite, error) {
	row := s.db.QueryRow(`SELECT`+psqlFavoriteColumns+`
FROM favorites
WHERE id = $1`, id)

	fav, err := scanPSQLFavorite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting favorite: %w", err)
	}
	return fav, nil
}

func (s *PSQLStorage) CreateFavorite(fav *model.Favorite) error {
	routes := fav.PreferredRoutes
	if routes == nil {
		routes = []string{}
	}
	fav.PriorityMode = defaultPriorityMode(fav.PriorityMode)

	err := s.db.QueryRow(`
INSERT INTO favorites (name, from_stop_id, to_stop_id, preferred_routes, priority_mode, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`,
		fav.Name,
		fav.FromStopID,
		fav.ToStopID,
		pq.Array(routes),
		string(fav.PriorityMode),
		fav.CreatedAt,
		fav.UpdatedAt,
	).Scan(&fav.ID)
	if err != nil {
		return fmt.Errorf("inserting favorite: %w", err)
	}

	return nil
}

func (s *PSQLStorage) UpdateFavorite(fav *model.Favorite) error {
	routes := fav.PreferredRoutes
	if routes == nil {
		routes = []string{}
	}

	res, err := s.db.Exec(`
UPDATE favorites SET
    name = $1,
    from_stop_id = $2,
    to_stop_id = $3,
    preferred_routes = $4,
    priority_mode = $5,
    updated_at = $6
WHERE id = $7`,
		fav.Name,
		fav.FromStopID,
		fav.ToStopID,
		pq.Array(routes),
		string(defaultPriorityMode(fav.PriorityMode)),
		fav.UpdatedAt,
		fav.ID,
	)
	if err != nil {
		return fmt.Errorf("updating favorite: %w", err)
	}

	return requireAffected(res)
}

func (s *PSQLStorage) DeleteFavorite(id int64) error {
	res, err := s.db.Exec(`DELETE FROM favorites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting favorite: %w", err)
	}
	return requireAffected(res)
}

func (s *PSQLStorage) GetPreference(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM user_preferences WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting preference: %w", err)
	}
	return value, true, nil
}

func (s *PSQLStorage) SetPreference(key string, value string) error {
	_, err := s.db.Exec(`
INSERT INTO user_preferences (key, value)
VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("setting preference: %w", err)
	}
	return nil
}

func (s *PSQLStorage) DeletePreference(key string) error {
	_, err := s.db.Exec(`DELETE FROM user_preferences WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("deleting preference: %w", err)
	}
	return nil
}

func (s *PSQLStorage) CacheGet(key string, now time.Time) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRow(`
SELECT data FROM gtfs_cache
WHERE key = $1 AND expires_at > $2`, key, now).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting cache entry: %w", err)
	}
	return data, true, nil
}

func (s *PSQLStorage) CacheSet(key string, data []byte, expiresAt time.Time) error {
	_, err := s.db.Exec(`
INSERT INTO gtfs_cache (key, data, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET
    data = excluded.data,
    expires_at = excluded.expires_at`, key, data, expiresAt)
	if err != nil {
		return fmt.Errorf("setting cache entry: %w", err)
	}
	return nil
}

func (s *PSQLStorage) CacheDelete(key string) error {
	_, err := s.db.Exec(`DELETE FROM gtfs_cache WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}

func (s *PSQLStorage) ClearExpired(now time.Time) (int, error) {
	res, err := s.db.Exec(`DELETE FROM gtfs_cache WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("clearing expired cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting cleared entries: %w", err)
	}
	return int(n), nil
}
