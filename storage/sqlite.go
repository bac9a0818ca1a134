package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"campustransit.dev/transit/model"
)

type SQLiteConfig struct {
	OnDisk    bool
	Directory string
}

type SQLiteStorage struct {
	SQLiteConfig

	db *sql.DB
}

func NewSQLiteStorage(cfg ...SQLiteConfig) (*SQLiteStorage, error) {
	onDisk := false
	directory := ""
	if len(cfg) > 0 {
		onDisk = cfg[0].OnDisk
		directory = cfg[0].Directory
	}

	sourceName := ":memory:"
	if onDisk {
		sourceName = directory + "/transit.db"
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if !onDisk {
		db.SetMaxOpenConns(1)
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS favorites (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    from_stop_id TEXT NOT NULL,
    to_stop_id TEXT NOT NULL,
    preferred_routes TEXT NOT NULL,
    priority_mode TEXT NOT NULL DEFAULT 'time',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS user_preferences (
    key TEXT NOT NULL,
    value TEXT NOT NULL,
PRIMARY KEY (key)
);

CREATE TABLE IF NOT EXISTS gtfs_cache (
    key TEXT NOT NULL,
    data BLOB NOT NULL,
    expires_at INTEGER NOT NULL,
PRIMARY KEY (key)
);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &SQLiteStorage{
		SQLiteConfig: SQLiteConfig{
			OnDisk:    onDisk,
			Directory: directory,
		},
		db: db,
	}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLiteFavorite(row rowScanner) (*model.Favorite, error) {
	var fav model.Favorite
	var routes string
	var mode string
	err := row.Scan(
		&fav.ID,
		&fav.Name,
		&fav.FromStopID,
		&fav.ToStopID,
		&routes,
		&mode,
		&fav.CreatedAt,
		&fav.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	fav.PriorityMode = model.PriorityMode(mode)
	fav.PreferredRoutes = []string{}
	if routes != "" {
		err = json.Unmarshal([]byte(routes), &fav.PreferredRoutes)
		if err != nil {
			return nil, fmt.Errorf("decoding preferred_routes: %w", err)
		}
	}

	return &fav, nil
}

func encodeRoutes(routes []string) (string, error) {
	if routes == nil {
		routes = []string{}
	}
	buf, err := json.Marshal(routes)
	if err != nil {
		return "", fmt.Errorf("encoding preferred_routes: %w", err)
	}
	return string(buf), nil
}

const sqliteFavoriteColumns = `
    id,
    name,
    from_stop_id,
    to_stop_id,
    preferred_routes,
    priority_mode,
    created_at,
    updated_at`

func (s *SQLiteStorage) ListFavorites() ([]*model.Favorite, error) {
	rows, err := s.db.Query(`SELECT` + sqliteFavoriteColumns + `
FROM favorites
ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	defer rows.Close()

	favorites := []*model.Favorite{}
	for rows.Next() {
		fav, err := scanSQLiteFavorite(rows)
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

func (s *SQLiteStorage) GetFavorite(id int64) (*model.Favorite, error) {
	row := s.db.QueryRow(`SELECT`+sqliteFavoriteColumns+`
FROM favorites
WHERE id = ?`, id)

	fav, err := scanSQLiteFavorite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting favorite: %w", err)
	}
	return fav, nil
}

func (s *SQLiteStorage) CreateFavorite(fav *model.Favorite) error {
	routes, err := encodeRoutes(fav.PreferredRoutes)
	if err != nil {
		return err
	}
	fav.PriorityMode = defaultPriorityMode(fav.PriorityMode)

	res, err := s.db.Exec(`
INSERT INTO favorites (name, from_stop_id, to_stop_id, preferred_routes, priority_mode, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fav.Name,
		fav.FromStopID,
		fav.ToStopID,
		routes,
		string(fav.PriorityMode),
		fav.CreatedAt.UTC(),
		fav.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting favorite: %w", err)
	}

	fav.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting favorite id: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) UpdateFavorite(fav *model.Favorite) error {
	routes, err := encodeRoutes(fav.PreferredRoutes)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
UPDATE favorites SET
    name = ?,
    from_stop_id = ?,
    to_stop_id = ?,
    preferred_routes = ?,
    priority_mode = ?,
    updated_at = ?
WHERE id = ?`,
		fav.Name,
		fav.FromStopID,
		fav.ToStopID,
		routes,
		string(defaultPriorityMode(fav.PriorityMode)),
		fav.UpdatedAt.UTC(),
		fav.ID,
	)
	if err != nil {
		return fmt.Errorf("updating favorite: %w", err)
	}

	return requireAffected(res)
}

func (s *SQLiteStorage) DeleteFavorite(id int64) error {
	res, err := s.db.Exec(`DELETE FROM favorites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting favorite: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) GetPreference(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM user_preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting preference: %w", err)
	}
	return value, true, nil
}

func (s *SQLiteStorage) SetPreference(key string, value string) error {
	_, err := s.db.Exec(`
INSERT INTO user_preferences (key, value)
VALUES (?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("setting preference: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) DeletePreference(key string) error {
	_, err := s.db.Exec(`DELETE FROM user_preferences WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("deleting preference: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CacheGet(key string, now time.Time) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRow(`
SELECT data FROM gtfs_cache
WHERE key = ? AND expires_at > ?`, key, now.UnixNano()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting cache entry: %w", err)
	}
	return data, true, nil
}

func (s *SQLiteStorage) CacheSet(key string, data []byte, expiresAt time.Time) error {
	_, err := s.db.Exec(`
INSERT INTO gtfs_cache (key, data, expires_at)
VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET
    data = excluded.data,
    expires_at = excluded.expires_at`, key, data, expiresAt.UnixNano())
	if err != nil {
		return fmt.Errorf("setting cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CacheDelete(key string) error {
	_, err := s.db.Exec(`DELETE FROM gtfs_cache WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ClearExpired(now time.Time) (int, error) {
	res, err := s.db.Exec(`DELETE FROM gtfs_cache WHERE expires_at <= ?`, now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("clearing expired cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting cleared entries: %w", err)
	}
	return int(n), nil
}
