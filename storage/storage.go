package storage

import (
	"errors"
	"time"

	"campustransit.dev/transit/model"
)

var ErrNotFound = errors.New("not found")

// Persistence for user data and for blobs that outlive a process.
type Storage interface {
	// Favorites, ordered by creation.
	ListFavorites() ([]*model.Favorite, error)

	// Returns ErrNotFound if there's no such favorite.
	GetFavorite(id int64) (*model.Favorite, error)

	// Inserts a favorite. The assigned ID is written back to fav.
	CreateFavorite(fav *model.Favorite) error

	// Replaces all fields of an existing favorite except
	// CreatedAt. Returns ErrNotFound if there's no such
	// favorite.
	UpdateFavorite(fav *model.Favorite) error

	// Returns ErrNotFound if there's no such favorite.
	DeleteFavorite(id int64) error

	// Key-value preferences. The boolean is false for unknown
	// keys.
	GetPreference(key string) (string, bool, error)
	SetPreference(key string, value string) error
	DeletePreference(key string) error

	// TTL key-value store. Entries expiring at or before now are
	// treated as absent.
	CacheGet(key string, now time.Time) ([]byte, bool, error)
	CacheSet(key string, data []byte, expiresAt time.Time) error
	CacheDelete(key string) error

	// Removes expired entries, returning how many were dropped.
	ClearExpired(now time.Time) (int, error)

	Close() error
}

// Returns a deep copy, so callers can't mutate stored records.
func copyFavorite(fav *model.Favorite) *model.Favorite {
	c := *fav
	c.PreferredRoutes = append([]string{}, fav.PreferredRoutes...)
	return &c
}

func defaultPriorityMode(mode model.PriorityMode) model.PriorityMode {
	if mode == "" {
		return model.PriorityTime
	}
	return mode
}
