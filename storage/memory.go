package storage

import (
	"sync"
	"time"

	"campustransit.dev/transit/model"
)

// In memory implementation of Storage below

type memoryCacheEntry struct {
	data      []byte
	expiresAt time.Time
}

type MemoryStorage struct {
	mutex       sync.Mutex
	nextID      int64
	Favorites   map[int64]*model.Favorite
	Preferences map[string]string
	Cache       map[string]memoryCacheEntry
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		nextID:      1,
		Favorites:   map[int64]*model.Favorite{},
		Preferences: map[string]string{},
		Cache:       map[string]memoryCacheEntry{},
	}
}

func (s *MemoryStorage) ListFavorites() ([]*model.Favorite, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// IDs are assigned in creation order
	favorites := []*model.Favorite{}
	for id := int64(1); id < s.nextID; id++ {
		if fav, found := s.Favorites[id]; found {
			favorites = append(favorites, copyFavorite(fav))
		}
	}
	return favorites, nil
}

func (s *MemoryStorage) GetFavorite(id int64) (*model.Favorite, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	fav, found := s.Favorites[id]
	if !found {
		return nil, ErrNotFound
	}
	return copyFavorite(fav), nil
}

func (s *MemoryStorage) CreateFavorite(fav *model.Favorite) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	fav.ID = s.nextID
	fav.PriorityMode = defaultPriorityMode(fav.PriorityMode)
	s.nextID++
	s.Favorites[fav.ID] = copyFavorite(fav)
	return nil
}

func (s *MemoryStorage) UpdateFavorite(fav *model.Favorite) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	existing, found := s.Favorites[fav.ID]
	if !found {
		return ErrNotFound
	}

	updated := copyFavorite(fav)
	updated.CreatedAt = existing.CreatedAt
	updated.PriorityMode = defaultPriorityMode(updated.PriorityMode)
	s.Favorites[fav.ID] = updated
	return nil
}

func (s *MemoryStorage) DeleteFavorite(id int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, found := s.Favorites[id]; !found {
		return ErrNotFound
	}
	delete(s.Favorites, id)
	return nil
}

func (s *MemoryStorage) GetPreference(key string) (string, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	value, found := s.Preferences[key]
	return value, found, nil
}

func (s *MemoryStorage) SetPreference(key string, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Preferences[key] = value
	return nil
}

func (s *MemoryStorage) DeletePreference(key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.Preferences, key)
	return nil
}

func (s *MemoryStorage) CacheGet(key string, now time.Time) ([]byte, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, found := s.Cache[key]
	if !found || !now.Before(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.data, true, nil
}

func (s *MemoryStorage) CacheSet(key string, data []byte, expiresAt time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Cache[key] = memoryCacheEntry{data: data, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStorage) CacheDelete(key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.Cache, key)
	return nil
}

func (s *MemoryStorage) ClearExpired(now time.Time) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	n := 0
	for key, entry := range s.Cache {
		if !now.Before(entry.expiresAt) {
			delete(s.Cache, key)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
