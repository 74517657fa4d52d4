package preferences

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/devsecdash/notification-engine/internal/models"
	"github.com/devsecdash/notification-engine/internal/storage"
	"github.com/devsecdash/notification-engine/pkg/utils"
)

// PersistentStore backs the preference store with durable storage while
// keeping a read cache in memory. Router contracts are unchanged: unknown
// users still resolve to defaults.
type PersistentStore struct {
	cache  *MemoryStore
	store  storage.Store
	logger *logrus.Entry
}

// NewPersistentStore creates a preference store backed by the given storage
func NewPersistentStore(store storage.Store) *PersistentStore {
	return &PersistentStore{
		cache:  NewMemoryStore(),
		store:  store,
		logger: utils.GetLogger().WithField("component", "preferences"),
	}
}

// Get returns preferences from cache, then storage, then defaults
func (s *PersistentStore) Get(userID string) *models.UserPreferences {
	s.cache.mu.RLock()
	prefs, ok := s.cache.users[userID]
	s.cache.mu.RUnlock()
	if ok {
		return prefs
	}

	stored, err := s.store.GetPreferences(context.Background(), userID)
	if err == nil {
		s.cache.mu.Lock()
		s.cache.users[userID] = stored
		s.cache.mu.Unlock()
		return stored
	}

	// A missing row is the normal first-contact case. Anything else is a
	// storage fault worth surfacing; defaults keep delivery available.
	var appErr *utils.AppError
	if !errors.As(err, &appErr) || appErr.Code != utils.ErrCodeNotFound {
		s.logger.WithError(err).WithField("user_id", userID).
			Warn("Preference lookup failed, serving defaults")
	}

	return Defaults(userID)
}

// Upsert validates, persists, and caches the preferences
func (s *PersistentStore) Upsert(prefs *models.UserPreferences) error {
	if err := Validate(prefs); err != nil {
		return err
	}

	if err := s.store.SavePreferences(context.Background(), prefs); err != nil {
		return err
	}

	s.cache.mu.Lock()
	s.cache.users[prefs.UserID] = prefs
	s.cache.mu.Unlock()
	return nil
}
