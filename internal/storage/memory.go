package storage

import (
	"context"
	"sync"

	"github.com/devsecdash/notification-engine/internal/models"
	"github.com/devsecdash/notification-engine/pkg/utils"
)

// MemoryStore keeps all state in process memory. It is the default backend.
type MemoryStore struct {
	config *StorageConfig

	mu          sync.RWMutex
	preferences map[string]*models.UserPreferences
	rules       map[string]*models.NotificationRule
	ruleOrder   []string
	deliveries  []*models.NotificationDelivery
}

// NewMemoryStore creates an in-memory store
func NewMemoryStore(config *StorageConfig) *MemoryStore {
	if config == nil {
		config = &StorageConfig{}
	}
	if config.MaxDeliveries <= 0 {
		config.MaxDeliveries = 1000
	}
	return &MemoryStore{
		config:      config,
		preferences: make(map[string]*models.UserPreferences),
		rules:       make(map[string]*models.NotificationRule),
	}
}

// Connect is a no-op for the memory store
func (s *MemoryStore) Connect() error { return nil }

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error { return nil }

// Ping is a no-op for the memory store
func (s *MemoryStore) Ping() error { return nil }

// Migrate is a no-op for the memory store
func (s *MemoryStore) Migrate() error { return nil }

// SavePreferences stores preferences for a user
func (s *MemoryStore) SavePreferences(ctx context.Context, prefs *models.UserPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferences[prefs.UserID] = prefs
	return nil
}

// GetPreferences returns the stored preferences for a user
func (s *MemoryStore) GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefs, ok := s.preferences[userID]
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Preferences not found", userID)
	}
	return prefs, nil
}

// SaveRule stores a rule
func (s *MemoryStore) SaveRule(ctx context.Context, rule *models.NotificationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.ID]; !exists {
		s.ruleOrder = append(s.ruleOrder, rule.ID)
	}
	s.rules[rule.ID] = rule
	return nil
}

// DeleteRule removes a rule
func (s *MemoryStore) DeleteRule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[id]; !exists {
		return utils.NewAppError(utils.ErrCodeNotFound, "Rule not found", id)
	}
	delete(s.rules, id)
	for i, ruleID := range s.ruleOrder {
		if ruleID == id {
			s.ruleOrder = append(s.ruleOrder[:i], s.ruleOrder[i+1:]...)
			break
		}
	}
	return nil
}

// ListRules returns all rules in insertion order
func (s *MemoryStore) ListRules(ctx context.Context) ([]*models.NotificationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]*models.NotificationRule, 0, len(s.ruleOrder))
	for _, id := range s.ruleOrder {
		rules = append(rules, s.rules[id])
	}
	return rules, nil
}

// SaveDelivery appends a delivery record, evicting the oldest beyond the
// retention bound
func (s *MemoryStore) SaveDelivery(ctx context.Context, delivery *models.NotificationDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deliveries = append(s.deliveries, delivery)
	if len(s.deliveries) > s.config.MaxDeliveries {
		s.deliveries = s.deliveries[len(s.deliveries)-s.config.MaxDeliveries:]
	}
	return nil
}

// ListDeliveries returns the most recent delivery records, newest first
func (s *MemoryStore) ListDeliveries(ctx context.Context, limit int) ([]*models.NotificationDelivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.deliveries) {
		limit = len(s.deliveries)
	}

	out := make([]*models.NotificationDelivery, 0, limit)
	for i := len(s.deliveries) - 1; i >= len(s.deliveries)-limit; i-- {
		out = append(out, s.deliveries[i])
	}
	return out, nil
}

// GetStorageStats returns store statistics
func (s *MemoryStore) GetStorageStats(ctx context.Context) (*StorageStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &StorageStats{
		TotalPreferences: int64(len(s.preferences)),
		TotalRules:       int64(len(s.rules)),
		TotalDeliveries:  int64(len(s.deliveries)),
	}, nil
}
