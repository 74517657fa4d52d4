// Package storage provides optional durable stores for preferences, rules,
// and delivery history. It sits behind the preference/rule interfaces so the
// router contracts stay persistence-free.
package storage

import (
	"context"
	"time"

	"github.com/devsecdash/notification-engine/internal/models"
)

// Store defines the interface for durable notification-engine state
type Store interface {
	// Connection management
	Connect() error
	Close() error
	Ping() error
	Migrate() error

	// Preference operations
	SavePreferences(ctx context.Context, prefs *models.UserPreferences) error
	GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error)

	// Rule operations
	SaveRule(ctx context.Context, rule *models.NotificationRule) error
	DeleteRule(ctx context.Context, id string) error
	ListRules(ctx context.Context) ([]*models.NotificationRule, error)

	// Delivery history
	SaveDelivery(ctx context.Context, delivery *models.NotificationDelivery) error
	ListDeliveries(ctx context.Context, limit int) ([]*models.NotificationDelivery, error)

	// Statistics
	GetStorageStats(ctx context.Context) (*StorageStats, error)
}

// StorageConfig holds store configuration
type StorageConfig struct {
	Type             string        `json:"type"` // memory, sqlite, postgres
	ConnectionString string        `json:"connection_string"`
	MaxConnections   int           `json:"max_connections"`
	MaxIdleTime      time.Duration `json:"max_idle_time"`
	MaxDeliveries    int           `json:"max_deliveries"` // retention bound for delivery history
}

// StorageStats provides store statistics
type StorageStats struct {
	TotalPreferences int64 `json:"total_preferences"`
	TotalRules       int64 `json:"total_rules"`
	TotalDeliveries  int64 `json:"total_deliveries"`
}
