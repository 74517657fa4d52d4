package storage

import (
	"strings"

	"github.com/devsecdash/notification-engine/pkg/utils"
)

// NewStore creates a store instance based on configuration
func NewStore(cfg *StorageConfig) (Store, error) {
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = 1000
	}

	switch strings.ToLower(cfg.Type) {
	case "", "memory":
		return NewMemoryStore(cfg), nil
	case "sqlite":
		return NewSQLiteStore(cfg), nil
	case "postgres", "postgresql":
		return NewPostgresStore(cfg), nil
	default:
		return nil, utils.NewAppError(utils.ErrCodeConfiguration,
			"Unsupported storage type", cfg.Type)
	}
}

// ValidateStorageConfig validates storage configuration
func ValidateStorageConfig(cfg *StorageConfig) error {
	storageType := strings.ToLower(cfg.Type)
	switch storageType {
	case "", "memory":
		return nil
	case "sqlite", "postgres", "postgresql":
		if cfg.ConnectionString == "" {
			return utils.NewAppError(utils.ErrCodeConfiguration,
				"Storage connection string is required", cfg.Type)
		}
		return nil
	}
	return utils.NewAppError(utils.ErrCodeConfiguration,
		"Unsupported storage type", "Supported types: memory, sqlite, postgres")
}
