package storage

import (
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/devsecdash/notification-engine/pkg/utils"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	sqlStore
}

// NewPostgresStore creates a new PostgreSQL store instance
func NewPostgresStore(config *StorageConfig) *PostgresStore {
	return &PostgresStore{
		sqlStore: sqlStore{
			config: config,
			logger: utils.GetLogger().WithField("component", "storage_postgres"),
			rebind: rebindPositional,
		},
	}
}

// Connect establishes the database connection
func (s *PostgresStore) Connect() error {
	db, err := sql.Open("postgres", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open PostgreSQL database", err.Error())
	}

	if s.config.MaxConnections > 0 {
		db.SetMaxOpenConns(s.config.MaxConnections)
		db.SetMaxIdleConns(s.config.MaxConnections / 2)
	}
	if s.config.MaxIdleTime > 0 {
		db.SetConnMaxLifetime(s.config.MaxIdleTime)
	}

	if err := db.Ping(); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to connect to PostgreSQL", err.Error())
	}

	s.db = db
	s.logger.Info("PostgreSQL database connected")
	return nil
}
