package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/devsecdash/notification-engine/internal/models"
	"github.com/devsecdash/notification-engine/pkg/utils"
)

// sqlStore implements the Store operations shared by the SQLite and Postgres
// backends. Preferences and rules are stored as JSON documents; deliveries
// get their own columns for querying.
type sqlStore struct {
	db     *sql.DB
	config *StorageConfig
	logger *logrus.Entry

	// rebind converts ?-style placeholders to the driver's syntax
	rebind func(query string) string
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS user_preferences (
		user_id    TEXT PRIMARY KEY,
		data       TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notification_rules (
		id         TEXT PRIMARY KEY,
		position   INTEGER NOT NULL,
		data       TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS deliveries (
		id               TEXT PRIMARY KEY,
		notification_id  TEXT NOT NULL,
		recipient        TEXT NOT NULL,
		channel_id       TEXT NOT NULL,
		status           TEXT NOT NULL,
		attempts         INTEGER NOT NULL,
		error            TEXT,
		delivered_at     TIMESTAMP,
		escalation_level INTEGER NOT NULL,
		created_at       TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deliveries_created_at ON deliveries (created_at)`,
}

// Migrate creates the schema
func (s *sqlStore) Migrate() error {
	for _, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Migration failed", err.Error())
		}
	}
	s.logger.Info("Storage migrations applied")
	return nil
}

// Ping verifies the database connection
func (s *sqlStore) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected")
	}
	if err := s.db.Ping(); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database ping failed", err.Error())
	}
	return nil
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SavePreferences upserts the preference document for a user
func (s *sqlStore) SavePreferences(ctx context.Context, prefs *models.UserPreferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to marshal preferences", err.Error())
	}

	query := s.rebind(`INSERT INTO user_preferences (user_id, data) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET data = excluded.data`)
	if _, err := s.db.ExecContext(ctx, query, prefs.UserID, string(data)); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save preferences", err.Error())
	}
	return nil
}

// GetPreferences loads the preference document for a user
func (s *sqlStore) GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	query := s.rebind(`SELECT data FROM user_preferences WHERE user_id = ?`)

	var data string
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Preferences not found", userID)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to load preferences", err.Error())
	}

	var prefs models.UserPreferences
	if err := json.Unmarshal([]byte(data), &prefs); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeInternal, "Failed to unmarshal preferences", err.Error())
	}
	return &prefs, nil
}

// SaveRule upserts a rule document, preserving insertion order for new rules
func (s *sqlStore) SaveRule(ctx context.Context, rule *models.NotificationRule) error {
	data, err := json.Marshal(rule)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to marshal rule", err.Error())
	}

	query := s.rebind(`INSERT INTO notification_rules (id, position, data)
		VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM notification_rules), ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data`)
	if _, err := s.db.ExecContext(ctx, query, rule.ID, string(data)); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save rule", err.Error())
	}
	return nil
}

// DeleteRule removes a rule by ID
func (s *sqlStore) DeleteRule(ctx context.Context, id string) error {
	query := s.rebind(`DELETE FROM notification_rules WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to delete rule", err.Error())
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return utils.NewAppError(utils.ErrCodeNotFound, "Rule not found", id)
	}
	return nil
}

// ListRules returns all rules in insertion order
func (s *sqlStore) ListRules(ctx context.Context) ([]*models.NotificationRule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM notification_rules ORDER BY position`)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to list rules", err.Error())
	}
	defer rows.Close()

	var rules []*models.NotificationRule
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan rule", err.Error())
		}
		var rule models.NotificationRule
		if err := json.Unmarshal([]byte(data), &rule); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeInternal, "Failed to unmarshal rule", err.Error())
		}
		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}

// SaveDelivery inserts a delivery record
func (s *sqlStore) SaveDelivery(ctx context.Context, delivery *models.NotificationDelivery) error {
	query := s.rebind(`INSERT INTO deliveries
		(id, notification_id, recipient, channel_id, status, attempts, error, delivered_at, escalation_level, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		delivery.ID, delivery.NotificationID, delivery.Recipient, delivery.ChannelID,
		string(delivery.Status), delivery.Attempts, delivery.Error, delivery.DeliveredAt,
		delivery.EscalationLevel, delivery.CreatedAt)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save delivery", err.Error())
	}
	return nil
}

// ListDeliveries returns the most recent delivery records, newest first
func (s *sqlStore) ListDeliveries(ctx context.Context, limit int) ([]*models.NotificationDelivery, error) {
	if limit <= 0 {
		limit = s.config.MaxDeliveries
	}

	query := s.rebind(`SELECT id, notification_id, recipient, channel_id, status, attempts,
		error, delivered_at, escalation_level, created_at
		FROM deliveries ORDER BY created_at DESC LIMIT ?`)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to list deliveries", err.Error())
	}
	defer rows.Close()

	var deliveries []*models.NotificationDelivery
	for rows.Next() {
		var d models.NotificationDelivery
		var status string
		if err := rows.Scan(&d.ID, &d.NotificationID, &d.Recipient, &d.ChannelID, &status,
			&d.Attempts, &d.Error, &d.DeliveredAt, &d.EscalationLevel, &d.CreatedAt); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan delivery", err.Error())
		}
		d.Status = models.DeliveryStatus(status)
		deliveries = append(deliveries, &d)
	}
	return deliveries, rows.Err()
}

// GetStorageStats returns row counts per table
func (s *sqlStore) GetStorageStats(ctx context.Context) (*StorageStats, error) {
	stats := &StorageStats{}
	counts := []struct {
		table string
		dest  *int64
	}{
		{"user_preferences", &stats.TotalPreferences},
		{"notification_rules", &stats.TotalRules},
		{"deliveries", &stats.TotalDeliveries},
	}

	for _, c := range counts {
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", c.table)
		if err := s.db.QueryRowContext(ctx, query).Scan(c.dest); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count rows", err.Error())
		}
	}
	return stats, nil
}

// rebindPositional converts ?-placeholders to $N for Postgres
func rebindPositional(query string) string {
	var builder strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			builder.WriteString(fmt.Sprintf("$%d", n))
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}
