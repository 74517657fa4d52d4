// Package preferences holds per-user notification settings.
package preferences

import (
	"sync"

	"github.com/devsecdash/notification-engine/internal/models"
	"github.com/devsecdash/notification-engine/pkg/utils"
)

// Store provides access to user notification preferences. A persistence
// layer may sit behind this interface without changing router contracts.
type Store interface {
	// Get returns the preferences for a user, falling back to defaults for
	// unknown users
	Get(userID string) *models.UserPreferences
	// Upsert replaces the preferences for a user wholesale
	Upsert(prefs *models.UserPreferences) error
}

// Defaults returns the documented default preferences for a new user:
// email and in-app enabled, digest enabled, security and compliance types
// delivered immediately (non-digest).
func Defaults(userID string) *models.UserPreferences {
	return &models.UserPreferences{
		UserID: userID,
		Channels: map[string]*models.ChannelPreference{
			"email":   {Enabled: true},
			"in_app":  {Enabled: true},
			"slack":   {Enabled: false},
			"teams":   {Enabled: false},
			"webhook": {Enabled: false},
		},
		Types: map[models.NotificationType]*models.TypePreference{
			models.NotificationTypeSecurityAlert: {
				Enabled: true, MinPriority: models.PriorityLow, Digest: false,
			},
			models.NotificationTypeComplianceViolation: {
				Enabled: true, MinPriority: models.PriorityLow, Digest: false,
			},
			models.NotificationTypeWorkflowFailure: {
				Enabled: true, MinPriority: models.PriorityMedium, Digest: false,
			},
			models.NotificationTypeScanCompleted: {
				Enabled: true, MinPriority: models.PriorityLow,
				Digest: true, DigestFrequency: models.DigestFrequencyDaily,
			},
			models.NotificationTypeRateLimitWarning: {
				Enabled: true, MinPriority: models.PriorityMedium,
				Digest: true, DigestFrequency: models.DigestFrequencyDaily,
			},
			models.NotificationTypeSystemMaintenance: {
				Enabled: true, MinPriority: models.PriorityLow,
				Digest: true, DigestFrequency: models.DigestFrequencyWeekly,
			},
		},
		Global: models.GlobalPreference{
			EnableDigest:           true,
			MaxNotificationsPerDay: 50,
			EnableEscalation:       true,
		},
	}
}

// MemoryStore keeps preferences in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*models.UserPreferences
}

// NewMemoryStore creates an empty in-memory preference store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*models.UserPreferences),
	}
}

// Get returns the stored preferences for userID, or defaults if absent
func (s *MemoryStore) Get(userID string) *models.UserPreferences {
	s.mu.RLock()
	prefs, ok := s.users[userID]
	s.mu.RUnlock()

	if ok {
		return prefs
	}
	return Defaults(userID)
}

// Upsert replaces the preferences for a user
func (s *MemoryStore) Upsert(prefs *models.UserPreferences) error {
	if err := Validate(prefs); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[prefs.UserID] = prefs
	return nil
}

// Validate checks preferences for configuration errors
func Validate(prefs *models.UserPreferences) error {
	if prefs == nil || prefs.UserID == "" {
		return utils.NewAppError(utils.ErrCodeValidation, "User ID is required")
	}

	for t, pref := range prefs.Types {
		if !t.IsValid() {
			return utils.NewAppError(utils.ErrCodeValidation, "Unknown notification type", string(t))
		}
		if pref.MinPriority != "" && !pref.MinPriority.IsValid() {
			return utils.NewAppError(utils.ErrCodeValidation, "Unknown priority", string(pref.MinPriority))
		}
		if pref.DigestFrequency != "" && !pref.DigestFrequency.IsValid() {
			return utils.NewAppError(utils.ErrCodeValidation, "Unknown digest frequency", string(pref.DigestFrequency))
		}
	}

	return nil
}
