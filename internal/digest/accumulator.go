// Package digest buffers digest-eligible notifications per user and flushes
// them into digest artifacts on demand.
package digest

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devsecdash/notification-engine/internal/models"
	"github.com/devsecdash/notification-engine/internal/preferences"
	"github.com/devsecdash/notification-engine/pkg/utils"
)

// Accumulator buffers pending notifications per (user, frequency) key.
// Generating a digest atomically snapshots and clears the key.
type Accumulator struct {
	prefs  preferences.Store
	logger *logrus.Entry

	mu      sync.Mutex
	pending map[string][]*models.NotificationPayload
}

// NewAccumulator creates a digest accumulator backed by the given
// preference store
func NewAccumulator(prefs preferences.Store) *Accumulator {
	return &Accumulator{
		prefs:   prefs,
		pending: make(map[string][]*models.NotificationPayload),
		logger:  utils.GetLogger().WithField("component", "digest"),
	}
}

func digestKey(userID string, frequency models.DigestFrequency) string {
	return fmt.Sprintf("%s|%s", userID, frequency)
}

// Accumulate adds a notification to the user's pending set for the type's
// configured frequency. Notifications are only buffered when the user has
// digesting enabled globally and for the notification's type. A payload fanned
// out across several channels for the same user is buffered once.
func (a *Accumulator) Accumulate(userID string, payload *models.NotificationPayload) bool {
	prefs := a.prefs.Get(userID)
	if !prefs.Global.EnableDigest {
		return false
	}

	typePref := prefs.TypePreferenceFor(payload.Type)
	if typePref == nil || !typePref.Enabled || !typePref.Digest {
		return false
	}

	frequency := typePref.DigestFrequency
	if frequency == "" {
		frequency = models.DigestFrequencyDaily
	}

	key := digestKey(userID, frequency)

	a.mu.Lock()
	for _, existing := range a.pending[key] {
		if existing.ID == payload.ID {
			a.mu.Unlock()
			return true
		}
	}
	a.pending[key] = append(a.pending[key], payload)
	count := len(a.pending[key])
	a.mu.Unlock()

	a.logger.WithFields(logrus.Fields{
		"user_id":         userID,
		"notification_id": payload.ID,
		"frequency":       frequency,
		"pending":         count,
	}).Debug("Notification accumulated for digest")

	return true
}

// PendingCount returns how many notifications are buffered for the key
func (a *Accumulator) PendingCount(userID string, frequency models.DigestFrequency) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending[digestKey(userID, frequency)])
}

// Generate snapshots and atomically clears the pending set for
// (userID, frequency), returning a digest in pending state. When the user has
// digesting disabled globally the digest carries an empty notification list
// regardless of accumulated state.
func (a *Accumulator) Generate(userID string, frequency models.DigestFrequency) *models.NotificationDigest {
	digest := &models.NotificationDigest{
		ID:            utils.GenerateID(),
		UserID:        userID,
		Frequency:     frequency,
		GeneratedAt:   time.Now(),
		Status:        models.DigestStatusPending,
		Notifications: []*models.NotificationPayload{},
	}

	if !a.prefs.Get(userID).Global.EnableDigest {
		return digest
	}

	key := digestKey(userID, frequency)

	a.mu.Lock()
	digest.Notifications = a.pending[key]
	if digest.Notifications == nil {
		digest.Notifications = []*models.NotificationPayload{}
	}
	delete(a.pending, key)
	a.mu.Unlock()

	a.logger.WithFields(logrus.Fields{
		"user_id":       userID,
		"frequency":     frequency,
		"digest_id":     digest.ID,
		"notifications": len(digest.Notifications),
	}).Info("Digest generated")

	return digest
}
