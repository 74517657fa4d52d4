package models

// QuietHours defines a daily window during which a channel stays silent.
// Start and End use the "15:04" wall-clock format; a window may wrap midnight.
type QuietHours struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone"`
}

// ChannelPreference holds per-channel delivery settings for one user
type ChannelPreference struct {
	Enabled    bool        `json:"enabled"`
	Address    string      `json:"address,omitempty"` // override delivery address
	QuietHours *QuietHours `json:"quiet_hours,omitempty"`
}

// TypePreference holds per-notification-type settings for one user
type TypePreference struct {
	Enabled         bool            `json:"enabled"`
	MinPriority     Priority        `json:"min_priority"`
	Digest          bool            `json:"digest"`
	DigestFrequency DigestFrequency `json:"digest_frequency,omitempty"`
}

// GlobalPreference holds user-wide settings
type GlobalPreference struct {
	EnableDigest           bool `json:"enable_digest"`
	MaxNotificationsPerDay int  `json:"max_notifications_per_day"`
	EnableEscalation       bool `json:"enable_escalation"`
}

// UserPreferences aggregates all notification settings for one user
type UserPreferences struct {
	UserID   string                               `json:"user_id"`
	Channels map[string]*ChannelPreference        `json:"channels"`
	Types    map[NotificationType]*TypePreference `json:"types"`
	Global   GlobalPreference                     `json:"global"`
}

// ChannelEnabled reports whether the given channel admits deliveries for this user.
// Unknown channels are disabled.
func (p *UserPreferences) ChannelEnabled(channelID string) bool {
	pref, ok := p.Channels[channelID]
	return ok && pref.Enabled
}

// TypePreferenceFor returns the preference for a notification type, or nil if unset
func (p *UserPreferences) TypePreferenceFor(t NotificationType) *TypePreference {
	return p.Types[t]
}

// AddressFor returns the delivery address for a channel, falling back to the
// user ID when no override is configured
func (p *UserPreferences) AddressFor(channelID string) string {
	if pref, ok := p.Channels[channelID]; ok && pref.Address != "" {
		return pref.Address
	}
	return p.UserID
}
