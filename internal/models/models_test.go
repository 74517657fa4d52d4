package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotificationTypeIsValid(t *testing.T) {
	for _, nt := range []NotificationType{
		NotificationTypeSecurityAlert,
		NotificationTypeComplianceViolation,
		NotificationTypeWorkflowFailure,
		NotificationTypeScanCompleted,
		NotificationTypeRateLimitWarning,
		NotificationTypeSystemMaintenance,
	} {
		assert.True(t, nt.IsValid(), "%s should be valid", nt)
	}

	assert.False(t, NotificationType("").IsValid())
	assert.False(t, NotificationType("bogus").IsValid())
}

func TestPriorityOrdering(t *testing.T) {
	assert.Less(t, PriorityLow.Weight(), PriorityMedium.Weight())
	assert.Less(t, PriorityMedium.Weight(), PriorityHigh.Weight())
	assert.Less(t, PriorityHigh.Weight(), PriorityCritical.Weight())
}

func TestPriorityAtLeast(t *testing.T) {
	cases := []struct {
		p, min Priority
		want   bool
	}{
		{PriorityLow, PriorityLow, true},
		{PriorityLow, PriorityMedium, false},
		{PriorityMedium, PriorityMedium, true},
		{PriorityHigh, PriorityMedium, true},
		{PriorityCritical, PriorityLow, true},
		{PriorityMedium, PriorityCritical, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.p.AtLeast(tc.min), "%s at least %s", tc.p, tc.min)
	}
}

func TestPriorityIsValid(t *testing.T) {
	assert.True(t, PriorityLow.IsValid())
	assert.True(t, PriorityCritical.IsValid())
	assert.False(t, Priority("urgent").IsValid())
	assert.False(t, Priority("").IsValid())
}

func TestDigestFrequencyIsValid(t *testing.T) {
	assert.True(t, DigestFrequencyHourly.IsValid())
	assert.True(t, DigestFrequencyDaily.IsValid())
	assert.True(t, DigestFrequencyWeekly.IsValid())
	assert.False(t, DigestFrequency("fortnightly").IsValid())
}

func TestUserPreferenceHelpers(t *testing.T) {
	prefs := &UserPreferences{
		UserID: "user1",
		Channels: map[string]*ChannelPreference{
			"email": {Enabled: true, Address: "a@b.co"},
			"slack": {Enabled: false, Address: "#alerts"},
		},
		Types: map[NotificationType]*TypePreference{
			NotificationTypeSecurityAlert: {Enabled: true, MinPriority: PriorityHigh},
		},
	}

	assert.True(t, prefs.ChannelEnabled("email"))
	assert.False(t, prefs.ChannelEnabled("slack"))
	assert.False(t, prefs.ChannelEnabled("teams"))

	assert.Equal(t, "a@b.co", prefs.AddressFor("email"))
	// No override configured: fall back to the user ID
	assert.Equal(t, "user1", prefs.AddressFor("teams"))

	assert.NotNil(t, prefs.TypePreferenceFor(NotificationTypeSecurityAlert))
	assert.Nil(t, prefs.TypePreferenceFor(NotificationTypeScanCompleted))
}
