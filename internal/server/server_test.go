package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devsecdash/notification-engine/internal/channel"
	"github.com/devsecdash/notification-engine/internal/models"
	"github.com/devsecdash/notification-engine/internal/preferences"
	"github.com/devsecdash/notification-engine/internal/router"
)

type serverFixture struct {
	server  *HTTPServer
	service *router.Service
	email   *channel.MockChannel
}

func newTestServer(t *testing.T) *serverFixture {
	t.Helper()

	service := router.NewService(nil, preferences.NewMemoryStore(), nil)
	require.NoError(t, service.Start(context.Background()))
	t.Cleanup(func() { _ = service.Stop() })

	email := channel.NewMockChannel("email", 0, 0)
	service.RegisterChannel(email)

	server := NewHTTPServer(&ServerConfig{
		Port:          0,
		EnableMetrics: true,
		EnableHealth:  true,
	}, service)

	return &serverFixture{server: server, service: service, email: email}
}

func (f *serverFixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["healthy"])

	require.NoError(t, f.service.Stop())
	rec = f.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSendNotificationEndpoint(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(http.MethodPost, "/api/v1/notifications", map[string]interface{}{
		"payload": map[string]interface{}{
			"type":     "security_alert",
			"priority": "critical",
			"title":    "Intrusion detected",
			"message":  "Unexpected login from new location",
		},
		"recipients": []string{"user1"},
		"channels":   []string{"email"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Deliveries []*models.NotificationDelivery `json:"deliveries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Deliveries, 1)
	assert.Equal(t, models.DeliveryStatusDelivered, body.Deliveries[0].Status)
	assert.Equal(t, 1, f.email.DeliveredCount())
}

func TestSendNotificationRejectsBadInput(t *testing.T) {
	f := newTestServer(t)

	// Malformed JSON
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications",
		bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown notification type
	rec = f.do(http.MethodPost, "/api/v1/notifications", map[string]interface{}{
		"payload": map[string]interface{}{
			"type": "bogus", "priority": "high", "title": "t",
		},
		"recipients": []string{"user1"},
		"channels":   []string{"email"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unregistered channel
	rec = f.do(http.MethodPost, "/api/v1/notifications", map[string]interface{}{
		"payload": map[string]interface{}{
			"type": "security_alert", "priority": "high", "title": "t",
		},
		"recipients": []string{"user1"},
		"channels":   []string{"pager"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreferencesEndpoints(t *testing.T) {
	f := newTestServer(t)

	// Unknown users get defaults
	rec := f.do(http.MethodGet, "/api/v1/preferences/user1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var prefs models.UserPreferences
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prefs))
	assert.Equal(t, "user1", prefs.UserID)
	assert.True(t, prefs.ChannelEnabled("email"))

	// Update and read back
	prefs.Channels["slack"] = &models.ChannelPreference{Enabled: true, Address: "#alerts"}
	rec = f.do(http.MethodPut, "/api/v1/preferences/user1", &prefs)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/preferences/user1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prefs))
	assert.True(t, prefs.ChannelEnabled("slack"))

	// Invalid preferences are rejected
	rec = f.do(http.MethodPut, "/api/v1/preferences/user2", map[string]interface{}{
		"types": map[string]interface{}{
			"bogus_type": map[string]interface{}{"enabled": true},
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRuleEndpoints(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(http.MethodPost, "/api/v1/rules", map[string]interface{}{
		"name":    "acme security",
		"enabled": true,
		"type":    "security_alert",
		"conditions": []map[string]interface{}{
			{"field": "organization", "operator": "equals", "value": "acme"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.NotificationRule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	rec = f.do(http.MethodGet, "/api/v1/rules", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Rules []*models.NotificationRule `json:"rules"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Rules, 1)

	// Invalid rules are rejected
	rec = f.do(http.MethodPost, "/api/v1/rules", map[string]interface{}{
		"enabled": true,
		"type":    "bogus",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodDelete, "/api/v1/rules/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodDelete, "/api/v1/rules/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDigestEndpoint(t *testing.T) {
	f := newTestServer(t)

	// scan_completed defaults to daily digest, so the send is diverted
	rec := f.do(http.MethodPost, "/api/v1/notifications", map[string]interface{}{
		"payload": map[string]interface{}{
			"type": "scan_completed", "priority": "low", "title": "Scan finished",
		},
		"recipients": []string{"user1"},
		"channels":   []string{"email"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, f.email.AttemptCount())

	rec = f.do(http.MethodPost, "/api/v1/digests/user1/daily", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var digest models.NotificationDigest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &digest))
	assert.Len(t, digest.Notifications, 1)
	assert.Equal(t, models.DigestStatusPending, digest.Status)

	rec = f.do(http.MethodPost, "/api/v1/digests/user1/fortnightly", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleAndCancelEndpoints(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(http.MethodPost, "/api/v1/notifications/schedule", map[string]interface{}{
		"payload": map[string]interface{}{
			"type": "system_maintenance", "priority": "low", "title": "Maintenance window",
		},
		"recipients": []string{"user1"},
		"channels":   []string{"email"},
		"send_at":    "2030-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var scheduled struct {
		ScheduleID string `json:"schedule_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scheduled))
	require.NotEmpty(t, scheduled.ScheduleID)

	// Missing send_at is a validation error
	rec = f.do(http.MethodPost, "/api/v1/notifications/schedule", map[string]interface{}{
		"payload": map[string]interface{}{
			"type": "system_maintenance", "priority": "low", "title": "t",
		},
		"recipients": []string{"user1"},
		"channels":   []string{"email"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodDelete, "/api/v1/notifications/schedule/"+scheduled.ScheduleID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cancelled models.NotificationDelivery
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.Equal(t, models.DeliveryStatusDismissed, cancelled.Status)

	rec = f.do(http.MethodDelete, "/api/v1/notifications/schedule/"+scheduled.ScheduleID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsAndMetricsEndpoints(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(http.MethodPost, "/api/v1/notifications", map[string]interface{}{
		"payload": map[string]interface{}{
			"type": "security_alert", "priority": "high", "title": "Alert",
		},
		"recipients": []string{"user1"},
		"channels":   []string{"email"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats struct {
		TotalAttempted int64   `json:"total_attempted"`
		TotalSent      int64   `json:"total_sent"`
		DeliveryRate   float64 `json:"delivery_rate"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalAttempted)
	assert.Equal(t, int64(1), stats.TotalSent)
	assert.InDelta(t, 1.0, stats.DeliveryRate, 0.0001)

	rec = f.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "notify_deliveries_total")
}

func TestListDeliveriesWithoutStore(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(http.MethodGet, fmt.Sprintf("/api/v1/deliveries?limit=%d", 10), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Deliveries []*models.NotificationDelivery `json:"deliveries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Deliveries)
}
