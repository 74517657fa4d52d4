package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devsecdash/notification-engine/internal/models"
)

func testPayload() *models.NotificationPayload {
	return &models.NotificationPayload{
		ID:           "n-1",
		Type:         models.NotificationTypeSecurityAlert,
		Priority:     models.PriorityHigh,
		Title:        "Critical dependency vulnerability",
		Message:      "CVE-2026-1234 found in production image",
		Organization: "acme",
		Metadata: map[string]interface{}{
			"severity": 8.5,
			"repo":     "acme/api-server",
			"scanner": map[string]interface{}{
				"name": "trivy",
			},
		},
	}
}

func TestAddAndRemoveRule(t *testing.T) {
	set := NewSet()

	rule := &models.NotificationRule{
		ID:      "r-1",
		Name:    "security alerts",
		Enabled: true,
		Type:    models.NotificationTypeSecurityAlert,
	}
	require.NoError(t, set.AddRule(rule))
	assert.Len(t, set.ListRules(), 1)

	assert.True(t, set.RemoveRule("r-1"))
	assert.False(t, set.RemoveRule("r-1"))
	assert.Empty(t, set.ListRules())
}

func TestAddRuleRejectsMalformedConfiguration(t *testing.T) {
	set := NewSet()

	cases := []struct {
		name string
		rule *models.NotificationRule
	}{
		{"missing id", &models.NotificationRule{Type: models.NotificationTypeSecurityAlert}},
		{"unknown type", &models.NotificationRule{ID: "r", Type: "bogus"}},
		{"unknown operator", &models.NotificationRule{
			ID: "r", Type: models.NotificationTypeSecurityAlert,
			Conditions: []models.RuleCondition{{Field: "title", Operator: "regex", Value: "x"}},
		}},
		{"empty condition field", &models.NotificationRule{
			ID: "r", Type: models.NotificationTypeSecurityAlert,
			Conditions: []models.RuleCondition{{Operator: models.OperatorEquals, Value: "x"}},
		}},
		{"escalation without channels", &models.NotificationRule{
			ID: "r", Type: models.NotificationTypeSecurityAlert,
			Escalation: &models.EscalationConfig{Enabled: true, DelayMinutes: 5, MaxEscalations: 2},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := set.AddRule(tc.rule)
			require.Error(t, err)
		})
	}
}

func TestMatchByTypeAndEnabledFlag(t *testing.T) {
	set := NewSet()

	require.NoError(t, set.AddRule(&models.NotificationRule{
		ID: "enabled", Enabled: true, Type: models.NotificationTypeSecurityAlert,
	}))
	require.NoError(t, set.AddRule(&models.NotificationRule{
		ID: "disabled", Enabled: false, Type: models.NotificationTypeSecurityAlert,
	}))
	require.NoError(t, set.AddRule(&models.NotificationRule{
		ID: "other-type", Enabled: true, Type: models.NotificationTypeScanCompleted,
	}))

	matched := set.Match(testPayload())
	require.Len(t, matched, 1)
	assert.Equal(t, "enabled", matched[0].ID)
}

func TestMatchConditionOperators(t *testing.T) {
	payload := testPayload()

	cases := []struct {
		name    string
		cond    models.RuleCondition
		matches bool
	}{
		{"equals string", models.RuleCondition{Field: "organization", Operator: models.OperatorEquals, Value: "acme"}, true},
		{"equals mismatch", models.RuleCondition{Field: "organization", Operator: models.OperatorEquals, Value: "other"}, false},
		{"greater_than metadata", models.RuleCondition{Field: "metadata.severity", Operator: models.OperatorGreaterThan, Value: 7.0}, true},
		{"greater_than fails", models.RuleCondition{Field: "metadata.severity", Operator: models.OperatorGreaterThan, Value: 9.0}, false},
		{"less_than metadata", models.RuleCondition{Field: "metadata.severity", Operator: models.OperatorLessThan, Value: 9.0}, true},
		{"contains title", models.RuleCondition{Field: "title", Operator: models.OperatorContains, Value: "vulnerability"}, true},
		{"contains mismatch", models.RuleCondition{Field: "title", Operator: models.OperatorContains, Value: "zzz"}, false},
		{"nested metadata path", models.RuleCondition{Field: "metadata.scanner.name", Operator: models.OperatorEquals, Value: "trivy"}, true},
		{"bare metadata key", models.RuleCondition{Field: "repo", Operator: models.OperatorContains, Value: "api-server"}, true},
		{"missing field never matches", models.RuleCondition{Field: "metadata.nope", Operator: models.OperatorEquals, Value: "x"}, false},
		{"numeric equals across types", models.RuleCondition{Field: "metadata.severity", Operator: models.OperatorEquals, Value: "8.5"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set := NewSet()
			require.NoError(t, set.AddRule(&models.NotificationRule{
				ID: "r", Enabled: true, Type: payload.Type,
				Conditions: []models.RuleCondition{tc.cond},
			}))

			matched := set.Match(payload)
			if tc.matches {
				assert.Len(t, matched, 1)
			} else {
				assert.Empty(t, matched)
			}
		})
	}
}

func TestConditionConjunctionShortCircuits(t *testing.T) {
	set := NewSet()
	payload := testPayload()

	require.NoError(t, set.AddRule(&models.NotificationRule{
		ID: "r", Enabled: true, Type: payload.Type,
		Conditions: []models.RuleCondition{
			{Field: "organization", Operator: models.OperatorEquals, Value: "acme"},
			{Field: "metadata.severity", Operator: models.OperatorGreaterThan, Value: 99.0},
		},
	}))

	assert.Empty(t, set.Match(payload))
}

func TestRuleWithNoConditionsAlwaysMatchesItsType(t *testing.T) {
	set := NewSet()
	payload := testPayload()

	require.NoError(t, set.AddRule(&models.NotificationRule{
		ID: "r", Enabled: true, Type: payload.Type,
	}))

	assert.Len(t, set.Match(payload), 1)
}

func TestMatchPreservesInsertionOrder(t *testing.T) {
	set := NewSet()
	payload := testPayload()

	for _, id := range []string{"first", "second", "third"} {
		require.NoError(t, set.AddRule(&models.NotificationRule{
			ID: id, Enabled: true, Type: payload.Type,
		}))
	}

	matched := set.Match(payload)
	require.Len(t, matched, 3)
	assert.Equal(t, "first", matched[0].ID)
	assert.Equal(t, "third", matched[2].ID)
}
