// Package rules holds the notification rule set and its condition evaluator.
package rules

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/devsecdash/notification-engine/internal/models"
	"github.com/devsecdash/notification-engine/pkg/utils"
)

// Set is an ordered collection of notification rules keyed by ID.
// Reads dominate during sends; configuration calls take the write lock.
type Set struct {
	mu      sync.RWMutex
	rules   map[string]*models.NotificationRule
	ordered []string
	logger  *logrus.Entry
}

// NewSet creates an empty rule set
func NewSet() *Set {
	return &Set{
		rules:  make(map[string]*models.NotificationRule),
		logger: utils.GetLogger().WithField("component", "rules"),
	}
}

// AddRule validates and adds a rule. Malformed rules are rejected
// synchronously with a configuration error.
func (s *Set) AddRule(rule *models.NotificationRule) error {
	if err := ValidateRule(rule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.ID]; !exists {
		s.ordered = append(s.ordered, rule.ID)
	}
	s.rules[rule.ID] = rule

	s.logger.WithFields(logrus.Fields{
		"rule_id": rule.ID,
		"type":    rule.Type,
		"enabled": rule.Enabled,
	}).Info("Notification rule added")

	return nil
}

// RemoveRule deletes a rule by ID and reports whether it existed
func (s *Set) RemoveRule(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[id]; !exists {
		return false
	}

	delete(s.rules, id)
	for i, ruleID := range s.ordered {
		if ruleID == id {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			break
		}
	}

	s.logger.WithField("rule_id", id).Info("Notification rule removed")
	return true
}

// GetRule returns a rule by ID
func (s *Set) GetRule(id string) (*models.NotificationRule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[id]
	return rule, ok
}

// ListRules returns all rules in insertion order
func (s *Set) ListRules() []*models.NotificationRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]*models.NotificationRule, 0, len(s.ordered))
	for _, id := range s.ordered {
		rules = append(rules, s.rules[id])
	}
	return rules
}

// Match selects all enabled rules whose type equals the payload's type and
// whose condition conjunction holds, in insertion order.
func (s *Set) Match(payload *models.NotificationPayload) []*models.NotificationRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.NotificationRule
	for _, id := range s.ordered {
		rule := s.rules[id]
		if !rule.Enabled || rule.Type != payload.Type {
			continue
		}
		if matchesConditions(payload, rule.Conditions) {
			matched = append(matched, rule)
		}
	}
	return matched
}

// matchesConditions evaluates the condition conjunction; no conditions
// always matches.
func matchesConditions(payload *models.NotificationPayload, conditions []models.RuleCondition) bool {
	for _, cond := range conditions {
		if !evaluateCondition(payload, cond) {
			return false
		}
	}
	return true
}

// ValidateRule checks a rule for configuration errors
func ValidateRule(rule *models.NotificationRule) error {
	if rule == nil {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Rule is required")
	}
	if rule.ID == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Rule ID is required")
	}
	if !rule.Type.IsValid() {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Unknown notification type", string(rule.Type))
	}
	if rule.Priority != "" && !rule.Priority.IsValid() {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Unknown priority", string(rule.Priority))
	}

	for i, cond := range rule.Conditions {
		if cond.Field == "" {
			return utils.NewAppError(utils.ErrCodeConfiguration,
				"Condition field is required", fmt.Sprintf("condition %d", i))
		}
		if !cond.Operator.IsValid() {
			return utils.NewAppError(utils.ErrCodeConfiguration,
				"Unknown condition operator", string(cond.Operator))
		}
	}

	if esc := rule.Escalation; esc != nil && esc.Enabled {
		if esc.DelayMinutes <= 0 {
			return utils.NewAppError(utils.ErrCodeConfiguration, "Escalation delay must be positive")
		}
		if esc.MaxEscalations <= 0 {
			return utils.NewAppError(utils.ErrCodeConfiguration, "Max escalations must be positive")
		}
		if len(esc.Channels) == 0 {
			return utils.NewAppError(utils.ErrCodeConfiguration, "Escalation channels are required")
		}
	}

	return nil
}
