package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/devsecdash/notification-engine/internal/models"
)

// resolveField looks up a dotted field path against the payload and its
// metadata. Top-level names map to payload attributes; "metadata.x.y"
// descends into the metadata map.
func resolveField(payload *models.NotificationPayload, field string) (interface{}, bool) {
	parts := strings.Split(field, ".")

	switch parts[0] {
	case "id":
		return payload.ID, true
	case "type":
		return string(payload.Type), true
	case "priority":
		return string(payload.Priority), true
	case "title":
		return payload.Title, true
	case "message":
		return payload.Message, true
	case "organization":
		return payload.Organization, true
	case "dismissible":
		return payload.Dismissible, true
	case "metadata":
		return resolveMetadata(payload.Metadata, parts[1:])
	}

	// Bare metadata key without the prefix
	return resolveMetadata(payload.Metadata, parts)
}

// resolveMetadata walks nested maps following the remaining path segments
func resolveMetadata(data map[string]interface{}, path []string) (interface{}, bool) {
	if len(path) == 0 || data == nil {
		return nil, false
	}

	current := data
	for i, segment := range path {
		value, exists := current[segment]
		if !exists {
			return nil, false
		}
		if i == len(path)-1 {
			return value, true
		}
		next, ok := value.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current = next
	}

	return nil, false
}

// evaluateCondition checks one condition against the payload. A missing
// field never matches.
func evaluateCondition(payload *models.NotificationPayload, cond models.RuleCondition) bool {
	actual, exists := resolveField(payload, cond.Field)
	if !exists {
		return false
	}

	switch cond.Operator {
	case models.OperatorEquals:
		return compareEquals(actual, cond.Value)
	case models.OperatorGreaterThan:
		a, aok := toFloat(actual)
		b, bok := toFloat(cond.Value)
		return aok && bok && a > b
	case models.OperatorLessThan:
		a, aok := toFloat(actual)
		b, bok := toFloat(cond.Value)
		return aok && bok && a < b
	case models.OperatorContains:
		return strings.Contains(toString(actual), toString(cond.Value))
	}

	return false
}

// compareEquals compares numerically when both sides are numeric, otherwise
// by string form
func compareEquals(actual, expected interface{}) bool {
	if a, aok := toFloat(actual); aok {
		if b, bok := toFloat(expected); bok {
			return a == b
		}
	}
	return toString(actual) == toString(expected)
}

// toFloat converts numeric values (including numeric strings) to float64
func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toString(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}
