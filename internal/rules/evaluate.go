package rules

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/iamjameskeane/realpolitik-sub000/internal/model"
)

// Evaluate runs one condition against one event. Any evaluation problem —
// unknown field, unknown operator, value that won't coerce — is logged and
// treated as a non-match. Fail-closed, never fail-open.
func Evaluate(ev model.Event, c model.Condition) bool {
	fv, ok := fieldValue(ev, c.Field)
	if !ok {
		slog.Warn("condition references unknown field", "field", c.Field)
		return false
	}

	switch c.Operator {
	case model.OpGTE:
		a, aok := toNumber(fv)
		b, bok := toNumber(c.Value)
		return aok && bok && a >= b
	case model.OpLTE:
		a, aok := toNumber(fv)
		b, bok := toNumber(c.Value)
		return aok && bok && a <= b
	case model.OpEq:
		return equals(fv, c.Value)
	case model.OpNeq:
		return !equals(fv, c.Value)
	case model.OpIn:
		list, ok := toStringList(c.Value)
		if !ok {
			// Not a set; degrade to single-value equality.
			return strings.EqualFold(toString(fv), toString(c.Value))
		}
		for _, item := range list {
			if strings.EqualFold(toString(fv), item) {
				return true
			}
		}
		return false
	case model.OpContains:
		return strings.Contains(
			strings.ToLower(toString(fv)),
			strings.ToLower(toString(c.Value)),
		)
	default:
		slog.Warn("unknown condition operator", "operator", c.Operator, "field", c.Field)
		return false
	}
}

// equals compares numerically when the condition value is numeric, otherwise
// case-insensitively as strings.
func equals(fv, cv any) bool {
	if b, ok := numericValue(cv); ok {
		a, aok := toNumber(fv)
		return aok && a == b
	}
	return strings.EqualFold(toString(fv), toString(cv))
}

// fieldValue resolves a condition field against the event. Region falls back
// to a derivation from the location name when the event carries none; country
// is always derived from the location name.
func fieldValue(ev model.Event, field string) (any, bool) {
	switch field {
	case model.FieldSeverity:
		return ev.Severity, true
	case model.FieldSources:
		return ev.SourceCount, true
	case model.FieldCategory:
		return ev.Category, true
	case model.FieldTitle:
		return ev.Title, true
	case model.FieldLocation:
		return ev.LocationName, true
	case model.FieldRegion:
		if ev.Region != "" {
			return ev.Region, true
		}
		return RegionFromLocation(ev.LocationName), true
	case model.FieldCountry:
		return CountryFromLocation(ev.LocationName), true
	default:
		return nil, false
	}
}

// numericValue reports whether v is an actual number (not a numeric string).
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

// toNumber coerces numbers and numeric strings.
func toNumber(v any) (float64, bool) {
	if n, ok := numericValue(v); ok {
		return n, true
	}
	if s, ok := v.(string); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil {
			return n, true
		}
	}
	return 0, false
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// toStringList accepts []string or a JSON-decoded []any of scalars.
func toStringList(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, toString(item))
		}
		return out, true
	}
	return nil, false
}

// ValidField reports whether a condition field is one the evaluator resolves.
func ValidField(field string) bool {
	_, ok := fieldValue(model.Event{}, field)
	return ok
}

// ValidOperator reports whether an operator is one the evaluator implements.
func ValidOperator(op string) bool {
	switch op {
	case model.OpGTE, model.OpLTE, model.OpEq, model.OpNeq, model.OpIn, model.OpContains:
		return true
	}
	return false
}
