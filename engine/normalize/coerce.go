package normalize

import (
	"strconv"
	"strings"
)

// Coerce converts one raw field value into a canonical scalar: string,
// float64, or nil. Empty input always yields nil so tabular exports stay
// rectangular with explicit nulls.
type Coerce func(string) any

// AsString passes the value through, mapping empty to nil.
func AsString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// AsNumber parses a numeric value; an unparseable non-empty value is kept as
// the original string rather than silently discarded.
func AsNumber(s string) any {
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f
	}
	return s
}

// parseCapacity splits a rating like "5000 kW", "3.5 MW", or "1200" into a
// numeric value and a unit. No unit conversion is applied; the unit travels
// alongside the value.
func parseCapacity(s string) (float64, string, bool) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 || len(fields) > 2 {
		return 0, "", false
	}
	val, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", "."), 64)
	if err != nil {
		return 0, "", false
	}
	unit := ""
	if len(fields) == 2 {
		unit = fields[1]
		switch strings.ToLower(unit) {
		case "w", "kw", "mw", "gw", "kva", "mva":
		default:
			return 0, "", false
		}
	}
	return val, unit, true
}

// CapacityValue extracts the numeric part of a capacity field; when the field
// is unparseable the original string is kept (policy: never drop the value).
func CapacityValue(field string) func(map[string]string) any {
	return func(fields map[string]string) any {
		raw := fields[field]
		if raw == "" {
			return nil
		}
		if val, _, ok := parseCapacity(raw); ok {
			return val
		}
		return raw
	}
}

// CapacityUnit extracts the unit part of a capacity field; nil when the field
// is absent, unparseable, or a bare number.
func CapacityUnit(field string) func(map[string]string) any {
	return func(fields map[string]string) any {
		if _, unit, ok := parseCapacity(fields[field]); ok && unit != "" {
			return unit
		}
		return nil
	}
}

// ConstWhen returns value when the trigger field is non-empty, nil otherwise.
// Used for implied units such as the power-plant database's megawatts.
func ConstWhen(field, value string) func(map[string]string) any {
	return func(fields map[string]string) any {
		if fields[field] == "" {
			return nil
		}
		return value
	}
}

// slugify builds a stable id fragment from a free-text name.
func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
