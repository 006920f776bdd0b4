package intercept

import (
	"strconv"

	"identra/internal/audit"
)

// EntityIdentifiable results name their own audit entity ID. This is the
// typed fast path; map probing below covers loosely-shaped payloads.
type EntityIdentifiable interface {
	AuditEntityID() string
}

// ActorIdentifiable results carry the acting user's ID, e.g. a sign-in
// result.
type ActorIdentifiable interface {
	AuditActorID() string
}

// extractEntityID resolves the entity identifier for an audit entry from a
// success result. Extractors run in order; first non-empty wins:
// typed interface, configured field names on a map payload, then the nested
// user and data.user sub-objects.
func extractEntityID(result any, desc audit.Descriptor) string {
	fields := desc.ResultIDFields
	if len(fields) == 0 {
		fields = audit.DefaultResultIDFields
	}

	if ident, ok := result.(EntityIdentifiable); ok {
		if id := ident.AuditEntityID(); id != "" {
			return id
		}
	}

	payload, ok := result.(map[string]any)
	if !ok {
		return ""
	}

	for _, field := range fields {
		if id := stringifyID(payload[field]); id != "" {
			return id
		}
	}

	for _, user := range []any{payload["user"], nestedValue(payload, "data", "user")} {
		userMap, ok := user.(map[string]any)
		if !ok {
			continue
		}
		for _, field := range []string{"id", "userId"} {
			if id := stringifyID(userMap[field]); id != "" {
				return id
			}
		}
	}

	return ""
}

// extractActorID resolves an actor identifier embedded in a success result,
// e.g. a sign-in response carrying the authenticated user.
func extractActorID(result any) string {
	if ident, ok := result.(ActorIdentifiable); ok {
		if id := ident.AuditActorID(); id != "" {
			return id
		}
	}

	payload, ok := result.(map[string]any)
	if !ok {
		return ""
	}

	if id := stringifyID(payload["userId"]); id != "" {
		return id
	}

	for _, user := range []any{payload["user"], nestedValue(payload, "data", "user")} {
		userMap, ok := user.(map[string]any)
		if !ok {
			continue
		}
		for _, field := range []string{"id", "userId"} {
			if id := stringifyID(userMap[field]); id != "" {
				return id
			}
		}
	}

	return ""
}

func nestedValue(payload map[string]any, keys ...string) any {
	current := any(payload)
	for _, key := range keys {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}

// stringifyID renders identifier values that arrive as strings or JSON
// numbers. Anything else is not an identifier.
func stringifyID(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return ""
	}
}
