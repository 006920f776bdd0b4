package audit

import (
	"strings"

	"github.com/mssola/useragent"
)

// RedactionMarker replaces the value of any sensitive field before storage.
const RedactionMarker = "[REDACTED]"

// sensitiveFields are the normalized field names whose values are never
// stored. The scan is shallow and name-based: nested structures are walked,
// but values are never inspected for secret-shaped content.
var sensitiveFields = map[string]struct{}{
	"password":     {},
	"passwordhash": {},
	"passwordsalt": {},
	"token":        {},
	"accesstoken":  {},
	"refreshtoken": {},
	"secret":       {},
	"key":          {},
	"apikey":       {},
}

func isSensitiveField(name string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(name, "_", ""))
	_, ok := sensitiveFields[normalized]
	return ok
}

// SanitizeValues returns a copy of values with sensitive fields redacted.
// Returns nil for nil input so absent payloads stay absent.
func SanitizeValues(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		if isSensitiveField(k) {
			out[k] = RedactionMarker
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = SanitizeValues(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// placeholder network values that proxies and test tooling produce; storing
// them verbatim would suggest a real client address where there is none.
var placeholderIPs = map[string]struct{}{
	"":          {},
	"::1":       {},
	"127.0.0.1": {},
	"n/a":       {},
	"null":      {},
	"unknown":   {},
}

// NormalizeIP maps loopback and placeholder addresses to nil (stored as NULL).
func NormalizeIP(ip string) *string {
	trimmed := strings.TrimSpace(ip)
	if _, ok := placeholderIPs[strings.ToLower(trimmed)]; ok {
		return nil
	}
	return &trimmed
}

// NormalizeUserAgent maps empty or placeholder user agents to nil.
func NormalizeUserAgent(ua string) *string {
	trimmed := strings.TrimSpace(ua)
	if trimmed == "" || strings.EqualFold(trimmed, "n/a") {
		return nil
	}
	return &trimmed
}

// ClassifySource derives a request source from the captured User-Agent.
func ClassifySource(ua string) RequestSource {
	trimmed := strings.TrimSpace(ua)
	if trimmed == "" {
		return SourceUnknown
	}

	parsed := useragent.New(trimmed)
	switch {
	case parsed.Bot():
		return SourceBot
	case parsed.Mobile():
		return SourceMobile
	default:
		if name, _ := parsed.Browser(); name != "" {
			return SourceWeb
		}
		// curl, SDKs, and other non-browser clients.
		return SourceAPI
	}
}
