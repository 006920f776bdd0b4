package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeValues(t *testing.T) {
	t.Run("nil input stays nil", func(t *testing.T) {
		assert.Nil(t, SanitizeValues(nil))
	})

	t.Run("sensitive fields redacted", func(t *testing.T) {
		got := SanitizeValues(map[string]any{
			"password":      "hunter2",
			"password_hash": "abc",
			"passwordSalt":  "xyz",
			"token":         "jwe...",
			"refresh_token": "jwe...",
			"secret":        "s3cret",
			"apiKey":        "k-123",
			"email":         "a@b.com",
		})

		assert.Equal(t, RedactionMarker, got["password"])
		assert.Equal(t, RedactionMarker, got["password_hash"])
		assert.Equal(t, RedactionMarker, got["passwordSalt"])
		assert.Equal(t, RedactionMarker, got["token"])
		assert.Equal(t, RedactionMarker, got["refresh_token"])
		assert.Equal(t, RedactionMarker, got["secret"])
		assert.Equal(t, RedactionMarker, got["apiKey"])
		assert.Equal(t, "a@b.com", got["email"])
	})

	t.Run("nested maps scanned by name", func(t *testing.T) {
		got := SanitizeValues(map[string]any{
			"user": map[string]any{
				"name":     "Ada",
				"password": "hunter2",
			},
		})

		nested := got["user"].(map[string]any)
		assert.Equal(t, "Ada", nested["name"])
		assert.Equal(t, RedactionMarker, nested["password"])
	})

	t.Run("input map not mutated", func(t *testing.T) {
		in := map[string]any{"password": "hunter2"}
		_ = SanitizeValues(in)
		assert.Equal(t, "hunter2", in["password"])
	})
}

func TestNormalizeIP(t *testing.T) {
	tests := []struct {
		name string
		ip   string
		want *string
	}{
		{"ipv6 loopback", "::1", nil},
		{"ipv4 loopback", "127.0.0.1", nil},
		{"empty", "", nil},
		{"placeholder N/A", "N/A", nil},
		{"placeholder null", "null", nil},
		{"real address kept", "203.0.113.7", strPtr("203.0.113.7")},
		{"whitespace trimmed", "  203.0.113.7 ", strPtr("203.0.113.7")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeIP(tt.ip)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestClassifySource(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want RequestSource
	}{
		{"empty", "", SourceUnknown},
		{"desktop browser", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36", SourceWeb},
		{"mobile browser", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", SourceMobile},
		{"crawler", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", SourceBot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySource(tt.ua))
		})
	}
}

func strPtr(s string) *string { return &s }
