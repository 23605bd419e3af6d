package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"user@example.com", "u***@*******.com"},
		{"a@b.io", "a@*.io"},
		{"not-an-email", "[invalid-email]"},
		{"two@@signs", "[invalid-email]"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, SanitizedEmail(tt.email), tt.email)
	}
}

func TestRedactQuery(t *testing.T) {
	got := RedactQuery("email=user%40example.com&ip=10.0.0.1")
	assert.Contains(t, got, "email=%5BREDACTED%5D")
	assert.Contains(t, got, "ip=10.0.0.1")
	assert.NotContains(t, got, "example.com")

	assert.Equal(t, "limit=10&offset=20", RedactQuery("offset=20&limit=10"))
	assert.Equal(t, "", RedactQuery(""))
	assert.Equal(t, "[REDACTED]", RedactQuery("a=%zz"))
}

func TestAuditLogger_LogAuthAttempt(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	al.now = func() time.Time { return time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC) }

	al.LogAuthAttempt(AuditEvent{
		EventType:     "login_failed",
		Email:         "user@example.com",
		IPAddress:     "10.0.0.1",
		FailureReason: "invalid_credentials",
		Metadata:      map[string]string{"b": "2", "a": "1"},
	})

	out := buf.String()
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"email":"u***@*******.com"`)
	assert.NotContains(t, out, "user@example.com")
	assert.Contains(t, out, `"timestamp":"2026-05-04T09:00:00Z"`)
	assert.Less(t, strings.Index(out, `"a":"1"`), strings.Index(out, `"b":"2"`))
}

func TestAuditLogger_LogAccountAction(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	al.LogAccountAction("admin_created", "user-1", "", map[string]string{"role": "admin"})

	out := buf.String()
	assert.Contains(t, out, `"level":"INFO"`)
	assert.Contains(t, out, `"audit_type":"account"`)
	assert.Contains(t, out, `"role":"admin"`)
	assert.NotContains(t, out, "ip_address")
}
