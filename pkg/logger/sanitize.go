package logger

import (
	"net/url"
	"strings"
)

// SanitizedEmail masks an email address for logging (e.g., "u***@e***.com")
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	domain := parts[1]

	// Keep first char of the local part
	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	// Mask all but the TLD
	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

var sensitiveParams = map[string]bool{
	"password":  true,
	"token":     true,
	"secret":    true,
	"email":     true,
	"totp_code": true,
	"code":      true,
	"auth":      true,
}

// RedactQuery returns rawQuery with the values of sensitive parameters replaced.
// An unparseable query is redacted entirely.
func RedactQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "[REDACTED]"
	}

	for key, vals := range values {
		if !sensitiveParams[strings.ToLower(key)] {
			continue
		}
		for i := range vals {
			vals[i] = "[REDACTED]"
		}
	}
	return values.Encode()
}
