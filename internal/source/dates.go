package source

import (
	"net/mail"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ParseDate parses a raw Date header into a UTC timestamp. Usenet dates are
// free-form in practice; RFC 5322 parsing is tried first, then a lenient
// parse. Returns nil when the value cannot be parsed.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if t, err := mail.ParseDate(raw); err == nil {
		u := t.UTC()
		return &u
	}
	if t, err := dateparse.ParseAny(raw); err == nil {
		u := t.UTC()
		return &u
	}
	return nil
}
