// Package crm pulls contacts from a CRM or a CSV export and scores them.
package crm

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
)

var ErrMissingToken = errors.New("hubspot token is required")

// Source supplies the contact pool of one tenant. A limit <= 0 means the
// source default.
type Source interface {
	Contacts(ctx context.Context, limit int) ([]domain.Contact, error)
}

// parseTimestamp accepts epoch milliseconds, RFC3339 and plain dates.
// Anything else is absent.
func parseTimestamp(raw string) domain.Optional[time.Time] {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.None[time.Time]()
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return domain.Some(time.UnixMilli(ms).UTC())
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return domain.Some(ts.UTC())
		}
	}
	return domain.None[time.Time]()
}

func optionalString(raw string) domain.Optional[string] {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.None[string]()
	}
	return domain.Some(raw)
}
