// Package service wires policy, learning, rendering and transport into the
// per-tenant outreach workflow.
package service

import (
	"context"
	"time"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"github.com/kursadbilgin/outreach-engine/internal/learning"
)

// VariantChooser picks the variant used for one outreach attempt.
type VariantChooser interface {
	Choose(ctx context.Context, variants []domain.Variant, variantSet string, epsilon float64) (*learning.Choice, error)
}

// EventRecorder applies an event kind to the variant a message was drafted from.
type EventRecorder interface {
	RecordMessage(ctx context.Context, msg *domain.Message, kind string) (bool, error)
}

// EventLogger appends an event to the tenant log.
type EventLogger interface {
	Log(ctx context.Context, event *domain.Event) error
}

func startOfDayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
