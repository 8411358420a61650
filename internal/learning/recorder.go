package learning

import (
	"context"
	"fmt"
	"strings"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"go.uber.org/zap"
)

// Recorder applies engagement events to the variant counters. Replayed
// events are counted again.
type Recorder struct {
	stats  StatsWriter
	logger *zap.Logger
}

func NewRecorder(stats StatsWriter, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{stats: stats, logger: logger}
}

// Record increments the counter matching kind. Kinds are matched after
// trimming and lowercasing, so "REPLIED" counts as "replied", and the aliases
// "open", "reply" and "booked_meeting" are accepted. It reports false without
// touching storage for unrecognized kinds or an empty variant id.
func (r *Recorder) Record(ctx context.Context, variantSet, variantID, kind string) (bool, error) {
	if strings.TrimSpace(variantID) == "" {
		return false, nil
	}
	column, ok := domain.StatColumnForEvent(strings.ToLower(strings.TrimSpace(kind)))
	if !ok {
		return false, nil
	}
	if strings.TrimSpace(variantSet) == "" {
		variantSet = domain.DefaultVariantSet
	}

	if err := r.stats.Increment(ctx, variantSet, variantID, column); err != nil {
		return false, fmt.Errorf("increment %s for %s/%s: %w", column, variantSet, variantID, err)
	}

	r.logger.Debug("variant stat incremented",
		zap.String("variantSet", variantSet),
		zap.String("variantId", variantID),
		zap.String("column", string(column)),
	)
	return true, nil
}

// RecordMessage resolves the variant attribution stored on msg and records
// kind against it. Messages without attribution are skipped.
func (r *Recorder) RecordMessage(ctx context.Context, msg *domain.Message, kind string) (bool, error) {
	if msg == nil {
		return false, nil
	}
	variantSet, variantID, ok := msg.Attribution()
	if !ok {
		return false, nil
	}
	return r.Record(ctx, variantSet, variantID, kind)
}
