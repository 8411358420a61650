// Package learning keeps per-variant performance counters and picks the
// variant to use for each outreach attempt with an epsilon-greedy strategy.
package learning

import (
	"context"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
)

// StatsReader reads counters of one tenant namespace. A missing row is
// returned as a zero stat with a nil error.
type StatsReader interface {
	Get(ctx context.Context, variantSet, variantID string) (domain.VariantStat, error)
}

// StatsWriter increments one counter, creating the row when absent.
type StatsWriter interface {
	Increment(ctx context.Context, variantSet, variantID string, column domain.StatColumn) error
}
