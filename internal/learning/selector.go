package learning

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"go.uber.org/zap"
)

const DefaultEpsilon = 0.1

// Choice is the outcome of a single selection.
type Choice struct {
	Variant  domain.Variant
	Explored bool
	Score    float64
}

type Selector struct {
	stats     StatsReader
	randFloat func() float64
	randIntn  func(int) int
	logger    *zap.Logger
}

func NewSelector(stats StatsReader, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{
		stats:     stats,
		randFloat: rand.Float64,
		randIntn:  rand.Intn,
		logger:    logger,
	}
}

// Choose returns nil when variants is empty. With probability epsilon a
// uniformly random variant is returned without reading any counters.
// Otherwise the variant with the strictly highest (replies+meetings)/sent
// wins and ties keep the earliest variant, so a cold start always picks
// variants[0].
func (s *Selector) Choose(ctx context.Context, variants []domain.Variant, variantSet string, epsilon float64) (*Choice, error) {
	if len(variants) == 0 {
		return nil, nil
	}
	if strings.TrimSpace(variantSet) == "" {
		variantSet = domain.DefaultVariantSet
	}

	if s.randFloat() < epsilon {
		v := variants[s.randIntn(len(variants))]
		s.logger.Debug("variant explored",
			zap.String("variantSet", variantSet),
			zap.String("variantId", v.ID),
		)
		return &Choice{Variant: v, Explored: true}, nil
	}

	best := -1.0
	bestIdx := 0
	for i, v := range variants {
		stat, err := s.stats.Get(ctx, variantSet, v.ID)
		if err != nil {
			return nil, fmt.Errorf("read stats for %s/%s: %w", variantSet, v.ID, err)
		}
		if score := stat.Score(); score > best {
			best = score
			bestIdx = i
		}
	}

	chosen := variants[bestIdx]
	s.logger.Debug("variant exploited",
		zap.String("variantSet", variantSet),
		zap.String("variantId", chosen.ID),
		zap.Float64("score", best),
	)
	return &Choice{Variant: chosen, Score: best}, nil
}
