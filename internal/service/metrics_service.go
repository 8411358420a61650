package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"github.com/kursadbilgin/outreach-engine/internal/repository"
	"go.uber.org/zap"
)

const MetricsReportFile = "outreach_metrics.json"

// OutreachMetrics is the per-tenant aggregate consumed by reporting.
type OutreachMetrics struct {
	ClientSlug    string               `json:"client_slug"`
	EmailsDrafted int64                `json:"emails_drafted"`
	EmailsSent    int64                `json:"emails_sent"`
	Replies       int64                `json:"replies"`
	Meetings      int64                `json:"meetings"`
	ReplyRate     float64              `json:"reply_rate"`
	Variants      []VariantPerformance `json:"variant_perf"`
	GeneratedAt   time.Time            `json:"ts_utc"`
}

type VariantPerformance struct {
	VariantSet     string    `json:"variant_set"`
	VariantID      string    `json:"variant_id"`
	Sent           int       `json:"sent"`
	Opens          int       `json:"opens"`
	Replies        int       `json:"replies"`
	Meetings       int       `json:"meetings"`
	ReplyRate      float64   `json:"reply_rate"`
	ConversionRate float64   `json:"conversion_rate"`
	LastUpdated    time.Time `json:"last_updated"`
}

type MetricsService struct {
	messages repository.MessageRepository
	events   repository.EventRepository
	stats    repository.VariantStatRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewMetricsService(
	messages repository.MessageRepository,
	events repository.EventRepository,
	stats repository.VariantStatRepository,
	logger *zap.Logger,
) *MetricsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsService{
		messages: messages,
		events:   events,
		stats:    stats,
		logger:   logger,
		now:      time.Now,
	}
}

// Compute counts drafts and sent messages by current status, replies and
// meetings by logged events. The reply rate is replies over sent, or 0.
func (s *MetricsService) Compute(ctx context.Context, clientSlug string) (OutreachMetrics, error) {
	m := OutreachMetrics{
		ClientSlug:  clientSlug,
		Variants:    []VariantPerformance{},
		GeneratedAt: s.now().UTC(),
	}

	var err error
	if m.EmailsDrafted, err = s.messages.CountByStatus(ctx, domain.StatusDraft); err != nil {
		return m, fmt.Errorf("failed to count drafts: %w", err)
	}
	if m.EmailsSent, err = s.messages.CountByStatus(ctx, domain.StatusSent); err != nil {
		return m, fmt.Errorf("failed to count sent messages: %w", err)
	}
	if m.Replies, err = s.events.CountByKind(ctx, domain.EventReplied); err != nil {
		return m, fmt.Errorf("failed to count replies: %w", err)
	}
	if m.Meetings, err = s.events.CountByKind(ctx, domain.EventMeeting); err != nil {
		return m, fmt.Errorf("failed to count meetings: %w", err)
	}
	if m.EmailsSent > 0 {
		m.ReplyRate = float64(m.Replies) / float64(m.EmailsSent)
	}

	stats, err := s.stats.List(ctx)
	if err != nil {
		return m, fmt.Errorf("failed to list variant stats: %w", err)
	}
	for _, st := range stats {
		m.Variants = append(m.Variants, VariantPerformance{
			VariantSet:     st.VariantSet,
			VariantID:      st.VariantID,
			Sent:           st.Sent,
			Opens:          st.Opens,
			Replies:        st.Replies,
			Meetings:       st.Meetings,
			ReplyRate:      st.ReplyRate(),
			ConversionRate: st.ConversionRate(),
			LastUpdated:    st.LastUpdated,
		})
	}
	return m, nil
}

// WriteReport computes the metrics and writes them to dir.
func (s *MetricsService) WriteReport(ctx context.Context, clientSlug, dir string) (OutreachMetrics, error) {
	m, err := s.Compute(ctx, clientSlug)
	if err != nil {
		return m, err
	}
	path := filepath.Join(dir, MetricsReportFile)
	if err := writeJSONFile(path, m); err != nil {
		return m, err
	}
	s.logger.Debug("metrics report written", zap.String("path", path))
	return m, nil
}
