package service

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/outreach-engine/internal/config"
	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"github.com/kursadbilgin/outreach-engine/internal/infra/storage"
	"go.uber.org/zap"
)

// ReportService answers read-only queries about configured tenants. Each
// call opens the tenant namespace and closes it before returning.
type ReportService struct {
	opener  TenantOpener
	clients []config.Client
	logger  *zap.Logger
}

func NewReportService(opener TenantOpener, clients []config.Client, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{opener: opener, clients: clients, logger: logger}
}

func (s *ReportService) Metrics(ctx context.Context, slug string) (OutreachMetrics, error) {
	var out OutreachMetrics
	err := s.withTenant(ctx, slug, func(tenant *storage.Tenant) error {
		m, err := NewMetricsService(tenant.Repos.Messages, tenant.Repos.Events, tenant.Repos.Stats, s.logger).Compute(ctx, tenant.Slug)
		out = m
		return err
	})
	return out, err
}

func (s *ReportService) Variants(ctx context.Context, slug string) ([]VariantPerformance, error) {
	m, err := s.Metrics(ctx, slug)
	if err != nil {
		return nil, err
	}
	return m.Variants, nil
}

func (s *ReportService) LatestPlan(ctx context.Context, slug string) (*domain.OutreachPlan, error) {
	var out *domain.OutreachPlan
	err := s.withTenant(ctx, slug, func(tenant *storage.Tenant) error {
		plan, err := tenant.Repos.Plans.Latest(ctx, tenant.Slug)
		out = plan
		return err
	})
	return out, err
}

func (s *ReportService) withTenant(ctx context.Context, slug string, fn func(tenant *storage.Tenant) error) error {
	client, err := config.FindClient(s.clients, slug)
	if err != nil {
		return err
	}

	tenant, err := s.opener.Open(ctx, client.Slug)
	if err != nil {
		return fmt.Errorf("failed to open tenant %s: %w", client.Slug, err)
	}
	defer func() {
		if closeErr := tenant.Close(); closeErr != nil {
			s.logger.Warn("failed to close tenant storage", zap.String("client", client.Slug), zap.Error(closeErr))
		}
	}()

	return fn(tenant)
}
