package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"github.com/kursadbilgin/outreach-engine/internal/policy"
	"github.com/kursadbilgin/outreach-engine/internal/repository"
	"go.uber.org/zap"
)

type PlanningService struct {
	plans  repository.PlanRepository
	logger *zap.Logger
	now    func() time.Time
}

// PlanInput is one planning request for a tenant.
type PlanInput struct {
	ClientSlug string
	Contacts   []domain.Contact
	DailyCap   int
	Limit      domain.Optional[int]
	Variant    string
	Overrides  policy.Overrides
}

func NewPlanningService(plans repository.PlanRepository, logger *zap.Logger) *PlanningService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanningService{plans: plans, logger: logger, now: time.Now}
}

// Plan evaluates the tenant policy at the current UTC time and persists the
// resulting plan document.
func (s *PlanningService) Plan(ctx context.Context, in PlanInput) (domain.OutreachPlan, error) {
	if strings.TrimSpace(in.ClientSlug) == "" {
		return domain.OutreachPlan{}, fmt.Errorf("%w: client slug is required", domain.ErrValidation)
	}

	plan := policy.BuildPlan(policy.Request{
		ClientSlug: in.ClientSlug,
		Contacts:   in.Contacts,
		DailyCap:   in.DailyCap,
		Limit:      in.Limit,
		Variant:    in.Variant,
		Overrides:  in.Overrides,
		Now:        s.now().UTC(),
	})

	id, err := s.plans.Save(ctx, plan)
	if err != nil {
		return domain.OutreachPlan{}, fmt.Errorf("failed to save plan: %w", err)
	}

	s.logger.Info("plan built",
		zap.String("planId", id),
		zap.String("client", plan.ClientSlug),
		zap.Int("contacts", len(in.Contacts)),
		zap.Int("targets", len(plan.Targets)),
		zap.Int("skipped", len(plan.ReasonsByContact)),
	)
	return plan, nil
}
