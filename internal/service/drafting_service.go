package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/outreach-engine/internal/connector"
	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"github.com/kursadbilgin/outreach-engine/internal/observability"
	"github.com/kursadbilgin/outreach-engine/internal/render"
	"github.com/kursadbilgin/outreach-engine/internal/repository"
	"go.uber.org/zap"
)

type DraftingService struct {
	plans     repository.PlanRepository
	messages  repository.MessageRepository
	chooser   VariantChooser
	connector connector.Connector
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// DraftInput carries the contact pool the latest plan was built from and the
// variant catalog of the tenant.
type DraftInput struct {
	ClientSlug string
	Contacts   []domain.Contact
	Variants   []domain.Variant
	VariantSet string
	Epsilon    float64
	BrandVoice string
	Offer      string
}

func NewDraftingService(
	plans repository.PlanRepository,
	messages repository.MessageRepository,
	chooser VariantChooser,
	conn connector.Connector,
	logger *zap.Logger,
) *DraftingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftingService{
		plans:     plans,
		messages:  messages,
		chooser:   chooser,
		connector: conn,
		logger:    logger,
	}
}

func (s *DraftingService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Draft re-reads the latest persisted plan and stores one draft per target.
// Targets missing from the contact pool or lacking an email are skipped.
// Without catalog variants the default renderer is used and no attribution
// is recorded.
func (s *DraftingService) Draft(ctx context.Context, in DraftInput) ([]domain.Message, error) {
	plan, err := s.plans.Latest(ctx, in.ClientSlug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("no plan to draft from for %s: %w", in.ClientSlug, err)
		}
		return nil, fmt.Errorf("failed to load latest plan: %w", err)
	}

	variantSet := strings.TrimSpace(in.VariantSet)
	if variantSet == "" {
		variantSet = domain.DefaultVariantSet
	}

	byID := make(map[string]domain.Contact, len(in.Contacts))
	for _, c := range in.Contacts {
		byID[c.ID] = c
	}

	drafted := make([]domain.Message, 0, len(plan.Targets))
	for _, contactID := range plan.Targets {
		contact, ok := byID[contactID]
		if !ok {
			s.logger.Warn("plan target missing from contact pool", zap.String("contactId", contactID))
			continue
		}
		to := contact.EmailAddress()
		if to == "" {
			continue
		}

		msg, err := s.draftOne(ctx, in, variantSet, contact, to)
		if err != nil {
			return drafted, err
		}
		drafted = append(drafted, msg)
	}

	s.metrics.AddDrafted(in.ClientSlug, len(drafted))
	s.logger.Info("drafts created",
		zap.String("client", in.ClientSlug),
		zap.Int("targets", len(plan.Targets)),
		zap.Int("drafted", len(drafted)),
	)
	return drafted, nil
}

func (s *DraftingService) draftOne(ctx context.Context, in DraftInput, variantSet string, contact domain.Contact, to string) (domain.Message, error) {
	choice, err := s.chooser.Choose(ctx, in.Variants, variantSet, in.Epsilon)
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to choose variant for %s: %w", contact.ID, err)
	}

	var (
		subject, body string
		fallback      render.Result
	)
	if choice == nil {
		subject, body = render.RenderDefault(contact, in.BrandVoice, in.Offer)
	} else {
		fallback = render.RenderVariant(contact, choice.Variant)
		subject, body = fallback.Subject, fallback.Body
		s.metrics.IncVariantSelection(in.ClientSlug, choice.Explored)
	}

	msg, err := s.connector.Draft(ctx, subject, body, to)
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to draft message for %s: %w", contact.ID, err)
	}
	msg.ClientSlug = in.ClientSlug
	msg.ContactID = contact.ID
	msg.SetMeta(domain.MetaTo, to)
	if choice != nil {
		msg.SetMeta(domain.MetaVariantID, choice.Variant.ID)
		msg.SetMeta(domain.MetaVariantSet, variantSet)
	}
	if fallback.FellBack() {
		msg.SetMeta(domain.MetaFallback, fallbackParts(fallback))
		s.logger.Debug("template fell back",
			zap.String("contactId", contact.ID),
			zap.String("variantId", choice.Variant.ID),
		)
	}

	if err := s.messages.Create(ctx, &msg); err != nil {
		return domain.Message{}, fmt.Errorf("failed to store draft for %s: %w", contact.ID, err)
	}
	return msg, nil
}

func fallbackParts(r render.Result) string {
	parts := make([]string, 0, 2)
	if r.SubjectFallback {
		parts = append(parts, "subject")
	}
	if r.BodyFallback {
		parts = append(parts, "body")
	}
	return strings.Join(parts, ",")
}
