package service

import (
	"context"
	"time"

	"github.com/kursadbilgin/outreach-engine/internal/connector"
	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"github.com/kursadbilgin/outreach-engine/internal/learning"
	"github.com/kursadbilgin/outreach-engine/internal/ratelimit"
	"github.com/kursadbilgin/outreach-engine/internal/repository"
)

type fakeMessageRepo struct {
	createFn             func(ctx context.Context, m *domain.Message) error
	getByIDFn            func(ctx context.Context, id string) (*domain.Message, error)
	saveFn               func(ctx context.Context, m *domain.Message) error
	listByStatusFn       func(ctx context.Context, statuses []domain.Status, limit int) ([]domain.Message, error)
	countByStatusFn      func(ctx context.Context, status domain.Status) (int64, error)
	countApprovedSinceFn func(ctx context.Context, since time.Time) (int64, error)
}

func (f *fakeMessageRepo) Create(ctx context.Context, m *domain.Message) error {
	if f.createFn != nil {
		return f.createFn(ctx, m)
	}
	return nil
}

func (f *fakeMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeMessageRepo) Save(ctx context.Context, m *domain.Message) error {
	if f.saveFn != nil {
		return f.saveFn(ctx, m)
	}
	return nil
}

func (f *fakeMessageRepo) ListByStatus(ctx context.Context, statuses []domain.Status, limit int) ([]domain.Message, error) {
	if f.listByStatusFn != nil {
		return f.listByStatusFn(ctx, statuses, limit)
	}
	return nil, nil
}

func (f *fakeMessageRepo) CountByStatus(ctx context.Context, status domain.Status) (int64, error) {
	if f.countByStatusFn != nil {
		return f.countByStatusFn(ctx, status)
	}
	return 0, nil
}

func (f *fakeMessageRepo) CountApprovedSince(ctx context.Context, since time.Time) (int64, error) {
	if f.countApprovedSinceFn != nil {
		return f.countApprovedSinceFn(ctx, since)
	}
	return 0, nil
}

var _ repository.MessageRepository = (*fakeMessageRepo)(nil)

type fakeEventRepo struct {
	createFn          func(ctx context.Context, e *domain.Event) error
	countByKindFn     func(ctx context.Context, kind domain.EventKind) (int64, error)
	lastTSFn          func(ctx context.Context, kind domain.EventKind) (*time.Time, error)
	listByMessageIDFn func(ctx context.Context, messageID string) ([]domain.Event, error)
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	if f.createFn != nil {
		return f.createFn(ctx, e)
	}
	return nil
}

func (f *fakeEventRepo) CountByKind(ctx context.Context, kind domain.EventKind) (int64, error) {
	if f.countByKindFn != nil {
		return f.countByKindFn(ctx, kind)
	}
	return 0, nil
}

func (f *fakeEventRepo) LastTS(ctx context.Context, kind domain.EventKind) (*time.Time, error) {
	if f.lastTSFn != nil {
		return f.lastTSFn(ctx, kind)
	}
	return nil, nil
}

func (f *fakeEventRepo) ListByMessageID(ctx context.Context, messageID string) ([]domain.Event, error) {
	if f.listByMessageIDFn != nil {
		return f.listByMessageIDFn(ctx, messageID)
	}
	return nil, nil
}

var _ repository.EventRepository = (*fakeEventRepo)(nil)

type fakePlanRepo struct {
	saveFn   func(ctx context.Context, plan domain.OutreachPlan) (string, error)
	latestFn func(ctx context.Context, clientSlug string) (*domain.OutreachPlan, error)
}

func (f *fakePlanRepo) Save(ctx context.Context, plan domain.OutreachPlan) (string, error) {
	if f.saveFn != nil {
		return f.saveFn(ctx, plan)
	}
	return "plan-1", nil
}

func (f *fakePlanRepo) Latest(ctx context.Context, clientSlug string) (*domain.OutreachPlan, error) {
	if f.latestFn != nil {
		return f.latestFn(ctx, clientSlug)
	}
	return nil, domain.ErrNotFound
}

var _ repository.PlanRepository = (*fakePlanRepo)(nil)

type fakeAttemptRepo struct {
	createFn           func(ctx context.Context, a *domain.SendAttempt) error
	getByMessageIDFn   func(ctx context.Context, messageID string) ([]domain.SendAttempt, error)
	countByMessageIDFn func(ctx context.Context, messageID string) (int64, error)
}

func (f *fakeAttemptRepo) Create(ctx context.Context, a *domain.SendAttempt) error {
	if f.createFn != nil {
		return f.createFn(ctx, a)
	}
	return nil
}

func (f *fakeAttemptRepo) GetByMessageID(ctx context.Context, messageID string) ([]domain.SendAttempt, error) {
	if f.getByMessageIDFn != nil {
		return f.getByMessageIDFn(ctx, messageID)
	}
	return nil, nil
}

func (f *fakeAttemptRepo) CountByMessageID(ctx context.Context, messageID string) (int64, error) {
	if f.countByMessageIDFn != nil {
		return f.countByMessageIDFn(ctx, messageID)
	}
	return 0, nil
}

var _ repository.AttemptRepository = (*fakeAttemptRepo)(nil)

type fakeVariantStatRepo struct {
	getFn       func(ctx context.Context, variantSet, variantID string) (domain.VariantStat, error)
	incrementFn func(ctx context.Context, variantSet, variantID string, column domain.StatColumn) error
	listFn      func(ctx context.Context) ([]domain.VariantStat, error)
}

func (f *fakeVariantStatRepo) Get(ctx context.Context, variantSet, variantID string) (domain.VariantStat, error) {
	if f.getFn != nil {
		return f.getFn(ctx, variantSet, variantID)
	}
	return domain.VariantStat{VariantSet: variantSet, VariantID: variantID}, nil
}

func (f *fakeVariantStatRepo) Increment(ctx context.Context, variantSet, variantID string, column domain.StatColumn) error {
	if f.incrementFn != nil {
		return f.incrementFn(ctx, variantSet, variantID, column)
	}
	return nil
}

func (f *fakeVariantStatRepo) List(ctx context.Context) ([]domain.VariantStat, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

var _ repository.VariantStatRepository = (*fakeVariantStatRepo)(nil)

type fakeConnector struct {
	draftFn       func(ctx context.Context, subject, body, to string) (domain.Message, error)
	sendFn        func(ctx context.Context, msg domain.Message) (domain.Message, error)
	listRepliesFn func(ctx context.Context, since time.Time) ([]domain.Message, error)
}

func (f *fakeConnector) Channel() domain.Channel { return domain.ChannelGmail }

func (f *fakeConnector) Draft(ctx context.Context, subject, body, to string) (domain.Message, error) {
	if f.draftFn != nil {
		return f.draftFn(ctx, subject, body, to)
	}
	return domain.Message{
		ID:      "msg-" + to,
		Channel: domain.ChannelGmail,
		Role:    domain.RoleAssistant,
		Subject: subject,
		Body:    body,
		Status:  domain.StatusDraft,
	}, nil
}

func (f *fakeConnector) Send(ctx context.Context, msg domain.Message) (domain.Message, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	msg.MarkSent(time.Unix(1_700_000_000, 0))
	return msg, nil
}

func (f *fakeConnector) ListReplies(ctx context.Context, since time.Time) ([]domain.Message, error) {
	if f.listRepliesFn != nil {
		return f.listRepliesFn(ctx, since)
	}
	return nil, nil
}

var _ connector.Connector = (*fakeConnector)(nil)

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, tenant, channel string) (bool, error)
	waitFn  func(ctx context.Context, tenant, channel string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, tenant, channel string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, tenant, channel)
	}
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, tenant, channel string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, tenant, channel)
	}
	return nil
}

var _ ratelimit.RateLimiter = (*fakeRateLimiter)(nil)

type fakeChooser struct {
	chooseFn func(ctx context.Context, variants []domain.Variant, variantSet string, epsilon float64) (*learning.Choice, error)
}

func (f *fakeChooser) Choose(ctx context.Context, variants []domain.Variant, variantSet string, epsilon float64) (*learning.Choice, error) {
	if f.chooseFn != nil {
		return f.chooseFn(ctx, variants, variantSet, epsilon)
	}
	if len(variants) == 0 {
		return nil, nil
	}
	return &learning.Choice{Variant: variants[0]}, nil
}

type fakeEventLogger struct {
	logFn func(ctx context.Context, event *domain.Event) error
}

func (f *fakeEventLogger) Log(ctx context.Context, event *domain.Event) error {
	if f.logFn != nil {
		return f.logFn(ctx, event)
	}
	return nil
}
