package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/outreach-engine/internal/config"
	"github.com/kursadbilgin/outreach-engine/internal/connector"
	"github.com/kursadbilgin/outreach-engine/internal/crm"
	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"github.com/kursadbilgin/outreach-engine/internal/infra/storage"
	"github.com/kursadbilgin/outreach-engine/internal/learning"
	"github.com/kursadbilgin/outreach-engine/internal/observability"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minTenantConcurrency = 1

// TenantOpener opens the isolated namespace of a tenant.
type TenantOpener interface {
	Open(ctx context.Context, slug string) (*storage.Tenant, error)
	TenantDir(slug string) string
}

type (
	SourceFactory    func(client config.Client) (crm.Source, error)
	ConnectorFactory func(client config.Client) (connector.Connector, error)
	VariantLoader    func(variantSet string) ([]domain.Variant, error)
)

// RunSettings are the process-wide defaults a tenant config may override.
type RunSettings struct {
	DailyCap     int
	Epsilon      float64
	VariantSet   string
	ContactLimit int
	Concurrency  int
}

// TenantResult is the outcome of one tenant pipeline.
type TenantResult struct {
	Client   string
	RunID    string
	Status   domain.RunStatus
	Contacts int
	Targeted int
	Drafted  int
	Err      error
}

// Runner executes the pull, score, plan, draft and report pipeline for
// every tenant. A failing tenant never stops the others.
type Runner struct {
	opener     TenantOpener
	sources    SourceFactory
	connectors ConnectorFactory
	variants   VariantLoader
	settings   RunSettings
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

func NewRunner(
	opener TenantOpener,
	sources SourceFactory,
	connectors ConnectorFactory,
	variants VariantLoader,
	settings RunSettings,
	logger *zap.Logger,
) *Runner {
	if settings.Concurrency < minTenantConcurrency {
		settings.Concurrency = minTenantConcurrency
	}
	if settings.VariantSet == "" {
		settings.VariantSet = domain.DefaultVariantSet
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		opener:     opener,
		sources:    sources,
		connectors: connectors,
		variants:   variants,
		settings:   settings,
		logger:     logger,
		now:        time.Now,
	}
}

func (r *Runner) SetMetrics(metrics *observability.Metrics) {
	if r == nil {
		return
	}
	r.metrics = metrics
}

// Run processes clients with at most Concurrency tenants in flight. Results
// keep the order of clients.
func (r *Runner) Run(ctx context.Context, clients []config.Client) []TenantResult {
	results := make([]TenantResult, len(clients))

	var g errgroup.Group
	g.SetLimit(r.settings.Concurrency)
	for i := range clients {
		i := i
		g.Go(func() error {
			results[i] = r.runTenant(ctx, clients[i])
			return nil
		})
	}
	_ = g.Wait()

	return results
}

type tenantRun struct {
	runner *Runner
	client config.Client
	run    domain.Run
	tenant *storage.Tenant
	dir    string
	logger *zap.Logger
	start  time.Time
}

func (r *Runner) runTenant(ctx context.Context, client config.Client) TenantResult {
	runID := uuid.NewString()
	ctx = observability.WithClient(observability.WithRunID(ctx, runID), client.Slug)

	tr := &tenantRun{
		runner: r,
		client: client,
		run: domain.Run{
			ID:         runID,
			ClientSlug: client.Slug,
			Status:     domain.RunStatusProcessing,
		},
		dir:    r.opener.TenantDir(client.Slug),
		logger: observability.WithContextLogger(r.logger, ctx),
		start:  r.now(),
	}
	tr.logger.Info("tenant run started")

	if err := ctx.Err(); err != nil {
		return tr.fail(ctx, "start", err)
	}

	tenant, err := r.opener.Open(ctx, client.Slug)
	if err != nil {
		return tr.fail(ctx, "open", err)
	}
	defer func() {
		if closeErr := tenant.Close(); closeErr != nil {
			tr.logger.Warn("failed to close tenant storage", zap.Error(closeErr))
		}
	}()
	tr.tenant = tenant

	if err := tenant.Repos.Runs.Create(ctx, &tr.run); err != nil {
		tr.logger.Warn("failed to record run", zap.Error(err))
	}

	if stage, err := tr.execute(ctx); err != nil {
		return tr.fail(ctx, stage, err)
	}
	return tr.complete(ctx)
}

func (tr *tenantRun) execute(ctx context.Context) (string, error) {
	r := tr.runner
	repos := tr.tenant.Repos

	source, err := r.sources(tr.client)
	if err != nil {
		return "source", err
	}
	contacts, err := source.Contacts(ctx, r.settings.ContactLimit)
	if err != nil {
		return "pull", err
	}
	contacts = crm.Score(contacts)
	tr.run.Contacts = len(contacts)

	summary := tenantSummary{
		Summary: crm.Summarize(contacts, r.now()),
		Owners:  crm.OwnerRollup(contacts),
	}
	if err := writeJSONFile(filepath.Join(tr.dir, SummaryReportFile), summary); err != nil {
		return "summary", err
	}

	planner := NewPlanningService(repos.Plans, tr.logger)
	planner.now = r.now
	plan, err := planner.Plan(ctx, PlanInput{
		ClientSlug: tr.client.Slug,
		Contacts:   contacts,
		DailyCap:   tr.client.DailyCap.OrElse(r.settings.DailyCap),
		Variant:    tr.client.VariantSet(r.settings.VariantSet),
		Overrides:  tr.client.Policy(),
	})
	if err != nil {
		return "plan", err
	}
	tr.run.Targeted = len(plan.Targets)

	variantSet := tr.client.VariantSet(r.settings.VariantSet)
	variants, err := r.variants(variantSet)
	if err != nil {
		return "catalog", err
	}
	conn, err := r.connectors(tr.client)
	if err != nil {
		return "connector", err
	}

	drafter := NewDraftingService(repos.Plans, repos.Messages, learning.NewSelector(repos.Stats, tr.logger), conn, tr.logger)
	drafter.SetMetrics(r.metrics)
	drafted, err := drafter.Draft(ctx, DraftInput{
		ClientSlug: tr.client.Slug,
		Contacts:   contacts,
		Variants:   variants,
		VariantSet: variantSet,
		Epsilon:    tr.client.Epsilon(r.settings.Epsilon),
		BrandVoice: tr.client.BrandVoice(),
		Offer:      tr.client.Offer(),
	})
	tr.run.Drafted = len(drafted)
	if err != nil {
		return "draft", err
	}

	reporter := NewMetricsService(repos.Messages, repos.Events, repos.Stats, tr.logger)
	reporter.now = r.now
	if _, err := reporter.WriteReport(ctx, tr.client.Slug, tr.dir); err != nil {
		return "report", err
	}
	return "", nil
}

func (tr *tenantRun) complete(ctx context.Context) TenantResult {
	tr.run.Status = domain.RunStatusCompleted
	tr.finishRun(ctx)

	tr.runner.metrics.ObserveTenantRun(tr.client.Slug, "completed", tr.runner.now().Sub(tr.start))
	tr.logger.Info("tenant run completed",
		zap.Int("contacts", tr.run.Contacts),
		zap.Int("targeted", tr.run.Targeted),
		zap.Int("drafted", tr.run.Drafted),
	)
	return tr.result(nil)
}

// fail records the failure in the run row when storage is open and always
// leaves an error artifact in the tenant directory.
func (tr *tenantRun) fail(ctx context.Context, stage string, err error) TenantResult {
	err = fmt.Errorf("%s: %w", stage, err)
	msg := err.Error()

	tr.run.Status = domain.RunStatusFailed
	tr.run.Error = &msg
	if tr.tenant != nil {
		tr.finishRun(context.WithoutCancel(ctx))
	}

	artifact := TenantError{
		Client: tr.client.Slug,
		RunID:  tr.run.ID,
		Stage:  stage,
		Error:  msg,
		TS:     tr.runner.now().UTC(),
	}
	if writeErr := writeJSONFile(filepath.Join(tr.dir, ErrorReportFile), artifact); writeErr != nil {
		tr.logger.Error("failed to write error artifact", zap.Error(writeErr))
	}

	tr.runner.metrics.ObserveTenantRun(tr.client.Slug, "failed", tr.runner.now().Sub(tr.start))
	tr.logger.Error("tenant run failed", zap.String("stage", stage), zap.Error(err))
	return tr.result(err)
}

func (tr *tenantRun) finishRun(ctx context.Context) {
	if err := tr.tenant.Repos.Runs.Finish(ctx, &tr.run); err != nil {
		tr.logger.Warn("failed to finish run record", zap.Error(err))
	}
}

func (tr *tenantRun) result(err error) TenantResult {
	return TenantResult{
		Client:   tr.client.Slug,
		RunID:    tr.run.ID,
		Status:   tr.run.Status,
		Contacts: tr.run.Contacts,
		Targeted: tr.run.Targeted,
		Drafted:  tr.run.Drafted,
		Err:      err,
	}
}

type tenantSummary struct {
	crm.Summary
	Owners []crm.OwnerStat `json:"owners"`
}
