package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/kursadbilgin/outreach-engine/internal/catalog"
	"github.com/kursadbilgin/outreach-engine/internal/config"
	"github.com/kursadbilgin/outreach-engine/internal/connector"
	"github.com/kursadbilgin/outreach-engine/internal/crm"
	"github.com/kursadbilgin/outreach-engine/internal/domain"
	infraredis "github.com/kursadbilgin/outreach-engine/internal/infra/redis"
	"github.com/kursadbilgin/outreach-engine/internal/infra/storage"
	"github.com/kursadbilgin/outreach-engine/internal/learning"
	"github.com/kursadbilgin/outreach-engine/internal/observability"
	"github.com/kursadbilgin/outreach-engine/internal/ratelimit"
	"github.com/kursadbilgin/outreach-engine/internal/service"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app holds the process-wide collaborators shared by every command.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	clients []config.Client
	opener  *storage.Opener
	rdb     *goredis.Client
	limiter ratelimit.RateLimiter
	metrics *observability.Metrics
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	clients, err := config.LoadClients(cfg.ClientsFile)
	if err != nil {
		return nil, err
	}

	opener, err := storage.NewOpener(cfg.DBDriver, cfg.DataDir, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		clients: clients,
		opener:  opener,
		limiter: ratelimit.Noop{},
		metrics: observability.NewMetrics(),
	}

	rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	if rdb != nil {
		limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.SendRateLimit)
		if err != nil {
			_ = rdb.Close()
			return nil, err
		}
		a.rdb = rdb
		a.limiter = limiter
	}

	logger.Debug("outreach engine initialized",
		zap.String("dbDriver", opener.Driver()),
		zap.Int("clients", len(clients)),
		zap.Bool("redis", rdb != nil),
	)
	return a, nil
}

func (a *app) Close() {
	if a == nil {
		return
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// flushMetrics exports the run metrics for the node exporter when a
// textfile path is configured.
func (a *app) flushMetrics() {
	if a.cfg.MetricsTextfile == "" {
		return
	}
	if err := a.metrics.WriteToTextfile(a.cfg.MetricsTextfile); err != nil {
		a.logger.Warn("failed to write metrics textfile", zap.Error(err))
	}
}

// selectClients returns every configured client, or the one named by slug.
func (a *app) selectClients(slug string) ([]config.Client, error) {
	if strings.TrimSpace(slug) == "" {
		return a.clients, nil
	}
	client, err := config.FindClient(a.clients, slug)
	if err != nil {
		return nil, err
	}
	return []config.Client{client}, nil
}

func (a *app) source(client config.Client) (crm.Source, error) {
	if client.HubSpotToken != "" {
		return crm.NewHubSpot(crm.HubSpotConfig{
			BaseURL: a.cfg.HubSpotBaseURL,
			Token:   client.HubSpotToken,
		}, a.logger.With(zap.String("client", client.Slug)))
	}
	if client.ContactsCSV != "" {
		return crm.NewCSVSource(client.ContactsCSV), nil
	}
	return nil, fmt.Errorf("%w: client %s has no contact source", domain.ErrConfig, client.Slug)
}

func (a *app) connector(client config.Client) (connector.Connector, error) {
	return connector.New(client.Channel, client.Slug, connector.Credentials(client.Credentials), a.logger)
}

func (a *app) variants(variantSet string) ([]domain.Variant, error) {
	return catalog.VariantsFor(a.cfg.TemplateLibraryDir, variantSet, a.logger)
}

func (a *app) runner(contactLimit int) *service.Runner {
	r := service.NewRunner(a.opener, a.source, a.connector, a.variants, service.RunSettings{
		DailyCap:     a.cfg.DefaultDailyCap,
		Epsilon:      a.cfg.DefaultEpsilon,
		VariantSet:   a.cfg.DefaultVariantSet,
		ContactLimit: contactLimit,
		Concurrency:  a.cfg.TenantConcurrency,
	}, a.logger)
	r.SetMetrics(a.metrics)
	return r
}

// pullContacts reads and scores the contact pool of client.
func (a *app) pullContacts(ctx context.Context, client config.Client, limit int) ([]domain.Contact, error) {
	source, err := a.source(client)
	if err != nil {
		return nil, err
	}
	contacts, err := source.Contacts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to pull contacts for %s: %w", client.Slug, err)
	}
	return crm.Score(contacts), nil
}

// withTenant opens the namespace of the client named by slug for the
// duration of fn.
func (a *app) withTenant(ctx context.Context, slug string, fn func(client config.Client, tenant *storage.Tenant) error) error {
	if strings.TrimSpace(slug) == "" {
		return fmt.Errorf("%w: --client is required", domain.ErrValidation)
	}
	client, err := config.FindClient(a.clients, slug)
	if err != nil {
		return err
	}

	tenant, err := a.opener.Open(ctx, client.Slug)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := tenant.Close(); closeErr != nil {
			a.logger.Warn("failed to close tenant storage", zap.String("client", client.Slug), zap.Error(closeErr))
		}
	}()

	return fn(client, tenant)
}

func (a *app) eventService(tenant *storage.Tenant) *service.EventService {
	svc := service.NewEventService(tenant.Repos.Events, tenant.Repos.Messages, learning.NewRecorder(tenant.Repos.Stats, a.logger), a.logger)
	svc.SetMetrics(a.metrics)
	return svc
}
