// Package storage opens the isolated persistence namespace of a tenant.
// SQLite keeps one database file per tenant; Postgres keeps one schema per
// tenant inside a shared database.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"github.com/kursadbilgin/outreach-engine/internal/infra/migrations"
	"github.com/kursadbilgin/outreach-engine/internal/infra/postgresql"
	"github.com/kursadbilgin/outreach-engine/internal/infra/sqlite"
	"github.com/kursadbilgin/outreach-engine/internal/repository"
	"gorm.io/gorm"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DatabaseFile = "outreach.sqlite"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Tenant is an open, migrated namespace.
type Tenant struct {
	Slug  string
	Dir   string
	DB    *gorm.DB
	Repos repository.Repositories
}

func (t *Tenant) Close() error {
	if t == nil || t.DB == nil {
		return nil
	}
	sqlDB, err := t.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the underlying connection.
func (t *Tenant) Ping(ctx context.Context) error {
	sqlDB, err := t.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

type Opener struct {
	driver  string
	dataDir string
	dsn     string
}

func NewOpener(driver, dataDir, dsn string) (*Opener, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	switch driver {
	case "", DriverSQLite:
		driver = DriverSQLite
	case DriverPostgres:
		if strings.TrimSpace(dsn) == "" {
			return nil, fmt.Errorf("%w: DATABASE_DSN is required for postgres", domain.ErrConfig)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported db driver %q", domain.ErrConfig, driver)
	}
	if strings.TrimSpace(dataDir) == "" {
		return nil, fmt.Errorf("%w: data dir is required", domain.ErrConfig)
	}

	return &Opener{driver: driver, dataDir: dataDir, dsn: dsn}, nil
}

func (o *Opener) Driver() string {
	return o.driver
}

// TenantDir is where reports and error artifacts of a tenant are written.
func (o *Opener) TenantDir(slug string) string {
	return filepath.Join(o.dataDir, slug)
}

// Ping reports whether new tenant namespaces can be opened: the data
// directory is writable for SQLite, the server answers for Postgres.
func (o *Opener) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.driver == DriverPostgres {
		db, err := postgresql.NewPostgres(o.dsn)
		if err != nil {
			return err
		}
		return postgresql.Close(db)
	}

	if err := os.MkdirAll(o.dataDir, 0o755); err != nil {
		return fmt.Errorf("data dir not writable: %w", err)
	}
	f, err := os.CreateTemp(o.dataDir, ".ping-*")
	if err != nil {
		return fmt.Errorf("data dir not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// Open connects to the tenant namespace and applies pending migrations.
func (o *Opener) Open(ctx context.Context, slug string) (*Tenant, error) {
	if !slugPattern.MatchString(slug) {
		return nil, fmt.Errorf("%w: invalid client slug %q", domain.ErrValidation, slug)
	}

	var (
		db  *gorm.DB
		err error
	)
	switch o.driver {
	case DriverPostgres:
		db, err = postgresql.NewTenantPostgres(o.dsn, SchemaName(slug))
	default:
		db, err = sqlite.NewSQLite(filepath.Join(o.TenantDir(slug), DatabaseFile))
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage for %s: %w", o.driver, slug, err)
	}

	tenant := &Tenant{
		Slug:  slug,
		Dir:   o.TenantDir(slug),
		DB:    db,
		Repos: repository.NewRepositories(db),
	}
	if err := migrations.Migrate(db.WithContext(ctx)); err != nil {
		_ = tenant.Close()
		return nil, fmt.Errorf("migrate storage for %s: %w", slug, err)
	}
	return tenant, nil
}

// SchemaName maps a slug onto a Postgres schema identifier.
func SchemaName(slug string) string {
	return "tenant_" + strings.ReplaceAll(slug, "-", "_")
}
