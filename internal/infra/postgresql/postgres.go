package postgresql

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var schemaPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func NewPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Warn),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db, nil
}

// NewTenantPostgres creates schema when missing and returns a connection
// whose search_path is pinned to it.
func NewTenantPostgres(dsn, schema string) (*gorm.DB, error) {
	if !schemaPattern.MatchString(schema) {
		return nil, fmt.Errorf("invalid schema name %q", schema)
	}

	admin, err := NewPostgres(dsn)
	if err != nil {
		return nil, err
	}
	createErr := admin.Exec(`CREATE SCHEMA IF NOT EXISTS "` + schema + `"`).Error
	if err := Close(admin); err != nil && createErr == nil {
		createErr = err
	}
	if createErr != nil {
		return nil, fmt.Errorf("failed to create schema %s: %w", schema, createErr)
	}

	tenantDSN, err := WithSearchPath(dsn, schema)
	if err != nil {
		return nil, err
	}
	return NewPostgres(tenantDSN)
}

// WithSearchPath adds a search_path runtime parameter to a URL or
// key/value DSN.
func WithSearchPath(dsn, schema string) (string, error) {
	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("failed to parse postgres dsn: %w", err)
		}
		q := u.Query()
		q.Set("search_path", schema)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}
	return strings.TrimSpace(dsn) + " search_path=" + schema, nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
