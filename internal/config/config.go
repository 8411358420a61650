package config

import (
	"fmt"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/kursadbilgin/outreach-engine/internal/domain"
)

type Config struct {
	DataDir            string  `env:"DATA_DIR,default=data"`
	DBDriver           string  `env:"DB_DRIVER,default=sqlite"`
	DatabaseDSN        string  `env:"DATABASE_DSN"`
	RedisURL           string  `env:"REDIS_URL"`
	ClientsFile        string  `env:"CLIENTS_FILE,default=clients.yaml"`
	TemplateLibraryDir string  `env:"TEMPLATE_LIBRARY_DIR,default=templates/library"`
	LogLevel           string  `env:"LOG_LEVEL,default=info"`
	DefaultDailyCap    int     `env:"DEFAULT_DAILY_CAP,default=25"`
	DefaultEpsilon     float64 `env:"DEFAULT_EPSILON,default=0.1"`
	DefaultVariantSet  string  `env:"DEFAULT_VARIANT_SET,default=baseline"`
	SendRateLimit      int     `env:"SEND_RATE_LIMIT_PER_SEC,default=10"`
	TenantConcurrency  int     `env:"TENANT_CONCURRENCY,default=1"`
	MetricsTextfile    string  `env:"METRICS_TEXTFILE"`
	HubSpotBaseURL     string  `env:"HUBSPOT_BASE_URL,default=https://api.hubapi.com"`
	HTTPPort           int     `env:"HTTP_PORT,default=8080"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	switch c.DBDriver {
	case "":
		c.DBDriver = "sqlite"
	case "sqlite":
	case "postgres":
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return fmt.Errorf("%w: DATABASE_DSN is required for the postgres driver", domain.ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unsupported DB_DRIVER %q", domain.ErrConfig, c.DBDriver)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("%w: DATA_DIR is required", domain.ErrConfig)
	}
	if c.DefaultEpsilon < 0 || c.DefaultEpsilon > 1 {
		return fmt.Errorf("%w: DEFAULT_EPSILON must be within [0,1]", domain.ErrConfig)
	}
	if c.TenantConcurrency < 1 {
		c.TenantConcurrency = 1
	}
	if strings.TrimSpace(c.DefaultVariantSet) == "" {
		c.DefaultVariantSet = domain.DefaultVariantSet
	}
	return nil
}
