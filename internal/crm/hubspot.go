package crm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultHubSpotBaseURL = "https://api.hubapi.com"
	DefaultContactLimit   = 1000

	hubspotPageSize = 100
	contactsPath    = "/crm/v3/objects/contacts"
	ownersPath      = "/crm/v3/owners"
)

var contactProperties = []string{
	"email",
	"firstname",
	"lastname",
	"lifecyclestage",
	"hubspot_owner_id",
	"lastmodifieddate",
}

type HubSpotConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// RetryCount is the number of retries after the first attempt.
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

func (c HubSpotConfig) withDefaults() HubSpotConfig {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = DefaultHubSpotBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RetryCount <= 0 {
		c.RetryCount = 3
	}
	if c.RetryWait <= 0 {
		c.RetryWait = time.Second
	}
	if c.RetryMaxWait <= 0 {
		c.RetryMaxWait = 10 * time.Second
	}
	return c
}

type hubspotContact struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

type hubspotPage struct {
	Results []hubspotContact `json:"results"`
	Paging  struct {
		Next struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

// Owner is a HubSpot user that contacts can be assigned to.
type Owner struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type ownersPage struct {
	Results []Owner `json:"results"`
}

// HubSpot reads contacts through the CRM v3 API using a tenant token.
type HubSpot struct {
	client *resty.Client
	logger *zap.Logger
}

var _ Source = (*HubSpot)(nil)

func NewHubSpot(cfg HubSpotConfig, logger *zap.Logger) (*HubSpot, error) {
	return NewHubSpotWithClient(cfg, resty.New(), logger)
}

func NewHubSpotWithClient(cfg HubSpotConfig, client *resty.Client, logger *zap.Logger) (*HubSpot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrMissingToken
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	client.
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.Token).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled)
			}
			return isRetryableStatus(r.StatusCode())
		})

	return &HubSpot{client: client, logger: logger}, nil
}

// Contacts pages through the contact list until limit contacts were read or
// the cursor runs out.
func (h *HubSpot) Contacts(ctx context.Context, limit int) ([]domain.Contact, error) {
	if limit <= 0 {
		limit = DefaultContactLimit
	}

	contacts := make([]domain.Contact, 0, min(limit, hubspotPageSize))
	after := ""
	for len(contacts) < limit {
		params := map[string]string{
			"limit":      strconv.Itoa(min(hubspotPageSize, limit-len(contacts))),
			"properties": strings.Join(contactProperties, ","),
		}
		if after != "" {
			params["after"] = after
		}

		var page hubspotPage
		resp, err := h.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetResult(&page).
			Get(contactsPath)
		if err != nil {
			return nil, fmt.Errorf("hubspot list contacts: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("hubspot list contacts: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
		}

		for _, raw := range page.Results {
			contacts = append(contacts, contactFromHubSpot(raw))
			if len(contacts) >= limit {
				break
			}
		}

		after = page.Paging.Next.After
		if after == "" {
			break
		}
	}

	h.logger.Info("hubspot contacts pulled", zap.Int("count", len(contacts)))
	return contacts, nil
}

// Owners lists the account owners.
func (h *HubSpot) Owners(ctx context.Context) ([]Owner, error) {
	var page ownersPage
	resp, err := h.client.R().
		SetContext(ctx).
		SetResult(&page).
		Get(ownersPath)
	if err != nil {
		return nil, fmt.Errorf("hubspot list owners: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("hubspot list owners: status %d", resp.StatusCode())
	}
	return page.Results, nil
}

func contactFromHubSpot(raw hubspotContact) domain.Contact {
	p := raw.Properties
	return domain.Contact{
		ID:           raw.ID,
		Email:        optionalString(p["email"]),
		FirstName:    optionalString(p["firstname"]),
		LastName:     optionalString(p["lastname"]),
		OwnerID:      optionalString(p["hubspot_owner_id"]),
		Lifecycle:    optionalString(p["lifecyclestage"]),
		LastModified: parseTimestamp(p["lastmodifieddate"]),
		Source:       domain.DefaultContactSource,
	}
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
