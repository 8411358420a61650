package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"github.com/kursadbilgin/outreach-engine/internal/policy"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const sectionPrefix = "client_"

var (
	slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
	slugRepeat   = regexp.MustCompile(`_+`)
)

// Client is the configuration of one tenant.
type Client struct {
	Slug         string
	Name         string
	HubSpotToken string
	ContactsCSV  string
	Channel      domain.Channel
	DailyCap     domain.Optional[int]
	ApprovalCap  domain.Optional[int]
	Credentials  map[string]string
	Overrides    map[string]any
}

// Policy returns the policy overrides of the tenant.
func (c Client) Policy() policy.Overrides {
	return policy.OverridesFromMap(c.Overrides)
}

func (c Client) VariantSet(fallback string) string {
	if s := c.overrideString("variant_set"); s != "" {
		return s
	}
	return fallback
}

// Epsilon returns the configured exploration rate when it is a number in
// [0,1], otherwise fallback.
func (c Client) Epsilon(fallback float64) float64 {
	var eps float64
	switch v := c.Overrides["epsilon"].(type) {
	case float64:
		eps = v
	case int:
		eps = float64(v)
	case int64:
		eps = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fallback
		}
		eps = parsed
	default:
		return fallback
	}
	if eps < 0 || eps > 1 {
		return fallback
	}
	return eps
}

func (c Client) BrandVoice() string { return c.overrideString("brand_voice") }

func (c Client) Offer() string { return c.overrideString("offer") }

func (c Client) overrideString(key string) string {
	s, _ := c.Overrides[key].(string)
	return strings.TrimSpace(s)
}

// Slugify lowercases name and collapses every run of non-alphanumerics into
// a single underscore.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugNonAlnum.ReplaceAllString(s, "_")
	s = slugRepeat.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// LoadClients reads the tenant sections of a .toml, .yaml or .yml file.
// Clients are returned ordered by slug.
func LoadClients(path string) ([]Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read clients file: %w", err)
	}

	raw := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("%w: unsupported clients file type %q, use .toml or .yaml", domain.ErrConfig, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parse clients file: %v", domain.ErrConfig, err)
	}

	return ParseClients(raw)
}

// ParseClients builds tenant configs from decoded top-level sections.
// Non-mapping sections are ignored.
func ParseClients(raw map[string]any) ([]Client, error) {
	clients := make([]Client, 0, len(raw))
	seen := make(map[string]string, len(raw))

	for section, value := range raw {
		fields, ok := value.(map[string]any)
		if !ok {
			continue
		}

		slug := Slugify(strings.TrimPrefix(section, sectionPrefix))
		if slug == "" {
			return nil, fmt.Errorf("%w: section [%s] has an empty slug", domain.ErrConfig, section)
		}
		if other, dup := seen[slug]; dup {
			return nil, fmt.Errorf("%w: sections [%s] and [%s] share slug %q", domain.ErrConfig, other, section, slug)
		}
		seen[slug] = section

		client, err := parseClient(section, slug, fields)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}

	if len(clients) == 0 {
		return nil, fmt.Errorf("%w: no clients loaded from config", domain.ErrConfig)
	}

	sort.Slice(clients, func(i, j int) bool { return clients[i].Slug < clients[j].Slug })
	return clients, nil
}

func parseClient(section, slug string, fields map[string]any) (Client, error) {
	c := Client{
		Slug:         slug,
		Name:         stringField(fields, "name"),
		HubSpotToken: stringField(fields, "hubspot_token"),
		ContactsCSV:  stringField(fields, "contacts_csv"),
		Credentials:  stringMap(fields["credentials"]),
		Overrides:    anyMap(fields["overrides"]),
	}
	if c.Name == "" {
		c.Name = titleCase(strings.ReplaceAll(slug, "_", " "))
	}
	if c.HubSpotToken == "" && c.ContactsCSV == "" {
		return Client{}, fmt.Errorf("%w: missing 'hubspot_token' or 'contacts_csv' for section [%s]", domain.ErrConfig, section)
	}

	c.Channel = domain.ChannelGmail
	if raw := stringField(fields, "channel"); raw != "" {
		ch, err := domain.ParseChannelFromString(raw)
		if err != nil {
			return Client{}, fmt.Errorf("section [%s]: %w", section, err)
		}
		c.Channel = ch
	}

	var err error
	if c.DailyCap, err = optionalInt(fields, "daily_cap"); err != nil {
		return Client{}, fmt.Errorf("section [%s]: %w", section, err)
	}
	if c.ApprovalCap, err = optionalInt(fields, "approval_cap"); err != nil {
		return Client{}, fmt.Errorf("section [%s]: %w", section, err)
	}
	return c, nil
}

// FindClient looks a tenant up by slug after slugifying the query.
func FindClient(clients []Client, slug string) (Client, error) {
	target := Slugify(slug)
	available := make([]string, 0, len(clients))
	for _, c := range clients {
		if c.Slug == target {
			return c, nil
		}
		available = append(available, c.Slug)
	}
	return Client{}, fmt.Errorf("%w: client %q (available: %s)", domain.ErrNotFound, slug, strings.Join(available, ", "))
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}

func optionalInt(fields map[string]any, key string) (domain.Optional[int], error) {
	switch v := fields[key].(type) {
	case nil:
		return domain.None[int](), nil
	case int:
		return domain.Some(v), nil
	case int64:
		return domain.Some(int(v)), nil
	case float64:
		return domain.Some(int(v)), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return domain.None[int](), fmt.Errorf("%w: %s must be an integer", domain.ErrConfig, key)
		}
		return domain.Some(n), nil
	default:
		return domain.None[int](), fmt.Errorf("%w: %s must be an integer", domain.ErrConfig, key)
	}
}

func stringMap(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(m))
	for k, raw := range m {
		switch val := raw.(type) {
		case string:
			out[k] = val
		case nil:
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

func anyMap(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
