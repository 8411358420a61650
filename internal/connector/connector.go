package connector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"go.uber.org/zap"
)

// Connector is the outbound mail transport port of a tenant.
type Connector interface {
	Channel() domain.Channel
	Draft(ctx context.Context, subject, body, to string) (domain.Message, error)
	Send(ctx context.Context, msg domain.Message) (domain.Message, error)
	ListReplies(ctx context.Context, since time.Time) ([]domain.Message, error)
}

// Credentials holds the per-tenant secrets a connector is built from.
type Credentials map[string]string

func (c Credentials) value(key string) string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c[key])
}

func (c Credentials) require(channel string, keys ...string) error {
	missing := make([]string, 0, len(keys))
	for _, key := range keys {
		if c.value(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return missingCredentials(channel, missing)
}

// New builds the connector configured for a tenant channel.
func New(channel domain.Channel, clientSlug string, creds Credentials, logger *zap.Logger) (Connector, error) {
	switch channel {
	case domain.ChannelGmail, "":
		return NewGmail(clientSlug, creds, logger)
	case domain.ChannelOutlook:
		return NewOutlook(clientSlug, creds, logger)
	case domain.ChannelWebhook:
		return NewWebhook(clientSlug, creds, logger)
	default:
		return nil, fmt.Errorf("%w: unsupported channel %q", domain.ErrConfig, channel)
	}
}

// draftMessage builds a local draft shared by all transports.
func draftMessage(clientSlug string, channel domain.Channel, subject, body, to string, now time.Time) domain.Message {
	msg := domain.Message{
		ID:         uuid.NewString(),
		ClientSlug: clientSlug,
		ContactID:  to,
		Channel:    channel,
		Role:       domain.RoleAssistant,
		Subject:    subject,
		Body:       body,
		Status:     domain.StatusDraft,
		TS:         now.UTC(),
	}
	msg.SetMeta(domain.MetaTo, to)
	msg.SetMeta(domain.MetaTransport, channel.String())
	return msg
}

// sendLocal applies the send-state rule for transports with no network call.
func sendLocal(msg domain.Message, now time.Time) domain.Message {
	if !msg.RejectSend() {
		return msg
	}
	msg.MarkSent(now)
	return msg
}
