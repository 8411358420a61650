package connector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultWebhookTimeout = 10 * time.Second

	MetaProviderMessageID = "provider_message_id"
)

type webhookRequest struct {
	ID      string `json:"id"`
	Client  string `json:"client"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type webhookReply struct {
	ID        string `json:"id"`
	ContactID string `json:"contact_id"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	InReplyTo string `json:"in_reply_to"`
	TS        string `json:"ts"`
}

// Webhook posts outbound messages to a tenant-configured HTTP endpoint.
type Webhook struct {
	client     *resty.Client
	clientSlug string
	endpoint   string
	repliesURL string
	logger     *zap.Logger
	now        func() time.Time
}

func NewWebhook(clientSlug string, creds Credentials, logger *zap.Logger) (*Webhook, error) {
	client := resty.New()
	client.SetTimeout(defaultWebhookTimeout)
	client.SetRetryCount(0)

	return NewWebhookWithClient(clientSlug, creds, client, logger)
}

func NewWebhookWithClient(clientSlug string, creds Credentials, client *resty.Client, logger *zap.Logger) (*Webhook, error) {
	if err := creds.require("webhook", "webhook_url"); err != nil {
		return nil, err
	}
	endpoint := creds.value("webhook_url")
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("%w: invalid webhook endpoint: %v", domain.ErrConfig, err)
	}
	repliesURL := creds.value("webhook_replies_url")
	if repliesURL != "" {
		if _, err := url.ParseRequestURI(repliesURL); err != nil {
			return nil, fmt.Errorf("%w: invalid webhook replies endpoint: %v", domain.ErrConfig, err)
		}
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultWebhookTimeout)
	}
	client.SetRetryCount(0)
	if token := creds.value("webhook_token"); token != "" {
		client.SetAuthToken(token)
	}

	return &Webhook{
		client:     client,
		clientSlug: clientSlug,
		endpoint:   endpoint,
		repliesURL: repliesURL,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (w *Webhook) Channel() domain.Channel { return domain.ChannelWebhook }

func (w *Webhook) Draft(_ context.Context, subject, body, to string) (domain.Message, error) {
	return draftMessage(w.clientSlug, domain.ChannelWebhook, subject, body, to, w.now()), nil
}

// Send posts the message. A message whose status cannot be sent is returned
// failed without a request.
func (w *Webhook) Send(ctx context.Context, msg domain.Message) (domain.Message, error) {
	if w == nil || w.client == nil {
		return msg, fmt.Errorf("connector is not initialized")
	}
	if !msg.RejectSend() {
		return msg, nil
	}

	to := msg.MetaString(domain.MetaTo)
	if to == "" {
		to = msg.ContactID
	}
	reqBody := webhookRequest{
		ID:      msg.ID,
		Client:  w.clientSlug,
		To:      to,
		Subject: msg.Subject,
		Body:    msg.Body,
	}

	response, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(w.endpoint)
	if err != nil {
		return msg, &ConnectorError{
			Message:   "webhook request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return msg, &ConnectorError{Message: "webhook returned empty response", Transient: true}
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return msg, &ConnectorError{
			StatusCode: statusCode,
			Message:    webhookErrorMessage(statusCode, strings.TrimSpace(response.String())),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}

	msg.MarkSent(w.now())
	if id := providerMessageID(response); id != "" {
		msg.SetMeta(MetaProviderMessageID, id)
	}
	w.logger.Debug("webhook send", zap.String("messageId", msg.ID), zap.Int("statusCode", statusCode))
	return msg, nil
}

// ListReplies fetches replies received after since. Without a replies
// endpoint there is nothing to list.
func (w *Webhook) ListReplies(ctx context.Context, since time.Time) ([]domain.Message, error) {
	if w.repliesURL == "" {
		return []domain.Message{}, nil
	}

	var payload []webhookReply
	response, err := w.client.R().
		SetContext(ctx).
		SetQueryParam("since", since.UTC().Format(time.RFC3339)).
		SetResult(&payload).
		Get(w.repliesURL)
	if err != nil {
		return nil, &ConnectorError{
			Message:   "webhook replies request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response.IsError() {
		return nil, &ConnectorError{
			StatusCode: response.StatusCode(),
			Message:    webhookErrorMessage(response.StatusCode(), strings.TrimSpace(response.String())),
			Transient:  isTransientHTTPStatus(response.StatusCode()),
		}
	}

	replies := make([]domain.Message, 0, len(payload))
	for _, r := range payload {
		if strings.TrimSpace(r.ContactID) == "" {
			continue
		}
		ts := w.now().UTC()
		if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(r.TS)); err == nil {
			ts = parsed.UTC()
		}
		if ts.Before(since) {
			continue
		}
		msg := domain.Message{
			ID:         r.ID,
			ClientSlug: w.clientSlug,
			ContactID:  r.ContactID,
			Channel:    domain.ChannelWebhook,
			Role:       domain.RoleUser,
			Subject:    r.Subject,
			Body:       r.Body,
			Status:     domain.StatusSent,
			TS:         ts,
		}
		if r.InReplyTo != "" {
			msg.SetMeta(domain.MetaInReplyTo, r.InReplyTo)
		}
		replies = append(replies, msg)
	}
	return replies, nil
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func webhookErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("webhook returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func providerMessageID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	for _, key := range []string{"X-Request-ID", "X-Request-Id", "X-Correlation-ID", "X-Correlation-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
