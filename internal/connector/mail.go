package connector

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"go.uber.org/zap"
)

const MetaMIME = "mime"

var (
	gmailCredentialKeys   = []string{"gmail_user", "gmail_refresh_token", "gmail_client_id", "gmail_client_secret"}
	outlookCredentialKeys = []string{"outlook_user", "outlook_tenant_id", "outlook_client_id", "outlook_client_secret", "outlook_refresh_token"}
)

// Gmail drafts and sends through a Gmail account. Delivery is local: the
// message carries its MIME rendition and no API call is made.
type Gmail struct {
	clientSlug string
	sender     string
	logger     *zap.Logger
	now        func() time.Time
}

func NewGmail(clientSlug string, creds Credentials, logger *zap.Logger) (*Gmail, error) {
	if err := creds.require("gmail", gmailCredentialKeys...); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gmail{
		clientSlug: clientSlug,
		sender:     creds.value("gmail_user"),
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (g *Gmail) Channel() domain.Channel { return domain.ChannelGmail }

func (g *Gmail) Draft(_ context.Context, subject, body, to string) (domain.Message, error) {
	msg := draftMessage(g.clientSlug, domain.ChannelGmail, subject, body, to, g.now())
	msg.SetMeta(MetaMIME, buildMIME(g.sender, to, subject, body))
	return msg, nil
}

func (g *Gmail) Send(_ context.Context, msg domain.Message) (domain.Message, error) {
	sent := sendLocal(msg, g.now())
	g.logger.Debug("gmail send", zap.String("messageId", sent.ID), zap.String("status", sent.Status.String()))
	return sent, nil
}

func (g *Gmail) ListReplies(context.Context, time.Time) ([]domain.Message, error) {
	return []domain.Message{}, nil
}

// Outlook drafts and sends through a Microsoft 365 mailbox without network
// delivery.
type Outlook struct {
	clientSlug string
	logger     *zap.Logger
	now        func() time.Time
}

func NewOutlook(clientSlug string, creds Credentials, logger *zap.Logger) (*Outlook, error) {
	if err := creds.require("outlook", outlookCredentialKeys...); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Outlook{clientSlug: clientSlug, logger: logger, now: time.Now}, nil
}

func (o *Outlook) Channel() domain.Channel { return domain.ChannelOutlook }

func (o *Outlook) Draft(_ context.Context, subject, body, to string) (domain.Message, error) {
	return draftMessage(o.clientSlug, domain.ChannelOutlook, subject, body, to, o.now()), nil
}

func (o *Outlook) Send(_ context.Context, msg domain.Message) (domain.Message, error) {
	sent := sendLocal(msg, o.now())
	o.logger.Debug("outlook send", zap.String("messageId", sent.ID), zap.String("status", sent.Status.String()))
	return sent, nil
}

func (o *Outlook) ListReplies(context.Context, time.Time) ([]domain.Message, error) {
	return []domain.Message{}, nil
}

func buildMIME(from, to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return b.String()
}
