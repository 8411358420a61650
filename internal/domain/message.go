package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of an outreach message.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusApproved Status = "approved"
	StatusQueued   Status = "queued"
	StatusSent     Status = "sent"
	StatusFailed   Status = "failed"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusApproved, StatusQueued, StatusSent, StatusFailed:
		return true
	}
	return false
}

// IsSendable reports whether a send attempt may start from this status.
func (s Status) IsSendable() bool {
	switch s {
	case StatusDraft, StatusApproved, StatusQueued:
		return true
	}
	return false
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Channel represents the mail transport a message goes through.
type Channel string

const (
	ChannelGmail   Channel = "gmail"
	ChannelOutlook Channel = "outlook"
	ChannelWebhook Channel = "webhook"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelGmail, ChannelOutlook, ChannelWebhook:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToLower(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// Role of the message author in a conversation thread.
type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Meta keys carried on messages.
const (
	MetaVariantID  = "variant_id"
	MetaVariantSet = "variant_set"
	MetaTo         = "to"
	MetaSentAt     = "sent_at"
	MetaError      = "error"
	MetaInReplyTo  = "in_reply_to"
	MetaTransport  = "transport"
	MetaFallback   = "render_fallback"
)

const ErrInvalidStatusForSend = "invalid-status-for-send"

// Message is one outbound (or inbound reply) message of a tenant.
type Message struct {
	ID         string
	ClientSlug string
	ContactID  string
	Channel    Channel
	Role       Role
	Subject    string
	Body       string
	Status     Status
	Meta       map[string]any
	TS         time.Time
	ApprovedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (m *Message) Validate() error {
	if strings.TrimSpace(m.ClientSlug) == "" {
		return fmt.Errorf("%w: client slug is required", ErrValidation)
	}
	if strings.TrimSpace(m.ContactID) == "" {
		return fmt.Errorf("%w: contact id is required", ErrValidation)
	}
	if !m.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, m.Channel)
	}
	if !m.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, m.Status)
	}
	return nil
}

func (m *Message) SetMeta(key string, value any) {
	if m.Meta == nil {
		m.Meta = make(map[string]any)
	}
	m.Meta[key] = value
}

func (m *Message) MetaString(key string) string {
	if m.Meta == nil {
		return ""
	}
	v, ok := m.Meta[key].(string)
	if !ok {
		return ""
	}
	return v
}

// Attribution returns the variant the message was rendered from. The set
// defaults to the baseline set when only a variant id was recorded.
func (m *Message) Attribution() (variantSet string, variantID string, ok bool) {
	variantID = m.MetaString(MetaVariantID)
	if variantID == "" {
		return "", "", false
	}
	variantSet = m.MetaString(MetaVariantSet)
	if variantSet == "" {
		variantSet = DefaultVariantSet
	}
	return variantSet, variantID, true
}

// RejectSend moves the message to failed when its status cannot be sent.
// It returns false when the message was rejected.
func (m *Message) RejectSend() bool {
	if m.Status.IsSendable() {
		return true
	}
	m.Status = StatusFailed
	m.SetMeta(MetaError, ErrInvalidStatusForSend)
	return false
}

func (m *Message) MarkSent(at time.Time) {
	m.Status = StatusSent
	m.SetMeta(MetaSentAt, at.UTC().Format(time.RFC3339Nano))
}
