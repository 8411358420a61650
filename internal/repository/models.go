package repository

import (
	"time"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"gorm.io/datatypes"
)

// MessageModel is the persistence model for the messages table.
type MessageModel struct {
	ID         string            `gorm:"type:varchar(36);primaryKey"`
	ClientSlug string            `gorm:"type:varchar(100);not null"`
	ContactID  string            `gorm:"type:varchar(100);not null"`
	Channel    domain.Channel    `gorm:"type:varchar(20);not null"`
	Role       domain.Role       `gorm:"type:varchar(20);not null"`
	Subject    string            `gorm:"type:text"`
	Body       string            `gorm:"type:text"`
	Status     domain.Status     `gorm:"type:varchar(20);not null"`
	Meta       datatypes.JSONMap `gorm:"type:json"`
	TS         time.Time         `gorm:"column:ts;not null"`
	ApprovedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (MessageModel) TableName() string {
	return "messages"
}

// EventModel is the persistence model for the events table. Rows are keyed by
// event id, so a replayed event replaces its earlier row.
type EventModel struct {
	ID         string            `gorm:"type:varchar(36);primaryKey"`
	ClientSlug string            `gorm:"type:varchar(100);not null"`
	Kind       domain.EventKind  `gorm:"type:varchar(30);not null"`
	ContactID  string            `gorm:"type:varchar(100)"`
	MessageID  string            `gorm:"type:varchar(36)"`
	TS         time.Time         `gorm:"column:ts;not null"`
	Meta       datatypes.JSONMap `gorm:"type:json"`
	CreatedAt  time.Time
}

func (EventModel) TableName() string {
	return "events"
}

// VariantStatModel is keyed by (variant_set, variant_id).
type VariantStatModel struct {
	VariantSet  string `gorm:"type:varchar(100);primaryKey"`
	VariantID   string `gorm:"type:varchar(100);primaryKey"`
	Sent        int    `gorm:"not null;default:0"`
	Opens       int    `gorm:"not null;default:0"`
	Replies     int    `gorm:"not null;default:0"`
	Meetings    int    `gorm:"not null;default:0"`
	LastUpdated time.Time
}

func (VariantStatModel) TableName() string {
	return "variant_stats"
}

// PlanModel stores each generated plan as a JSON document.
type PlanModel struct {
	ID          string         `gorm:"type:varchar(36);primaryKey"`
	ClientSlug  string         `gorm:"type:varchar(100);not null"`
	GeneratedAt time.Time      `gorm:"not null"`
	Document    datatypes.JSON `gorm:"type:json;not null"`
	CreatedAt   time.Time
}

func (PlanModel) TableName() string {
	return "plans"
}

// RunModel is the persistence model for the runs table.
type RunModel struct {
	ID         string           `gorm:"type:varchar(36);primaryKey"`
	ClientSlug string           `gorm:"type:varchar(100);not null"`
	Status     domain.RunStatus `gorm:"type:varchar(20);not null"`
	Contacts   int              `gorm:"not null;default:0"`
	Targeted   int              `gorm:"not null;default:0"`
	Drafted    int              `gorm:"not null;default:0"`
	Error      *string          `gorm:"type:text"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (RunModel) TableName() string {
	return "runs"
}

// SendAttemptModel is the persistence model for send_attempts.
type SendAttemptModel struct {
	ID            string  `gorm:"type:varchar(36);primaryKey"`
	MessageID     string  `gorm:"type:varchar(36);not null"`
	AttemptNumber int     `gorm:"not null"`
	Transient     bool    `gorm:"not null;default:false"`
	Error         *string `gorm:"type:text"`
	CreatedAt     time.Time
}

func (SendAttemptModel) TableName() string {
	return "send_attempts"
}

func messageModelFromDomain(m *domain.Message) *MessageModel {
	if m == nil {
		return nil
	}

	return &MessageModel{
		ID:         m.ID,
		ClientSlug: m.ClientSlug,
		ContactID:  m.ContactID,
		Channel:    m.Channel,
		Role:       m.Role,
		Subject:    m.Subject,
		Body:       m.Body,
		Status:     m.Status,
		Meta:       datatypes.JSONMap(copyMeta(m.Meta)),
		TS:         m.TS,
		ApprovedAt: m.ApprovedAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func messageModelToDomain(m *MessageModel) *domain.Message {
	if m == nil {
		return nil
	}

	return &domain.Message{
		ID:         m.ID,
		ClientSlug: m.ClientSlug,
		ContactID:  m.ContactID,
		Channel:    m.Channel,
		Role:       m.Role,
		Subject:    m.Subject,
		Body:       m.Body,
		Status:     m.Status,
		Meta:       copyMeta(m.Meta),
		TS:         m.TS,
		ApprovedAt: m.ApprovedAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func eventModelFromDomain(e *domain.Event) *EventModel {
	if e == nil {
		return nil
	}

	return &EventModel{
		ID:         e.ID,
		ClientSlug: e.ClientSlug,
		Kind:       e.Kind,
		ContactID:  e.ContactID,
		MessageID:  e.MessageID,
		TS:         e.TS,
		Meta:       datatypes.JSONMap(copyMeta(e.Meta)),
	}
}

func eventModelToDomain(m *EventModel) *domain.Event {
	if m == nil {
		return nil
	}

	return &domain.Event{
		ID:         m.ID,
		ClientSlug: m.ClientSlug,
		Kind:       m.Kind,
		ContactID:  m.ContactID,
		MessageID:  m.MessageID,
		TS:         m.TS,
		Meta:       copyMeta(m.Meta),
	}
}

func variantStatModelToDomain(m *VariantStatModel) domain.VariantStat {
	return domain.VariantStat{
		VariantSet:  m.VariantSet,
		VariantID:   m.VariantID,
		Sent:        m.Sent,
		Opens:       m.Opens,
		Replies:     m.Replies,
		Meetings:    m.Meetings,
		LastUpdated: m.LastUpdated,
	}
}

func runModelFromDomain(r *domain.Run) *RunModel {
	if r == nil {
		return nil
	}

	return &RunModel{
		ID:         r.ID,
		ClientSlug: r.ClientSlug,
		Status:     r.Status,
		Contacts:   r.Contacts,
		Targeted:   r.Targeted,
		Drafted:    r.Drafted,
		Error:      r.Error,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func runModelToDomain(m *RunModel) *domain.Run {
	if m == nil {
		return nil
	}

	return &domain.Run{
		ID:         m.ID,
		ClientSlug: m.ClientSlug,
		Status:     m.Status,
		Contacts:   m.Contacts,
		Targeted:   m.Targeted,
		Drafted:    m.Drafted,
		Error:      m.Error,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func attemptModelFromDomain(a *domain.SendAttempt) *SendAttemptModel {
	if a == nil {
		return nil
	}

	return &SendAttemptModel{
		ID:            a.ID,
		MessageID:     a.MessageID,
		AttemptNumber: a.AttemptNumber,
		Transient:     a.Transient,
		Error:         a.Error,
		CreatedAt:     a.CreatedAt,
	}
}

func attemptModelToDomain(m *SendAttemptModel) *domain.SendAttempt {
	if m == nil {
		return nil
	}

	return &domain.SendAttempt{
		ID:            m.ID,
		MessageID:     m.MessageID,
		AttemptNumber: m.AttemptNumber,
		Transient:     m.Transient,
		Error:         m.Error,
		CreatedAt:     m.CreatedAt,
	}
}

func copyMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
