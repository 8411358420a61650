package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, m *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	Save(ctx context.Context, m *domain.Message) error
	ListByStatus(ctx context.Context, statuses []domain.Status, limit int) ([]domain.Message, error)
	CountByStatus(ctx context.Context, status domain.Status) (int64, error)
	CountApprovedSince(ctx context.Context, since time.Time) (int64, error)
}

type GormMessageRepo struct {
	db *gorm.DB
}

func NewGormMessageRepo(db *gorm.DB) *GormMessageRepo {
	return &GormMessageRepo{db: db}
}

func (r *GormMessageRepo) Create(ctx context.Context, m *domain.Message) error {
	model := messageModelFromDomain(m)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if m != nil {
		*m = *messageModelToDomain(model)
	}
	return nil
}

func (r *GormMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	var model MessageModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return messageModelToDomain(&model), nil
}

// Save persists the mutable parts of a message: status, meta and approval
// time. Subject and body are fixed once drafted.
func (r *GormMessageRepo) Save(ctx context.Context, m *domain.Message) error {
	if m == nil {
		return domain.ErrValidation
	}
	model := messageModelFromDomain(m)
	result := r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Where("id = ?", m.ID).
		Updates(map[string]any{
			"status":      model.Status,
			"meta":        model.Meta,
			"approved_at": model.ApprovedAt,
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormMessageRepo) ListByStatus(ctx context.Context, statuses []domain.Status, limit int) ([]domain.Message, error) {
	if limit < 1 {
		limit = 100
	}

	var models []MessageModel
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(models))
	for i := range models {
		messages = append(messages, *messageModelToDomain(&models[i]))
	}
	return messages, nil
}

func (r *GormMessageRepo) CountByStatus(ctx context.Context, status domain.Status) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

// CountApprovedSince counts messages whose approval happened at or after
// since, regardless of their current status.
func (r *GormMessageRepo) CountApprovedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Where("approved_at IS NOT NULL AND approved_at >= ?", since.UTC()).
		Count(&count).Error
	return count, err
}
