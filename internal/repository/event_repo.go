package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventRepository interface {
	Create(ctx context.Context, e *domain.Event) error
	CountByKind(ctx context.Context, kind domain.EventKind) (int64, error)
	LastTS(ctx context.Context, kind domain.EventKind) (*time.Time, error)
	ListByMessageID(ctx context.Context, messageID string) ([]domain.Event, error)
}

type GormEventRepo struct {
	db *gorm.DB
}

func NewGormEventRepo(db *gorm.DB) *GormEventRepo {
	return &GormEventRepo{db: db}
}

// Create stores the event, replacing any row with the same id so replayed
// events do not fail.
func (r *GormEventRepo) Create(ctx context.Context, e *domain.Event) error {
	model := eventModelFromDomain(e)
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error; err != nil {
		return err
	}
	if e != nil {
		*e = *eventModelToDomain(model)
	}
	return nil
}

func (r *GormEventRepo) CountByKind(ctx context.Context, kind domain.EventKind) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&EventModel{}).
		Where("kind = ?", kind).
		Count(&count).Error
	return count, err
}

// LastTS returns nil when no event of kind exists.
func (r *GormEventRepo) LastTS(ctx context.Context, kind domain.EventKind) (*time.Time, error) {
	var model EventModel
	err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("ts DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ts := model.TS
	return &ts, nil
}

func (r *GormEventRepo) ListByMessageID(ctx context.Context, messageID string) ([]domain.Event, error) {
	var models []EventModel
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("ts ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, len(models))
	for i := range models {
		events = append(events, *eventModelToDomain(&models[i]))
	}
	return events, nil
}
