package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"gorm.io/gorm"
)

type RunRepository interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id string) (*domain.Run, error)
	Finish(ctx context.Context, run *domain.Run) error
	Latest(ctx context.Context) (*domain.Run, error)
}

type GormRunRepo struct {
	db *gorm.DB
}

func NewGormRunRepo(db *gorm.DB) *GormRunRepo {
	return &GormRunRepo{db: db}
}

func (r *GormRunRepo) Create(ctx context.Context, run *domain.Run) error {
	model := runModelFromDomain(run)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if run != nil {
		*run = *runModelToDomain(model)
	}
	return nil
}

func (r *GormRunRepo) GetByID(ctx context.Context, id string) (*domain.Run, error) {
	var model RunModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return runModelToDomain(&model), nil
}

// Finish writes the final status and counters of a run.
func (r *GormRunRepo) Finish(ctx context.Context, run *domain.Run) error {
	if run == nil {
		return domain.ErrValidation
	}
	result := r.db.WithContext(ctx).
		Model(&RunModel{}).
		Where("id = ?", run.ID).
		Updates(map[string]any{
			"status":   run.Status,
			"contacts": run.Contacts,
			"targeted": run.Targeted,
			"drafted":  run.Drafted,
			"error":    run.Error,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormRunRepo) Latest(ctx context.Context) (*domain.Run, error) {
	var model RunModel
	err := r.db.WithContext(ctx).Order("created_at DESC").First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return runModelToDomain(&model), nil
}
