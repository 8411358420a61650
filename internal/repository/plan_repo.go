package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PlanRepository interface {
	Save(ctx context.Context, plan domain.OutreachPlan) (string, error)
	Latest(ctx context.Context, clientSlug string) (*domain.OutreachPlan, error)
}

type GormPlanRepo struct {
	db *gorm.DB
}

func NewGormPlanRepo(db *gorm.DB) *GormPlanRepo {
	return &GormPlanRepo{db: db}
}

// Save stores the plan as a JSON document and returns the row id.
func (r *GormPlanRepo) Save(ctx context.Context, plan domain.OutreachPlan) (string, error) {
	doc, err := json.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("encode plan: %w", err)
	}

	model := PlanModel{
		ID:          uuid.NewString(),
		ClientSlug:  plan.ClientSlug,
		GeneratedAt: plan.GeneratedAt.UTC(),
		Document:    datatypes.JSON(doc),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", err
	}
	return model.ID, nil
}

func (r *GormPlanRepo) Latest(ctx context.Context, clientSlug string) (*domain.OutreachPlan, error) {
	var model PlanModel
	err := r.db.WithContext(ctx).
		Where("client_slug = ?", clientSlug).
		Order("generated_at DESC, created_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var plan domain.OutreachPlan
	if err := json.Unmarshal(model.Document, &plan); err != nil {
		return nil, fmt.Errorf("decode plan %s: %w", model.ID, err)
	}
	return &plan, nil
}
