package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/outreach-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VariantStatRepository interface {
	Get(ctx context.Context, variantSet, variantID string) (domain.VariantStat, error)
	Increment(ctx context.Context, variantSet, variantID string, column domain.StatColumn) error
	List(ctx context.Context) ([]domain.VariantStat, error)
}

type GormVariantStatRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormVariantStatRepo(db *gorm.DB) *GormVariantStatRepo {
	return &GormVariantStatRepo{db: db, now: time.Now}
}

// Get returns a zero stat for a variant that has no row yet.
func (r *GormVariantStatRepo) Get(ctx context.Context, variantSet, variantID string) (domain.VariantStat, error) {
	var model VariantStatModel
	err := r.db.WithContext(ctx).
		Where("variant_set = ? AND variant_id = ?", variantSet, variantID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.VariantStat{VariantSet: variantSet, VariantID: variantID}, nil
	}
	if err != nil {
		return domain.VariantStat{}, err
	}
	return variantStatModelToDomain(&model), nil
}

// Increment creates the row on first reference and bumps a single counter.
func (r *GormVariantStatRepo) Increment(ctx context.Context, variantSet, variantID string, column domain.StatColumn) error {
	switch column {
	case domain.StatSent, domain.StatOpens, domain.StatReplies, domain.StatMeetings:
	default:
		return fmt.Errorf("%w: unknown stat column %q", domain.ErrValidation, column)
	}

	now := r.now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := VariantStatModel{VariantSet: variantSet, VariantID: variantID, LastUpdated: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return err
		}

		col := string(column)
		return tx.Model(&VariantStatModel{}).
			Where("variant_set = ? AND variant_id = ?", variantSet, variantID).
			Updates(map[string]any{
				col:            gorm.Expr(col + " + 1"),
				"last_updated": now,
			}).Error
	})
}

func (r *GormVariantStatRepo) List(ctx context.Context) ([]domain.VariantStat, error) {
	var models []VariantStatModel
	err := r.db.WithContext(ctx).
		Order("variant_set ASC, variant_id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	stats := make([]domain.VariantStat, 0, len(models))
	for i := range models {
		stats = append(stats, variantStatModelToDomain(&models[i]))
	}
	return stats, nil
}
