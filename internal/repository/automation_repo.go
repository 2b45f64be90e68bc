package repository

import (
	"context"
	"time"

	"faktura/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AutomationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Automation, error)
	// ListDue returns all active automations whose next run date has been
	// reached as of the given day.
	ListDue(ctx context.Context, asOf time.Time) ([]model.Automation, error)
	// Claim atomically sets a processing lease on the automation. Returns
	// false when another run already holds a live lease — the caller must
	// then skip the row. This is what makes overlapping batch triggers safe.
	Claim(ctx context.Context, id uuid.UUID, now time.Time, lease time.Duration) (bool, error)
	Update(ctx context.Context, a *model.Automation) error
}

type automationRepo struct{ db *gorm.DB }

func NewAutomationRepository(db *gorm.DB) AutomationRepository { return &automationRepo{db: db} }

func (r *automationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Automation, error) {
	var a model.Automation
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	return &a, err
}

func (r *automationRepo) ListDue(ctx context.Context, asOf time.Time) ([]model.Automation, error) {
	var due []model.Automation
	err := r.db.WithContext(ctx).
		Where("active AND next_run_date IS NOT NULL AND next_run_date <= ?", asOf).
		Order("next_run_date ASC").
		Find(&due).Error
	return due, err
}

func (r *automationRepo) Claim(ctx context.Context, id uuid.UUID, now time.Time, lease time.Duration) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Automation{}).
		Where("id = ? AND active AND (claimed_until IS NULL OR claimed_until < ?)", id, now).
		Update("claimed_until", now.Add(lease))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *automationRepo) Update(ctx context.Context, a *model.Automation) error {
	return r.db.WithContext(ctx).Save(a).Error
}
