package repository

import (
	"context"

	"faktura/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BillingSettingsRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*model.BillingSettings, error)
}

type billingSettingsRepo struct{ db *gorm.DB }

func NewBillingSettingsRepository(db *gorm.DB) BillingSettingsRepository {
	return &billingSettingsRepo{db: db}
}

func (r *billingSettingsRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.BillingSettings, error) {
	var s model.BillingSettings
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error
	return &s, err
}
