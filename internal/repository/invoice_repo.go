package repository

import (
	"context"
	"fmt"

	"faktura/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvoiceRepository interface {
	Create(ctx context.Context, tx *gorm.DB, inv *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindByNumber(ctx context.Context, userID uuid.UUID, number string) (*model.Invoice, error)
	FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*model.Invoice, error)
	// FindCancellationOf returns the cancellation invoice referencing the
	// given invoice number, if one exists.
	FindCancellationOf(ctx context.Context, userID uuid.UUID, number string) (*model.Invoice, error)
	NextInvoiceNumber(ctx context.Context, tx *gorm.DB, userID uuid.UUID, year int) (string, error)
	Update(ctx context.Context, tx *gorm.DB, inv *model.Invoice) error
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type invoiceRepo struct{ db *gorm.DB }

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository { return &invoiceRepo{db: db} }

func (r *invoiceRepo) DB() *gorm.DB { return r.db }

func (r *invoiceRepo) Create(ctx context.Context, tx *gorm.DB, inv *model.Invoice) error {
	return tx.WithContext(ctx).Create(inv).Error
}

func (r *invoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).First(&inv, "id = ?", id).Error
	return &inv, err
}

func (r *invoiceRepo) FindByNumber(ctx context.Context, userID uuid.UUID, number string) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND invoice_number = ?", userID, number).
		First(&inv).Error
	return &inv, err
}

func (r *invoiceRepo) FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&inv).Error
	return &inv, err
}

func (r *invoiceRepo) FindCancellationOf(ctx context.Context, userID uuid.UUID, number string) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_cancellation AND cancels_invoice_number = ?", userID, number).
		First(&inv).Error
	return &inv, err
}

// NextInvoiceNumber assigns the next sequential number for the user and
// year ("RE-2025-0042"). Runs inside the caller's transaction; the unique
// index on (user_id, invoice_number) catches the rare concurrent clash.
func (r *invoiceRepo) NextInvoiceNumber(ctx context.Context, tx *gorm.DB, userID uuid.UUID, year int) (string, error) {
	prefix := fmt.Sprintf("RE-%d-", year)
	var count int64
	err := tx.WithContext(ctx).Model(&model.Invoice{}).
		Where("user_id = ? AND invoice_number LIKE ?", userID, prefix+"%").
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func (r *invoiceRepo) Update(ctx context.Context, tx *gorm.DB, inv *model.Invoice) error {
	return tx.WithContext(ctx).Save(inv).Error
}
