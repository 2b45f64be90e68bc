package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice statuses. A cancellation invoice is itself a live document and
// therefore stays in StatusErstellt; only the reversed original moves to
// StatusStorniert.
const (
	StatusErstellt  = "Erstellt"
	StatusStorniert = "Storniert"
)

// Invoice is a persisted, numbered billing document owned by exactly one
// issuing user. Positions and Discount are stored as JSON columns.
type Invoice struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID        uuid.UUID `gorm:"type:uuid;index:idx_invoices_user_number,unique;index:idx_invoices_user_idem,unique;not null"`
	InvoiceNumber string    `gorm:"type:varchar(40);index:idx_invoices_user_number,unique;not null"`
	CustomerID    uuid.UUID `gorm:"type:uuid;index;not null"`

	Title    string `gorm:"type:varchar(200)"`
	Intro    string `gorm:"type:text"`
	Date     time.Time
	Currency string `gorm:"type:varchar(3);not null;default:'EUR'"`

	Positions []LineItem      `gorm:"serializer:json"`
	Discount  Discount        `gorm:"serializer:json"`
	TaxRate   decimal.Decimal `gorm:"type:decimal(5,2);not null"`

	Status string `gorm:"type:varchar(20);not null;default:'Erstellt'"`

	// Cancellation linkage. IsCancellation marks a reversing document;
	// an invoice has at most one cancellation invoice referencing it.
	IsCancellation            bool    `gorm:"not null;default:false"`
	CancelsInvoiceNumber      *string `gorm:"type:varchar(40);index"`
	CancelledByInvoiceNumber  *string `gorm:"type:varchar(40)"`
	CancellationReason        *string `gorm:"type:text"`
	CancelledAt               *time.Time

	// IdempotencyKey guarantees at-most-one invoice per generation request.
	// Unique together with UserID: invoice numbers repeat across users, so
	// derived keys like "cancel:RE-2025-0001" do too.
	IdempotencyKey *string `gorm:"type:varchar(120);index:idx_invoices_user_idem,unique"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
