package model

import (
	"time"

	"github.com/google/uuid"
)

// BillingSettings is the issuing user's supplier template: legal identity,
// address, tax and payment data printed on every outgoing document.
// The e-invoice serializer refuses to run when required fields are empty.
type BillingSettings struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`

	CompanyName string `gorm:"type:varchar(200)"`
	Street      string `gorm:"type:varchar(200)"`
	HouseNumber string `gorm:"type:varchar(20)"`
	PostalCode  string `gorm:"type:varchar(10)"`
	City        string `gorm:"type:varchar(100)"`
	CountryCode string `gorm:"type:varchar(2);not null;default:'DE'"`

	VATID string `gorm:"type:varchar(20);column:vat_id"`
	IBAN  string `gorm:"type:varchar(34);column:iban"`
	BIC   string `gorm:"type:varchar(11);column:bic"`

	Email string `gorm:"type:varchar(200)"`
	Phone string `gorm:"type:varchar(50)"`

	// Kleinunternehmer per §19 UStG — invoices carry 0% tax.
	SmallBusiness bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
