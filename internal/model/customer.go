package model

import (
	"time"

	"github.com/google/uuid"
)

// Customer is read-only input to the billing core: the recipient of an
// invoice, with billing address, notification preference and optional
// e-invoicing routing identifiers.
type Customer struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null"`

	Name        string  `gorm:"type:varchar(200);not null"`
	Email       *string `gorm:"type:varchar(200)"`
	Street      string  `gorm:"type:varchar(200)"`
	HouseNumber string  `gorm:"type:varchar(20)"`
	PostalCode  string  `gorm:"type:varchar(10)"`
	City        string  `gorm:"type:varchar(100)"`
	CountryCode string  `gorm:"type:varchar(2);not null;default:'DE'"`
	VATID       *string `gorm:"type:varchar(20);column:vat_id"`

	// AutoSendInvoices is an opt-OUT flag: nil (no preference) counts as
	// consent; only an explicit false suppresses notification.
	AutoSendInvoices *bool

	// E-invoicing routing (public-sector recipients).
	BuyerReference   *string `gorm:"type:varchar(100)"`
	OrderReference   *string `gorm:"type:varchar(100)"`
	EndpointID       *string `gorm:"type:varchar(50)"`  // e.g. Leitweg-ID
	EndpointSchemeID *string `gorm:"type:varchar(10)"`  // e.g. "0204"

	CreatedAt time.Time
	UpdatedAt time.Time
}

// WantsInvoiceEmail implements the opt-out rule: send only when an email
// address exists and the customer has not explicitly declined.
func (c *Customer) WantsInvoiceEmail() bool {
	if c.Email == nil || *c.Email == "" {
		return false
	}
	return c.AutoSendInvoices == nil || *c.AutoSendInvoices
}
