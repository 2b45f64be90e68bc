package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"faktura/internal/dto"
	"faktura/internal/einvoice"
	"faktura/internal/infra"
	"faktura/internal/money"
	"faktura/internal/repository"
)

var (
	ErrCustomerNotFound   = errors.New("Kunde nicht gefunden")
	ErrBadEInvoicePayload = errors.New("weder Rechnungsnummer noch vollständige Rechnungsdaten angegeben")
)

// EInvoiceService produces XRechnung XML for a stored invoice or a raw
// payload, stores the document, and hands back a signed download link.
type EInvoiceService interface {
	Generate(ctx context.Context, userID uuid.UUID, req dto.EInvoiceRequest) (*dto.EInvoiceResponse, error)
}

type einvoiceService struct {
	invoices  repository.InvoiceRepository
	customers repository.CustomerRepository
	settings  repository.BillingSettingsRepository
	store     infra.DocumentStore
	urlTTL    time.Duration
}

func NewEInvoiceService(
	invoices repository.InvoiceRepository,
	customers repository.CustomerRepository,
	settings repository.BillingSettingsRepository,
	store infra.DocumentStore,
	urlTTL time.Duration,
) EInvoiceService {
	return &einvoiceService{
		invoices:  invoices,
		customers: customers,
		settings:  settings,
		store:     store,
		urlTTL:    urlTTL,
	}
}

func (s *einvoiceService) Generate(ctx context.Context, userID uuid.UUID, req dto.EInvoiceRequest) (*dto.EInvoiceResponse, error) {
	var (
		doc        einvoice.Document
		customerID uuid.UUID
		err        error
	)
	switch {
	case req.InvoiceNumber != "":
		doc, customerID, err = s.fromStored(ctx, userID, req.InvoiceNumber)
	case req.Meta != nil && req.CustomerID != "":
		doc, customerID, err = fromPayload(req)
	default:
		err = ErrBadEInvoicePayload
	}
	if err != nil {
		return nil, err
	}

	supplier, err := s.settings.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &einvoice.MissingFieldError{Field: "company_name"}
		}
		return nil, err
	}
	customer, err := s.customers.FindByID(ctx, userID, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}

	xmlData, err := einvoice.Build(doc, supplier, customer)
	if err != nil {
		return nil, err
	}

	filename := doc.Number + ".xml"
	storagePath := fmt.Sprintf("rechnung/e-rechnung/%s/%s", userID, filename)
	if err := s.store.Save(ctx, storagePath, xmlData); err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("invoice_number", doc.Number).
		Str("storage_path", storagePath).
		Msg("einvoice: document stored")

	return &dto.EInvoiceResponse{
		Filename:    filename,
		StoragePath: storagePath,
		DownloadURL: s.store.SignedURL(storagePath, s.urlTTL),
	}, nil
}

func (s *einvoiceService) fromStored(ctx context.Context, userID uuid.UUID, number string) (einvoice.Document, uuid.UUID, error) {
	inv, err := s.invoices.FindByNumber(ctx, userID, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return einvoice.Document{}, uuid.Nil, ErrInvoiceNotFound
		}
		return einvoice.Document{}, uuid.Nil, err
	}
	return einvoice.Document{
		Number:         inv.InvoiceNumber,
		IssueDate:      inv.Date,
		Currency:       inv.Currency,
		TaxRate:        inv.TaxRate,
		Positions:      inv.Positions,
		Discount:       inv.Discount,
		Note:           inv.Intro,
		IsCancellation: inv.IsCancellation,
		CancelsNumber:  inv.CancelsInvoiceNumber,
	}, inv.CustomerID, nil
}

func fromPayload(req dto.EInvoiceRequest) (einvoice.Document, uuid.UUID, error) {
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return einvoice.Document{}, uuid.Nil, fmt.Errorf("ungültige Kundennummer: %w", err)
	}
	positions, err := dto.ToLineItems(req.Positions)
	if err != nil {
		return einvoice.Document{}, uuid.Nil, err
	}
	discount, err := req.Meta.Discount.ToDiscount()
	if err != nil {
		return einvoice.Document{}, uuid.Nil, err
	}

	taxRate := decimal.Zero
	if req.Meta.TaxRate != "" {
		if taxRate, err = money.Parse(req.Meta.TaxRate); err != nil {
			return einvoice.Document{}, uuid.Nil, fmt.Errorf("Steuersatz: %w", err)
		}
	}
	issueDate := time.Now()
	if req.Meta.Date != "" {
		if issueDate, err = time.Parse("2006-01-02", req.Meta.Date); err != nil {
			return einvoice.Document{}, uuid.Nil, fmt.Errorf("Rechnungsdatum: %w", err)
		}
	}
	if req.Meta.Number == "" {
		return einvoice.Document{}, uuid.Nil, ErrBadEInvoicePayload
	}

	return einvoice.Document{
		Number:    req.Meta.Number,
		IssueDate: issueDate,
		Currency:  req.Meta.Currency,
		TaxRate:   taxRate,
		Positions: positions,
		Discount:  discount,
	}, customerID, nil
}
