package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"faktura/internal/billing"
	"faktura/internal/generation"
	"faktura/internal/model"
	"faktura/internal/repository"
)

// Cancellation failures surfaced to the API layer.
var (
	ErrInvoiceNotFound      = errors.New("Rechnung nicht gefunden")
	ErrAlreadyCancelled     = errors.New("Rechnung ist bereits storniert")
	ErrCancelOfCancellation = errors.New("Stornorechnungen können nicht storniert werden")
)

// CancellationService reverses an invoice: it generates a cancellation
// invoice with negated amounts and marks the original as cancelled,
// both inside a single transaction.
type CancellationService interface {
	// Cancel returns the cancellation invoice's number. Calling it again
	// for the same invoice returns the existing cancellation's number.
	Cancel(ctx context.Context, userID uuid.UUID, invoiceNumber, reason string) (string, error)
}

type cancellationService struct {
	invoices  repository.InvoiceRepository
	customers repository.CustomerRepository
	settings  repository.BillingSettingsRepository
	gen       generation.Service
}

func NewCancellationService(
	invoices repository.InvoiceRepository,
	customers repository.CustomerRepository,
	settings repository.BillingSettingsRepository,
	gen generation.Service,
) CancellationService {
	return &cancellationService{invoices: invoices, customers: customers, settings: settings, gen: gen}
}

func (s *cancellationService) Cancel(ctx context.Context, userID uuid.UUID, invoiceNumber, reason string) (string, error) {
	original, err := s.invoices.FindByNumber(ctx, userID, invoiceNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvoiceNotFound
		}
		return "", err
	}
	if original.IsCancellation {
		return "", ErrCancelOfCancellation
	}
	if original.Status == model.StatusStorniert {
		// A cancellation invoice may already exist from an earlier request
		// that the caller never saw the response of; hand back its number.
		if existing, ferr := s.invoices.FindCancellationOf(ctx, userID, invoiceNumber); ferr == nil {
			return existing.InvoiceNumber, nil
		}
		return "", ErrAlreadyCancelled
	}
	if existing, ferr := s.invoices.FindCancellationOf(ctx, userID, invoiceNumber); ferr == nil {
		return existing.InvoiceNumber, nil
	}

	// The cancellation document carries the same parties as the original;
	// both must still resolve before anything is written.
	if _, err := s.customers.FindByID(ctx, userID, original.CustomerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrCustomerNotFound
		}
		return "", err
	}
	if _, err := s.settings.FindByUserID(ctx, userID); err != nil {
		return "", fmt.Errorf("cancellation: load billing settings: %w", err)
	}

	positions := negatedPositions(original)
	intro := fmt.Sprintf("Stornorechnung zur Rechnung %s vom %s.",
		original.InvoiceNumber, original.Date.Format("02.01.2006"))
	if reason != "" {
		intro += " Grund: " + reason
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	cancelsNumber := original.InvoiceNumber

	var cancellation *model.Invoice
	err = runTx(ctx, s.invoices.DB(), func(tx *gorm.DB) error {
		inv, err := s.gen.GenerateIn(ctx, tx, userID, generation.Request{
			CustomerID: original.CustomerID,
			Positions:  positions,
			Meta: generation.Meta{
				Date:                 time.Now(),
				Title:                "Stornorechnung zu " + original.InvoiceNumber,
				Intro:                intro,
				Currency:             original.Currency,
				TaxRate:              original.TaxRate,
				Discount:             model.Discount{}, // already baked into the line amounts
				Commit:               true,
				IdempotencyKey:       "cancel:" + original.InvoiceNumber,
				IsCancellation:       true,
				CancelsInvoiceNumber: &cancelsNumber,
				CancellationReason:   reasonPtr,
			},
		})
		if err != nil {
			return err
		}

		now := time.Now()
		original.Status = model.StatusStorniert
		original.CancelledByInvoiceNumber = &inv.InvoiceNumber
		original.CancelledAt = &now
		if err := s.invoices.Update(ctx, tx, original); err != nil {
			return err
		}

		// The cancellation must come out of generation as a live document
		// pointing at the original. Anything else means the linkage writes
		// raced or the generation contract changed; abort the transaction.
		if inv.Status != model.StatusErstellt || !inv.IsCancellation ||
			inv.CancelsInvoiceNumber == nil || *inv.CancelsInvoiceNumber != original.InvoiceNumber {
			return fmt.Errorf("cancellation: inconsistent state for %s", inv.InvoiceNumber)
		}

		cancellation = inv
		return nil
	})
	if err != nil {
		// A concurrent cancel of the same invoice committed first. Our
		// transaction rolled back, so its cancellation is visible now.
		if errors.Is(err, generation.ErrDuplicateRequest) {
			if existing, ferr := s.invoices.FindCancellationOf(ctx, userID, invoiceNumber); ferr == nil {
				return existing.InvoiceNumber, nil
			}
		}
		return "", err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("invoice_number", original.InvoiceNumber).
		Str("cancellation_invoice_number", cancellation.InvoiceNumber).
		Msg("cancellation: invoice cancelled")
	return cancellation.InvoiceNumber, nil
}

// negatedPositions re-runs discount allocation against the original's
// stored positions and then flips the sign of every item line, so the
// cancellation mirrors exactly what was charged — discount included.
func negatedPositions(original *model.Invoice) []model.LineItem {
	allocated := billing.Allocate(original.Positions, original.Discount, original.TaxRate)
	for i := range allocated {
		if allocated[i].Kind == model.KindItem {
			allocated[i].UnitPrice = allocated[i].UnitPrice.Neg()
		}
	}
	return allocated
}

// runTx executes fn inside a transaction, or directly with a nil tx when
// no database handle is present (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}
