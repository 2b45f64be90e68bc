// Package generation is the invoice generation service: it turns a
// {customer, positions, meta} request into a numbered, persisted invoice.
// It runs in-process — callers compose it into their own transactions
// instead of calling back over the network — and guarantees at most one
// persisted invoice per (user, idempotency key).
package generation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"faktura/internal/model"
	"faktura/internal/repository"
)

// Validation failures surfaced to the API layer.
var (
	ErrNoCustomer      = errors.New("Kunde fehlt")
	ErrNoPositions     = errors.New("Positionen fehlen")
	ErrInvalidDiscount = errors.New("Rabattwert darf nicht negativ sein")
	ErrInvalidTaxRate  = errors.New("Steuersatz darf nicht negativ sein")
)

// ErrDuplicateRequest reports that a concurrent request with the same
// idempotency key won the insert race. The Postgres transaction it
// surfaced in is aborted at that point, so callers of GenerateIn must
// look up the winning invoice outside of it; Generate does this itself.
var ErrDuplicateRequest = errors.New("Rechnung mit diesem Idempotenzschlüssel existiert bereits")

// Meta carries the document-level fields of a generation request.
type Meta struct {
	Date               time.Time
	Title              string
	Intro              string
	Currency           string
	TaxRate            decimal.Decimal
	Discount           model.Discount
	Commit             bool
	IdempotencyKey     string
	IsCancellation     bool
	CancelsInvoiceNumber *string
	CancellationReason *string
}

// Request is the full generation payload.
type Request struct {
	CustomerID uuid.UUID
	Positions  []model.LineItem
	Meta       Meta
}

// Service creates invoices. Both cancellation and the recurrence
// scheduler depend on its at-most-once-per-idempotency-key guarantee
// instead of implementing their own locking.
type Service interface {
	Generate(ctx context.Context, userID uuid.UUID, req Request) (*model.Invoice, error)
	// GenerateIn runs within the caller's transaction so that generation
	// and any follow-up writes commit or roll back together.
	GenerateIn(ctx context.Context, tx *gorm.DB, userID uuid.UUID, req Request) (*model.Invoice, error)
}

type invoicer struct {
	repo repository.InvoiceRepository
}

func NewService(repo repository.InvoiceRepository) Service {
	return &invoicer{repo: repo}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

func (s *invoicer) Generate(ctx context.Context, userID uuid.UUID, req Request) (*model.Invoice, error) {
	var inv *model.Invoice
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		inv, err = s.GenerateIn(ctx, tx, userID, req)
		return err
	})
	if errors.Is(err, ErrDuplicateRequest) && req.Meta.IdempotencyKey != "" {
		// Our transaction rolled back; the winner's row is committed and
		// visible now, so this request resolves to the same invoice.
		return s.repo.FindByIdempotencyKey(ctx, userID, req.Meta.IdempotencyKey)
	}
	return inv, err
}

func (s *invoicer) GenerateIn(ctx context.Context, tx *gorm.DB, userID uuid.UUID, req Request) (*model.Invoice, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	// Lookup before create: a repeated request with the same key returns
	// the already-persisted invoice instead of numbering a second one.
	if req.Meta.IdempotencyKey != "" {
		if existing, err := s.repo.FindByIdempotencyKey(ctx, userID, req.Meta.IdempotencyKey); err == nil {
			log.Debug().
				Str("invoice_number", existing.InvoiceNumber).
				Str("idempotency_key", req.Meta.IdempotencyKey).
				Msg("generation: idempotent replay, returning existing invoice")
			return existing, nil
		}
	}

	date := req.Meta.Date
	if date.IsZero() {
		date = time.Now()
	}
	currency := req.Meta.Currency
	if currency == "" {
		currency = "EUR"
	}

	inv := &model.Invoice{
		UserID:         userID,
		CustomerID:     req.CustomerID,
		Title:          req.Meta.Title,
		Intro:          req.Meta.Intro,
		Date:           date,
		Currency:       currency,
		Positions:      req.Positions,
		Discount:       req.Meta.Discount,
		TaxRate:        req.Meta.TaxRate,
		Status:         model.StatusErstellt,
		IsCancellation: req.Meta.IsCancellation,
	}
	if req.Meta.CancelsInvoiceNumber != nil {
		inv.CancelsInvoiceNumber = req.Meta.CancelsInvoiceNumber
	}
	if req.Meta.CancellationReason != nil {
		inv.CancellationReason = req.Meta.CancellationReason
	}
	if req.Meta.IdempotencyKey != "" {
		key := req.Meta.IdempotencyKey
		inv.IdempotencyKey = &key
	}

	if !req.Meta.Commit {
		// Dry run: number is assigned only on commit.
		return inv, nil
	}

	number, err := s.repo.NextInvoiceNumber(ctx, tx, userID, date.Year())
	if err != nil {
		return nil, err
	}
	inv.InvoiceNumber = number

	if err := s.repo.Create(ctx, tx, inv); err != nil {
		// Unique index on (user_id, idempotency_key): a concurrent request
		// with the same key won the race. No lookup here: the surrounding
		// transaction is already aborted and would poison any further
		// statement, so signal the caller to resolve the winner outside.
		if req.Meta.IdempotencyKey != "" && errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateRequest
		}
		return nil, err
	}

	log.Info().
		Str("invoice_number", inv.InvoiceNumber).
		Str("user_id", userID.String()).
		Bool("is_cancellation", inv.IsCancellation).
		Msg("generation: invoice created")
	return inv, nil
}

func validate(req Request) error {
	if req.CustomerID == uuid.Nil {
		return ErrNoCustomer
	}
	hasItem := false
	for _, p := range req.Positions {
		if p.Kind == model.KindItem {
			hasItem = true
			break
		}
	}
	if !hasItem {
		return ErrNoPositions
	}
	if req.Meta.Discount.Value.IsNegative() {
		return ErrInvalidDiscount
	}
	if req.Meta.TaxRate.IsNegative() {
		return ErrInvalidTaxRate
	}
	return nil
}
