package service

// In-memory repository and infra stubs for the service-layer tests.
// All stubs return gorm.ErrRecordNotFound where the real repositories
// would, so error mapping is exercised the same way.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"faktura/internal/infra"
	"faktura/internal/model"
	"faktura/internal/repository"
)

// ── Invoice repo ──────────────────────────────────────────────────────────────

type stubInvoiceRepo struct {
	invoices []*model.Invoice
	created  int
	// beforeCreate runs at the top of Create, before the uniqueness check,
	// to let a test slip a competing row in mid-request.
	beforeCreate func()
}

var _ repository.InvoiceRepository = (*stubInvoiceRepo)(nil)

func (r *stubInvoiceRepo) DB() *gorm.DB { return nil }

func (r *stubInvoiceRepo) Create(_ context.Context, _ *gorm.DB, inv *model.Invoice) error {
	if r.beforeCreate != nil {
		r.beforeCreate()
	}
	for _, existing := range r.invoices {
		if existing.IdempotencyKey != nil && inv.IdempotencyKey != nil &&
			existing.UserID == inv.UserID && *existing.IdempotencyKey == *inv.IdempotencyKey {
			return gorm.ErrDuplicatedKey
		}
	}
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	r.invoices = append(r.invoices, inv)
	r.created++
	return nil
}

func (r *stubInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.ID == id {
			return inv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubInvoiceRepo) FindByNumber(_ context.Context, userID uuid.UUID, number string) (*model.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.UserID == userID && inv.InvoiceNumber == number {
			return inv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubInvoiceRepo) FindByIdempotencyKey(_ context.Context, userID uuid.UUID, key string) (*model.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.UserID == userID && inv.IdempotencyKey != nil && *inv.IdempotencyKey == key {
			return inv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubInvoiceRepo) FindCancellationOf(_ context.Context, userID uuid.UUID, number string) (*model.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.UserID == userID && inv.IsCancellation &&
			inv.CancelsInvoiceNumber != nil && *inv.CancelsInvoiceNumber == number {
			return inv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubInvoiceRepo) NextInvoiceNumber(_ context.Context, _ *gorm.DB, userID uuid.UUID, year int) (string, error) {
	prefix := fmt.Sprintf("RE-%d-", year)
	count := 0
	for _, inv := range r.invoices {
		if inv.UserID == userID && strings.HasPrefix(inv.InvoiceNumber, prefix) {
			count++
		}
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func (r *stubInvoiceRepo) Update(_ context.Context, _ *gorm.DB, inv *model.Invoice) error {
	for i, existing := range r.invoices {
		if existing.ID == inv.ID {
			r.invoices[i] = inv
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── Automation repo ───────────────────────────────────────────────────────────

type stubAutomationRepo struct {
	automations []*model.Automation
	denyClaims  bool
	claimCalls  int
}

var _ repository.AutomationRepository = (*stubAutomationRepo)(nil)

func (r *stubAutomationRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Automation, error) {
	for _, a := range r.automations {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubAutomationRepo) ListDue(_ context.Context, asOf time.Time) ([]model.Automation, error) {
	var due []model.Automation
	for _, a := range r.automations {
		if a.Active && a.NextRunDate != nil && !a.NextRunDate.After(asOf) {
			due = append(due, *a)
		}
	}
	return due, nil
}

func (r *stubAutomationRepo) Claim(_ context.Context, id uuid.UUID, now time.Time, lease time.Duration) (bool, error) {
	r.claimCalls++
	if r.denyClaims {
		return false, nil
	}
	for _, a := range r.automations {
		if a.ID == id && a.Active && (a.ClaimedUntil == nil || a.ClaimedUntil.Before(now)) {
			until := now.Add(lease)
			a.ClaimedUntil = &until
			return true, nil
		}
	}
	return false, nil
}

func (r *stubAutomationRepo) Update(_ context.Context, a *model.Automation) error {
	for i, existing := range r.automations {
		if existing.ID == a.ID {
			r.automations[i] = a
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── Customer / settings repos ─────────────────────────────────────────────────

type stubCustomerRepo struct {
	customers []*model.Customer
}

var _ repository.CustomerRepository = (*stubCustomerRepo)(nil)

func (r *stubCustomerRepo) FindByID(_ context.Context, userID, id uuid.UUID) (*model.Customer, error) {
	for _, c := range r.customers {
		if c.UserID == userID && c.ID == id {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type stubSettingsRepo struct {
	settings *model.BillingSettings
}

var _ repository.BillingSettingsRepository = (*stubSettingsRepo)(nil)

func (r *stubSettingsRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*model.BillingSettings, error) {
	if r.settings != nil && r.settings.UserID == userID {
		return r.settings, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mailer ────────────────────────────────────────────────────────────────────

type sentMail struct {
	to       string
	subject  string
	pdf      []byte
	filename string
}

type stubMailer struct {
	sent    []sentMail
	failing bool
}

var _ infra.Mailer = (*stubMailer)(nil)

func (m *stubMailer) SendInvoice(to, subject, _ string, pdf []byte, filename string) error {
	if m.failing {
		return errors.New("smtp: connection refused")
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, pdf: pdf, filename: filename})
	return nil
}

// ── Document store ────────────────────────────────────────────────────────────

type stubStore struct {
	files map[string][]byte
}

var _ infra.DocumentStore = (*stubStore)(nil)

func newStubStore() *stubStore { return &stubStore{files: map[string][]byte{}} }

func (s *stubStore) Save(_ context.Context, path string, data []byte) error {
	s.files[path] = data
	return nil
}

func (s *stubStore) Get(_ context.Context, path string) ([]byte, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("storage: read %s: not found", path)
	}
	return data, nil
}

func (s *stubStore) SignedURL(path string, ttl time.Duration) string {
	exp := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("http://localhost/v1/files/%s?exp=%d&sig=stub", path, exp)
}

func (s *stubStore) VerifySignature(string, int64, string) bool { return true }
