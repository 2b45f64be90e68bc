package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"faktura/internal/generation"
	"faktura/internal/infra"
	"faktura/internal/model"
	"faktura/internal/repository"
)

const (
	automationRunLockKey = "lock:automation_run"
	automationRunLockTTL = 10 * time.Minute
	automationClaimLease = 10 * time.Minute
)

// ErrRunInProgress is returned when another batch run holds the run lock.
var ErrRunInProgress = errors.New("Automatisierungslauf wird bereits ausgeführt")

// RunResult tallies one batch run. An automation whose invoice was
// generated but whose notification failed counts as errored even though
// its schedule advanced.
type RunResult struct {
	SuccessCount int
	ErrorCount   int
}

// AutomationService executes due recurring-invoice automations.
type AutomationService interface {
	RunDue(ctx context.Context) (RunResult, error)
}

type automationService struct {
	automations repository.AutomationRepository
	invoices    repository.InvoiceRepository
	customers   repository.CustomerRepository
	settings    repository.BillingSettingsRepository
	gen         generation.Service
	mailer      infra.Mailer
	breaker     *infra.Breaker
	store       infra.DocumentStore
	rdb         *redis.Client

	now func() time.Time // injectable for tests
}

func NewAutomationService(
	automations repository.AutomationRepository,
	invoices repository.InvoiceRepository,
	customers repository.CustomerRepository,
	settings repository.BillingSettingsRepository,
	gen generation.Service,
	mailer infra.Mailer,
	breaker *infra.Breaker,
	store infra.DocumentStore,
	rdb *redis.Client,
) AutomationService {
	return &automationService{
		automations: automations,
		invoices:    invoices,
		customers:   customers,
		settings:    settings,
		gen:         gen,
		mailer:      mailer,
		breaker:     breaker,
		store:       store,
		rdb:         rdb,
		now:         time.Now,
	}
}

// RunDue processes every automation due as of today. Failures are caught
// per automation: one broken row never aborts the batch. Only a failure
// to list due rows at all is fatal.
func (s *automationService) RunDue(ctx context.Context) (RunResult, error) {
	runDate := dateOnly(s.now().UTC())

	if s.rdb != nil {
		ok, err := s.rdb.SetNX(ctx, automationRunLockKey, runDate.Format(time.RFC3339), automationRunLockTTL).Result()
		if err != nil {
			log.Warn().Err(err).Msg("automation: run lock unavailable, relying on row leases")
		} else if !ok {
			return RunResult{}, ErrRunInProgress
		} else {
			defer s.rdb.Del(context.WithoutCancel(ctx), automationRunLockKey)
		}
	}

	due, err := s.automations.ListDue(ctx, runDate)
	if err != nil {
		return RunResult{}, fmt.Errorf("automation: list due: %w", err)
	}

	var result RunResult
	for i := range due {
		a := &due[i]

		claimed, err := s.automations.Claim(ctx, a.ID, s.now(), automationClaimLease)
		if err != nil {
			log.Error().Err(err).Str("automation_id", a.ID.String()).Msg("automation: claim failed")
			result.ErrorCount++
			continue
		}
		if !claimed {
			// Another run holds the lease; not an error.
			continue
		}

		if err := s.runOne(ctx, a, runDate); err != nil {
			msg := err.Error()
			a.LastError = &msg
			a.ClaimedUntil = nil
			if uerr := s.automations.Update(ctx, a); uerr != nil {
				log.Error().Err(uerr).Str("automation_id", a.ID.String()).Msg("automation: persist error state failed")
			}
			log.Error().Err(err).
				Str("automation_id", a.ID.String()).
				Str("user_id", a.UserID.String()).
				Msg("automation: run failed")
			result.ErrorCount++
			continue
		}
		result.SuccessCount++
	}

	log.Info().
		Str("run_date", runDate.Format("2006-01-02")).
		Int("due", len(due)).
		Int("success", result.SuccessCount).
		Int("errors", result.ErrorCount).
		Msg("automation: batch run finished")
	return result, nil
}

// runOne generates the invoice for a single automation, notifies the
// customer, and advances the schedule. The schedule advance is persisted
// even when notification fails — the failure is reported, never retried
// by re-running the same date.
func (s *automationService) runOne(ctx context.Context, a *model.Automation, runDate time.Time) error {
	tmpl, err := s.invoices.FindByID(ctx, a.SourceInvoiceID)
	if err != nil {
		return fmt.Errorf("load template invoice: %w", err)
	}
	customer, err := s.customers.FindByID(ctx, a.UserID, tmpl.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer: %w", err)
	}
	if _, err := s.settings.FindByUserID(ctx, a.UserID); err != nil {
		return fmt.Errorf("load billing settings: %w", err)
	}

	key := fmt.Sprintf("%s_%s", a.ID, runDate.Format("2006-01-02"))
	inv, err := s.gen.Generate(ctx, a.UserID, generation.Request{
		CustomerID: tmpl.CustomerID,
		Positions:  tmpl.Positions,
		Meta: generation.Meta{
			Date:           runDate,
			Title:          tmpl.Title,
			Intro:          tmpl.Intro,
			Currency:       tmpl.Currency,
			TaxRate:        tmpl.TaxRate,
			Discount:       tmpl.Discount,
			Commit:         true,
			IdempotencyKey: key,
		},
	})
	if err != nil {
		return fmt.Errorf("generate invoice: %w", err)
	}

	// Confirm the write is visible outside the generation path before
	// advancing the schedule past this run date.
	if _, err := s.invoices.FindByIdempotencyKey(ctx, a.UserID, key); err != nil {
		return fmt.Errorf("verify generated invoice: %w", err)
	}

	notifyErr := s.notify(ctx, a, customer, inv)

	s.advance(a, runDate)
	a.LastRunDate = &runDate
	a.ClaimedUntil = nil
	if err := s.automations.Update(ctx, a); err != nil {
		return fmt.Errorf("persist schedule: %w", err)
	}

	if notifyErr != nil {
		return fmt.Errorf("notify customer: %w", notifyErr)
	}
	return nil
}

// notify emails the generated invoice to the customer, honoring the
// opt-out preference. A missing PDF degrades to an attachment-less mail;
// a failed send goes to the dead-letter list.
func (s *automationService) notify(ctx context.Context, a *model.Automation, customer *model.Customer, inv *model.Invoice) error {
	if !customer.WantsInvoiceEmail() {
		return nil
	}

	pdfPath := fmt.Sprintf("rechnung/pdf/%s/%s.pdf", a.UserID, inv.InvoiceNumber)
	pdf, err := s.store.Get(ctx, pdfPath)
	if err != nil {
		log.Warn().Err(err).
			Str("invoice_number", inv.InvoiceNumber).
			Msg("automation: invoice PDF unavailable, sending without attachment")
		pdf = nil
	}

	subject := fmt.Sprintf("Ihre Rechnung %s", inv.InvoiceNumber)
	body := fmt.Sprintf("Guten Tag %s,\n\nanbei erhalten Sie Ihre Rechnung %s vom %s.\n\nMit freundlichen Grüßen",
		customer.Name, inv.InvoiceNumber, inv.Date.Format("02.01.2006"))

	sendErr := s.breaker.Execute(func() error {
		return s.mailer.SendInvoice(*customer.Email, subject, body, pdf, inv.InvoiceNumber+".pdf")
	})
	if sendErr != nil {
		if s.rdb != nil {
			infra.RecordFailedNotification(ctx, s.rdb, infra.DLQEntry{
				AutomationID:  a.ID.String(),
				InvoiceNumber: inv.InvoiceNumber,
				Email:         *customer.Email,
				Reason:        sendErr.Error(),
			})
		}
		return sendErr
	}
	return nil
}

// advance moves the schedule past runDate, deactivating the automation
// once its end date is reached. Deactivation is terminal.
func (s *automationService) advance(a *model.Automation, runDate time.Time) {
	if a.EndDate != nil && !runDate.Before(dateOnly(*a.EndDate)) {
		a.Active = false
		a.NextRunDate = nil
		return
	}
	next, err := NextRunDate(runDate, a.Interval)
	if err != nil {
		// Unknown interval: stop the automation instead of rerunning the
		// same date forever.
		msg := err.Error()
		a.LastError = &msg
		a.Active = false
		a.NextRunDate = nil
		return
	}
	a.NextRunDate = &next
}
