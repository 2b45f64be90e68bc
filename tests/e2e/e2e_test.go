//go:build integration

package e2e

// End-to-end integration tests using real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./tests/e2e/... -v
//
// Covered flows:
//   cancel:   cancellation invoice created, original marked Storniert, idempotent replay
//   einvoice: XML produced, stored, downloadable through the signed link
//   cron run: due automation generates exactly one invoice per run date

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"faktura/internal/config"
	"faktura/internal/infra"
	"faktura/internal/model"
	"faktura/internal/router"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"gorm.io/gorm"
)

const (
	testJWTSecret = "test-secret-key"
	testCronToken = "test-cron-token"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func issueToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	db     *gorm.DB
	userID uuid.UUID
	token  string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("faktura_test"),
		tcPostgres.WithUsername("faktura"),
		tcPostgres.WithPassword("faktura"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:                8000,
		Env:                 "test",
		DatabaseURL:         pgURL,
		RedisURL:            rdURL,
		JWTSecret:           testJWTSecret,
		CronToken:           testCronToken,
		DocumentStoragePath: t.TempDir(),
		SigningSecret:       "test-signing-secret",
		DownloadTTLMinutes:  15,
		Domain:              "http://localhost:8000",
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	r := router.New(cfg, db, rdb)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	userID := uuid.New()
	require.NoError(t, db.Create(&model.BillingSettings{
		UserID: userID, CompanyName: "Muster GmbH", Street: "Hauptstraße", HouseNumber: "1",
		PostalCode: "10115", City: "Berlin", CountryCode: "DE",
		VATID: "DE123456789", IBAN: "DE02120300000000202051", BIC: "BYLADEM1001",
	}).Error)

	return &testEnv{server: srv, db: db, userID: userID, token: issueToken(t, userID)}
}

func (env *testEnv) seedCustomer(t *testing.T, email *string) *model.Customer {
	t.Helper()
	c := &model.Customer{
		UserID: env.userID, Name: "Beispiel GmbH", Email: email,
		Street: "Mönckebergstraße", HouseNumber: "7",
		PostalCode: "20095", City: "Hamburg", CountryCode: "DE",
	}
	require.NoError(t, env.db.Create(c).Error)
	return c
}

func (env *testEnv) seedInvoice(t *testing.T, customerID uuid.UUID, number string) *model.Invoice {
	t.Helper()
	inv := &model.Invoice{
		UserID: env.userID, InvoiceNumber: number, CustomerID: customerID,
		Title: "Rechnung", Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), Currency: "EUR",
		Positions: []model.LineItem{
			{Kind: model.KindItem, Description: "Beratung", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(90), Unit: "h"},
			{Kind: model.KindItem, Description: "Fahrtkosten", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
		},
		TaxRate: decimal.NewFromInt(19),
		Status:  model.StatusErstellt,
	}
	require.NoError(t, env.db.Create(inv).Error)
	return inv
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2ECancelInvoice(t *testing.T) {
	env := setupTestEnv(t)
	customer := env.seedCustomer(t, nil)
	env.seedInvoice(t, customer.ID, "RE-2025-0001")

	resp := do(t, env.server, "POST", "/v1/invoices/RE-2025-0001/cancel",
		jsonBody(t, map[string]string{"reason": "Falscher Leistungszeitraum"}), env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		OK                        bool   `json:"ok"`
		CancellationInvoiceNumber string `json:"cancellation_invoice_number"`
	}
	decodeJSON(t, resp, &out)
	assert.True(t, out.OK)
	require.NotEmpty(t, out.CancellationInvoiceNumber)

	var original model.Invoice
	require.NoError(t, env.db.Where("user_id = ? AND invoice_number = ?", env.userID, "RE-2025-0001").First(&original).Error)
	assert.Equal(t, model.StatusStorniert, original.Status)
	require.NotNil(t, original.CancelledByInvoiceNumber)
	assert.Equal(t, out.CancellationInvoiceNumber, *original.CancelledByInvoiceNumber)

	// Replay returns the same cancellation instead of a second one.
	resp2 := do(t, env.server, "POST", "/v1/invoices/RE-2025-0001/cancel",
		jsonBody(t, map[string]string{"reason": "Falscher Leistungszeitraum"}), env.token)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	var out2 struct {
		CancellationInvoiceNumber string `json:"cancellation_invoice_number"`
	}
	decodeJSON(t, resp2, &out2)
	assert.Equal(t, out.CancellationInvoiceNumber, out2.CancellationInvoiceNumber)

	var count int64
	env.db.Model(&model.Invoice{}).Where("user_id = ? AND is_cancellation", env.userID).Count(&count)
	assert.EqualValues(t, 1, count)
}

// Invoice numbers are per user, so the derived idempotency key
// "cancel:RE-2025-0001" repeats across users; the composite unique index
// must scope it to the user or the second cancel would collide.
func TestE2ECancelSameNumberForSecondUser(t *testing.T) {
	env := setupTestEnv(t)
	customer := env.seedCustomer(t, nil)
	env.seedInvoice(t, customer.ID, "RE-2025-0001")

	otherID := uuid.New()
	require.NoError(t, env.db.Create(&model.BillingSettings{
		UserID: otherID, CompanyName: "Zweite GmbH", Street: "Nebenstraße", HouseNumber: "2",
		PostalCode: "50667", City: "Köln", CountryCode: "DE",
		VATID: "DE987654321", IBAN: "DE02120300000000202051", BIC: "BYLADEM1001",
	}).Error)
	otherCustomer := &model.Customer{
		UserID: otherID, Name: "Kunde West", Street: "Domplatz", HouseNumber: "3",
		PostalCode: "50667", City: "Köln", CountryCode: "DE",
	}
	require.NoError(t, env.db.Create(otherCustomer).Error)
	require.NoError(t, env.db.Create(&model.Invoice{
		UserID: otherID, InvoiceNumber: "RE-2025-0001", CustomerID: otherCustomer.ID,
		Title: "Rechnung", Date: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), Currency: "EUR",
		Positions: []model.LineItem{
			{Kind: model.KindItem, Description: "Wartung", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(250)},
		},
		TaxRate: decimal.NewFromInt(19),
		Status:  model.StatusErstellt,
	}).Error)

	resp := do(t, env.server, "POST", "/v1/invoices/RE-2025-0001/cancel", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp2 := do(t, env.server, "POST", "/v1/invoices/RE-2025-0001/cancel", nil, issueToken(t, otherID))
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	resp2.Body.Close()

	var count int64
	env.db.Model(&model.Invoice{}).Where("is_cancellation").Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestE2ECancelRequiresAuth(t *testing.T) {
	env := setupTestEnv(t)

	resp := do(t, env.server, "POST", "/v1/invoices/RE-2025-0001/cancel", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestE2EEInvoiceRoundTrip(t *testing.T) {
	env := setupTestEnv(t)
	customer := env.seedCustomer(t, nil)
	env.seedInvoice(t, customer.ID, "RE-2025-0001")

	resp := do(t, env.server, "POST", "/v1/einvoice",
		jsonBody(t, map[string]string{"invoice_number": "RE-2025-0001"}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Filename    string `json:"filename"`
		StoragePath string `json:"storage_path"`
		DownloadURL string `json:"download_url"`
	}
	decodeJSON(t, resp, &out)
	assert.Equal(t, "RE-2025-0001.xml", out.Filename)
	assert.Equal(t, fmt.Sprintf("rechnung/e-rechnung/%s/RE-2025-0001.xml", env.userID), out.StoragePath)

	// The signed link serves the document without a JWT.
	dlPath := strings.TrimPrefix(out.DownloadURL, "http://localhost:8000")
	dlResp := do(t, env.server, "GET", dlPath, nil, "")
	require.Equal(t, http.StatusOK, dlResp.StatusCode)
	body, err := io.ReadAll(dlResp.Body)
	dlResp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "<cbc:ID>RE-2025-0001</cbc:ID>")

	// Tampering with the signature is rejected.
	tampered := strings.Replace(dlPath, "sig=", "sig=00", 1)
	badResp := do(t, env.server, "GET", tampered, nil, "")
	assert.Equal(t, http.StatusUnauthorized, badResp.StatusCode)
	badResp.Body.Close()
}

func TestE2EAutomationRun(t *testing.T) {
	env := setupTestEnv(t)
	customer := env.seedCustomer(t, nil) // no email: no SMTP needed
	template := env.seedInvoice(t, customer.ID, "RE-2025-0001")

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	automation := &model.Automation{
		UserID: env.userID, SourceInvoiceID: template.ID,
		Interval: model.IntervalMonthly, NextRunDate: &yesterday, Active: true,
	}
	require.NoError(t, env.db.Create(automation).Error)

	req, err := http.NewRequest("POST", env.server.URL+"/v1/cron/automations/run", nil)
	require.NoError(t, err)
	req.Header.Set("X-Cron-Token", testCronToken)
	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		OK           bool `json:"ok"`
		SuccessCount int  `json:"success_count"`
		ErrorCount   int  `json:"error_count"`
	}
	decodeJSON(t, resp, &out)
	assert.True(t, out.OK)
	assert.Equal(t, 1, out.SuccessCount)
	assert.Equal(t, 0, out.ErrorCount)

	var generated model.Invoice
	require.NoError(t, env.db.
		Where("user_id = ? AND idempotency_key IS NOT NULL", env.userID).
		First(&generated).Error)
	assert.NotEqual(t, template.InvoiceNumber, generated.InvoiceNumber)

	var reloaded model.Automation
	require.NoError(t, env.db.First(&reloaded, "id = ?", automation.ID).Error)
	require.NotNil(t, reloaded.NextRunDate)
	assert.True(t, reloaded.NextRunDate.After(time.Now().UTC()))
	require.NotNil(t, reloaded.LastRunDate)

	// Missing token is rejected.
	noToken, err := http.NewRequest("POST", env.server.URL+"/v1/cron/automations/run", nil)
	require.NoError(t, err)
	badResp, err := env.server.Client().Do(noToken)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, badResp.StatusCode)
	badResp.Body.Close()
}
