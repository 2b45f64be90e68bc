package router

import (
	"time"

	"faktura/internal/config"
	"faktura/internal/generation"
	"faktura/internal/handler"
	"faktura/internal/infra"
	"faktura/internal/middleware"
	"faktura/internal/repository"
	"faktura/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Infrastructure ───────────────────────────────────────────────────────
	mailer := infra.NewMailer(cfg)
	smtpBreaker := infra.NewBreaker(5, 2, time.Minute)
	store := infra.NewFileStore(cfg.DocumentStoragePath, cfg.Domain, cfg.SigningSecret)
	downloadTTL := time.Duration(cfg.DownloadTTLMinutes) * time.Minute

	// ── Repositories ─────────────────────────────────────────────────────────
	invoiceRepo := repository.NewInvoiceRepository(db)
	automationRepo := repository.NewAutomationRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	settingsRepo := repository.NewBillingSettingsRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	genSvc := generation.NewService(invoiceRepo)
	cancellationSvc := service.NewCancellationService(invoiceRepo, customerRepo, settingsRepo, genSvc)
	automationSvc := service.NewAutomationService(
		automationRepo, invoiceRepo, customerRepo, settingsRepo,
		genSvc, mailer, smtpBreaker, store, rdb,
	)
	einvoiceSvc := service.NewEInvoiceService(invoiceRepo, customerRepo, settingsRepo, store, downloadTTL)

	// ── Handlers ─────────────────────────────────────────────────────────────
	invoicesH := handler.NewInvoicesHandler(cancellationSvc)
	einvoiceH := handler.NewEInvoiceHandler(einvoiceSvc)
	automationH := handler.NewAutomationHandler(automationSvc)
	filesH := handler.NewFilesHandler(store)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Signed download links authenticate themselves via exp/sig.
	r.GET("/v1/files/*path", filesH.Download)

	// Cron trigger — shared secret instead of a user token.
	r.POST("/v1/cron/automations/run", middleware.CronAuth(cfg.CronToken), automationH.Run)

	// Protected routes
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.POST("/invoices/:number/cancel", invoicesH.Cancel)
		v1.POST("/einvoice", einvoiceH.Generate)
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
