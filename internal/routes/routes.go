package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/harborbank/harbor-core/internal/audit"
	"github.com/harborbank/harbor-core/internal/banking"
	"github.com/harborbank/harbor-core/internal/config"
	"github.com/harborbank/harbor-core/internal/customers"
	"github.com/harborbank/harbor-core/internal/investments"
	"github.com/harborbank/harbor-core/internal/ledger"
	"github.com/harborbank/harbor-core/internal/loans"
	"github.com/harborbank/harbor-core/internal/marketdata"
	"github.com/harborbank/harbor-core/internal/middleware"
	"github.com/harborbank/harbor-core/internal/payments"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. Without a
// database the stores fall back to in-memory implementations, which is only
// allowed in dev.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var store ledger.Store
	var paymentRepo payments.Repository
	var loanRepo loans.Repository
	var investmentRepo investments.Repository
	var customerRepo customers.Repository
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
		paymentRepo = payments.NewPostgresRepository(d.DB)
		loanRepo = loans.NewPostgresRepository(d.DB)
		investmentRepo = investments.NewPostgresRepository(d.DB)
		customerRepo = customers.NewPostgresRepository(d.DB)
	} else {
		store = ledger.NewMemoryStore()
		paymentRepo = payments.NewMemoryRepository()
		loanRepo = loans.NewMemoryRepository()
		investmentRepo = investments.NewMemoryRepository()
		customerRepo = customers.NewMemoryRepository()
	}

	auditor := audit.NewLoggerRecorder(d.Logger)
	engine := ledger.NewEngine(store, d.Logger, auditor)
	bankingSvc := banking.NewService(store, engine, d.Logger, auditor)
	paymentSvc := payments.NewService(paymentRepo, engine, payments.StubNetwork{}, d.Logger, auditor)
	loanSvc := loans.NewService(loanRepo, engine, d.Logger, auditor)

	var prices marketdata.Source = marketdata.NewStaticSource()
	if d.Cache != nil {
		prices = marketdata.NewCachedSource(prices, d.Cache, d.Cfg.QuoteTTL)
	}
	investmentSvc := investments.NewService(investmentRepo, store, prices, d.Logger, auditor)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterCustomerRoutes(api, customers.NewHandler(customerRepo))
	RegisterAccountRoutes(api, banking.NewHandler(bankingSvc))
	RegisterTransactionRoutes(api, ledger.NewHandler(engine))
	RegisterPaymentRoutes(api, payments.NewHandler(paymentSvc))
	RegisterLoanRoutes(api, loans.NewHandler(loanSvc))
	RegisterInvestmentRoutes(api, investments.NewHandler(investmentSvc))

	return nil
}
