package api

import (
	"errors"
	"time"

	"trustbooks/docs"
	"trustbooks/internal/api/handlers"
	"trustbooks/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

// multipartOverhead leaves room for form boundaries and headers on top of the
// largest accepted file.
const multipartOverhead = 1 << 20

type RouterConfig struct {
	MaxFileSize  int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// AccessLog enables the fiber request logger.
	AccessLog bool
}

func SetupRouter(
	invoiceHandler *handlers.InvoiceHandler,
	bankStatementHandler *handlers.BankStatementHandler,
	healthHandler *handlers.HealthHandler,
	cfg RouterConfig,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "TrustBooks",
		BodyLimit:    int(cfg.MaxFileSize) + multipartOverhead,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				appLogger.Error("Request failed",
					zap.String("method", c.Method()),
					zap.String("path", c.Path()),
					zap.Error(err),
				)
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(middleware.Timing(5*time.Second, appLogger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))
	if cfg.AccessLog {
		app.Use(logger.New())
	}

	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.Health)

	v1 := app.Group("/api/v1")

	v1.Post("/upload-invoice", invoiceHandler.Upload)
	v1.Get("/invoices", invoiceHandler.List)
	v1.Get("/invoices/:id", invoiceHandler.Get)

	v1.Post("/upload-bank-statement", bankStatementHandler.Upload)
	v1.Get("/bank-statements", bankStatementHandler.List)
	v1.Get("/bank-statements/:id", bankStatementHandler.Get)

	return app
}
