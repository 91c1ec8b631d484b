package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/boleta-pos/internal/application/auth"
	"github.com/jhoicas/boleta-pos/internal/application/pos"
	"github.com/jhoicas/boleta-pos/internal/application/usecase"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ServiceName string
	AuthUC      *auth.AuthUseCase
	CompanyUC   *usecase.CompanyUseCase
	SessionUC   *pos.SessionUseCase
	PricingUC   *pos.PricingUseCase
	FinalizeUC  *pos.FinalizeUseCase
	OrderUC     *pos.OrderUseCase
	ReceiptUC   *pos.ReceiptUseCase
	CafUC       *pos.CafUseCase
	Metrics     prometheus.Gatherer // nil = sin /metrics
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	authMW := AuthMiddleware(deps.JWTSecret)
	managers := RequireRole(entity.RoleAdmin, entity.RoleSupervisor)

	// Público
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/login", authHandler.Login)
	api.Post("/auth/register", authMW, RequireRole(entity.RoleAdmin), authHandler.Register)

	companyHandler := NewCompanyHandler(deps.CompanyUC)
	api.Post("/companies", companyHandler.Create)

	pricingHandler := NewPricingHandler(deps.PricingUC)
	api.Post("/rut/validate", pricingHandler.ValidateRUT)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("", authMW)
	protected.Get("/companies/me", companyHandler.Me)
	protected.Post("/taxes/compute", pricingHandler.ComputeTaxes)

	sessionHandler := NewSessionHandler(deps.SessionUC)
	orderHandler := NewOrderHandler(deps.FinalizeUC, deps.OrderUC, deps.ReceiptUC)
	sessions := protected.Group("/sessions")
	sessions.Post("/", sessionHandler.Open)
	sessions.Get("/:id", sessionHandler.Get)
	sessions.Post("/:id/close", sessionHandler.Close)
	sessions.Get("/:id/sequences/:code", sessionHandler.Sequence)
	sessions.Post("/:id/orders", orderHandler.Finalize)

	orders := protected.Group("/orders")
	orders.Get("/", orderHandler.List)
	orders.Post("/import", managers, orderHandler.Import)
	orders.Get("/:id", orderHandler.Get)
	orders.Get("/:id/barcode.png", orderHandler.Barcode)
	orders.Get("/:id/receipt", orderHandler.Receipt)
	orders.Get("/:id/receipt.pdf", orderHandler.ReceiptPDF)

	cafHandler := NewCafHandler(deps.CafUC)
	cafs := protected.Group("/cafs")
	cafs.Post("/", managers, cafHandler.Upload)
	cafs.Get("/:code", cafHandler.List)
}
