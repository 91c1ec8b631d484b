package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/jhoicas/boleta-pos/docs"
	"github.com/jhoicas/boleta-pos/internal/application/auth"
	"github.com/jhoicas/boleta-pos/internal/application/pos"
	"github.com/jhoicas/boleta-pos/internal/application/usecase"
	"github.com/jhoicas/boleta-pos/internal/domain/tax"
	"github.com/jhoicas/boleta-pos/internal/infrastructure/barcode"
	"github.com/jhoicas/boleta-pos/internal/infrastructure/masterdata"
	"github.com/jhoicas/boleta-pos/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/boleta-pos/internal/infrastructure/pdf"
	"github.com/jhoicas/boleta-pos/internal/infrastructure/postgres"
	"github.com/jhoicas/boleta-pos/internal/infrastructure/timbre"
	httpRouter "github.com/jhoicas/boleta-pos/internal/interfaces/http"
	"github.com/jhoicas/boleta-pos/pkg/config"
	"github.com/jhoicas/boleta-pos/pkg/logger"
)

// @title                       Boleta POS API
// @version                     1.0
// @description                 Caja con boleta electrónica: folios CAF, timbre electrónico y PDF417.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if cfg.DB.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migrar esquema")
		}
	}

	catalog := masterdata.Default()
	if cfg.SII.MasterDataPath != "" {
		if catalog, err = masterdata.LoadFile(cfg.SII.MasterDataPath); err != nil {
			log.Fatal().Err(err).Str("path", cfg.SII.MasterDataPath).Msg("cargar catálogo fiscal")
		}
	}
	var authority timbre.AuthorityKeyring
	if cfg.SII.AuthorityKeyDir != "" {
		if authority, err = timbre.LoadAuthorityKeys(cfg.SII.AuthorityKeyDir); err != nil {
			log.Fatal().Err(err).Str("dir", cfg.SII.AuthorityKeyDir).Msg("cargar llaves del SII")
		}
	} else {
		log.Warn().Msg("SII_AUTHORITY_KEY_DIR vacío: no se verifica la firma de los CAF")
	}
	loc := cfg.App.Location()

	companyRepo := postgres.NewCompanyRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	cafRepo := postgres.NewCafRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool, catalog)
	txRunner := postgres.NewTxRunner(pool, catalog)
	recorder := metrics.NewRecorder(cfg.App.Name, cfg.App.Env)

	registry := pos.NewSessionRegistry(sessionRepo, orderRepo, cafRepo, catalog, log.Component("sessions"))
	pricingUC := pos.NewPricingUseCase(tax.NewEngine(cfg.SII.RoundGlobally), catalog, cfg.SII.Rounding, log.Component("pricing"))
	stamps := timbre.NewStampService(timbre.NewRSASigner(), loc)
	finalizeUC := pos.NewFinalizeUseCase(pricingUC, registry, stamps, companyRepo, orderRepo, cafRepo, txRunner, recorder, log.Component("finalize"))
	orderUC := pos.NewOrderUseCase(orderRepo, pricingUC, registry, stamps, catalog, loc, log.Component("orders"))
	receiptUC := pos.NewReceiptUseCase(orderUC, companyRepo,
		barcode.NewPDF417Renderer(cfg.SII.PDF417Level), infrapdf.NewReceiptGenerator(cfg.SII.ReceiptFormat))
	cafUC := pos.NewCafUseCase(timbre.NewCafReader(authority), cafRepo, companyRepo, registry, recorder, log.Component("caf"))
	authUC := auth.NewAuthUseCase(userRepo, companyRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    1 << 20,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Boleta POS API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		ServiceName: cfg.App.Name,
		AuthUC:      authUC,
		CompanyUC:   usecase.NewCompanyUseCase(companyRepo),
		SessionUC:   pos.NewSessionUseCase(registry),
		PricingUC:   pricingUC,
		FinalizeUC:  finalizeUC,
		OrderUC:     orderUC,
		ReceiptUC:   receiptUC,
		CafUC:       cafUC,
		Metrics:     recorder.Registry(),
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
