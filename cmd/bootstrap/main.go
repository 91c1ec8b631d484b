// bootstrap crea el esquema, la empresa emisora y su primer administrador.
//
// Uso:
//
//	go run ./cmd/bootstrap --name "Comercial Ltda" --rut 76.000.000-0 \
//	    --admin-email admin@comercial.cl --admin-password secreto123
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/jhoicas/boleta-pos/internal/application/auth"
	"github.com/jhoicas/boleta-pos/internal/application/dto"
	"github.com/jhoicas/boleta-pos/internal/application/usecase"
	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/internal/infrastructure/postgres"
	"github.com/jhoicas/boleta-pos/pkg/config"
	"github.com/jhoicas/boleta-pos/pkg/logger"
	"github.com/jhoicas/boleta-pos/pkg/sii"
)

func main() {
	var company dto.CreateCompanyRequest
	pflag.StringVar(&company.Name, "name", "", "razón social")
	pflag.StringVar(&company.RUT, "rut", "", "RUT del emisor")
	pflag.StringVar(&company.Activity, "activity", "", "giro")
	pflag.StringVar(&company.Address, "address", "", "dirección")
	pflag.StringVar(&company.ResolutionNumber, "resolution-number", "", "número de resolución SII")
	pflag.StringVar(&company.ResolutionDate, "resolution-date", "", "fecha de resolución (YYYY-MM-DD)")
	email := pflag.String("admin-email", "", "email del administrador")
	password := pflag.String("admin-password", "", "password del administrador (mínimo 8)")
	migrate := pflag.Bool("migrate", true, "crear el esquema antes de insertar")
	pflag.Parse()

	if company.Name == "" || company.RUT == "" || *email == "" || len(*password) < 8 {
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if *migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migrar esquema")
		}
	}

	companyRepo := postgres.NewCompanyRepository(pool)
	created, err := usecase.NewCompanyUseCase(companyRepo).Create(ctx, company)
	if errors.Is(err, domain.ErrDuplicate) {
		existing, gerr := companyRepo.GetByRUT(ctx, canonicalRUT(company.RUT))
		if gerr != nil || existing == nil {
			log.Fatal().Err(err).Msg("empresa duplicada")
		}
		created = usecase.ToCompanyResponse(existing)
		log.Info().Str("company_id", created.ID).Msg("la empresa ya existía")
	} else if err != nil {
		log.Fatal().Err(err).Msg("crear empresa")
	}

	authUC := auth.NewAuthUseCase(postgres.NewUserRepository(pool), companyRepo, auth.JWTConfig{
		Secret: cfg.JWT.Secret, ExpMinutes: cfg.JWT.Expiration, Issuer: cfg.JWT.Issuer,
	})
	user, err := authUC.RegisterUser(ctx, dto.RegisterRequest{
		Email: *email, Password: *password, CompanyID: created.ID, Name: "Administrador", Role: entity.RoleAdmin,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("crear administrador")
	}
	log.Info().
		Str("company_id", created.ID).
		Str("rut", created.RUT).
		Str("user_id", user.ID).
		Msg("emisor listo")
}

func canonicalRUT(s string) string {
	rut, _ := sii.CheckRUT(s)
	return rut.String()
}
