package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/boleta-pos/internal/application/dto"
	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/internal/domain/repository"
	"github.com/jhoicas/boleta-pos/pkg/sii"
)

// CompanyUseCase alta y consulta de empresas emisoras.
type CompanyUseCase struct {
	repo repository.CompanyRepository
}

// NewCompanyUseCase construye el caso de uso con el puerto de persistencia.
func NewCompanyUseCase(repo repository.CompanyRepository) *CompanyUseCase {
	return &CompanyUseCase{repo: repo}
}

// Create registra un emisor. El RUT se valida en modo estricto y se guarda en forma
// canónica; devuelve domain.ErrDuplicate si ya existe.
func (uc *CompanyUseCase) Create(ctx context.Context, in dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name es requerido", domain.ErrInvalidInput)
	}
	rut, err := sii.CheckRUT(in.RUT)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	existing, err := uc.repo.GetByRUT(ctx, rut.String())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	var resolutionDate time.Time
	if in.ResolutionDate != "" {
		resolutionDate, err = time.Parse(time.DateOnly, in.ResolutionDate)
		if err != nil {
			return nil, fmt.Errorf("%w: resolution_date debe ser YYYY-MM-DD", domain.ErrInvalidInput)
		}
	}
	now := time.Now()
	company := &entity.Company{
		ID:               uuid.New().String(),
		Name:             strings.TrimSpace(in.Name),
		RUT:              rut.String(),
		Activity:         in.Activity,
		Address:          in.Address,
		Phone:            in.Phone,
		Email:            in.Email,
		ResolutionNumber: in.ResolutionNumber,
		ResolutionDate:   resolutionDate,
		Status:           "active",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := uc.repo.Create(ctx, company); err != nil {
		return nil, err
	}
	return ToCompanyResponse(company), nil
}

// GetByID devuelve nil, nil si la empresa no existe.
func (uc *CompanyUseCase) GetByID(ctx context.Context, id string) (*dto.CompanyResponse, error) {
	company, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, nil
	}
	return ToCompanyResponse(company), nil
}

// ToCompanyResponse proyecta el emisor a su DTO.
func ToCompanyResponse(c *entity.Company) *dto.CompanyResponse {
	if c == nil {
		return nil
	}
	return &dto.CompanyResponse{
		ID:               c.ID,
		Name:             c.Name,
		RUT:              c.RUT,
		Activity:         c.Activity,
		Address:          c.Address,
		ResolutionNumber: c.ResolutionNumber,
		ResolutionDate:   c.ResolutionDate,
	}
}
