package pos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/boleta-pos/internal/application/dto"
	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/internal/domain/repository"
)

// CafUseCase carga de archivos de autorización de folios.
type CafUseCase struct {
	reader    CafReader
	cafs      repository.CafRepository
	companies repository.CompanyRepository
	registry  *SessionRegistry
	metrics   MetricsRecorder
	log       zerolog.Logger
	now       func() time.Time
}

// NewCafUseCase construye el caso de uso. registry puede ser nil (carga sin sesiones vivas).
func NewCafUseCase(
	reader CafReader,
	cafs repository.CafRepository,
	companies repository.CompanyRepository,
	registry *SessionRegistry,
	metrics MetricsRecorder,
	log zerolog.Logger,
) *CafUseCase {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &CafUseCase{
		reader:    reader,
		cafs:      cafs,
		companies: companies,
		registry:  registry,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
	}
}

// Load valida y guarda un CAF. siiCode 0 acepta el tipo declarado en el archivo.
// Un rango que se superpone con otro CAF ya cargado se rechaza con ErrConflict.
func (uc *CafUseCase) Load(ctx context.Context, companyID, filename string, data []byte, siiCode int) (*dto.CafResponse, error) {
	company, err := uc.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("caf: obtener empresa: %w", err)
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}

	caf, err := uc.reader.Parse(data)
	if err != nil {
		uc.log.Warn().Err(err).Str("filename", filename).Msg("CAF rechazado")
		return nil, err
	}
	if siiCode == 0 {
		siiCode = caf.SIICode
	}
	if err := uc.reader.Validate(caf, company.RUT, siiCode, uc.now()); err != nil {
		uc.log.Warn().Err(err).Str("filename", filename).Msg("CAF rechazado")
		return nil, err
	}
	if err := uc.reader.VerifyAuthority(caf); err != nil {
		uc.log.Warn().Err(err).Str("filename", filename).Str("idk", caf.KeyID).Msg("CAF rechazado")
		return nil, err
	}

	existing, err := uc.cafs.ListByCompanyAndCode(ctx, companyID, caf.SIICode)
	if err != nil {
		return nil, fmt.Errorf("caf: listar: %w", err)
	}
	for _, e := range existing {
		if caf.RangeStart <= e.RangeEnd && e.RangeStart <= caf.RangeEnd {
			return nil, fmt.Errorf("%w: rango [%d,%d] se superpone con el CAF %s [%d,%d]",
				domain.ErrConflict, caf.RangeStart, caf.RangeEnd, e.ID, e.RangeStart, e.RangeEnd)
		}
	}

	caf.ID = uuid.New().String()
	caf.CompanyID = companyID
	caf.Filename = filename
	caf.CreatedAt = uc.now()
	if err := uc.cafs.Create(ctx, caf); err != nil {
		return nil, fmt.Errorf("caf: guardar: %w", err)
	}
	if uc.registry != nil {
		uc.registry.Attach(caf)
	}
	uc.metrics.CafLoaded(caf.SIICode)
	uc.log.Info().
		Str("caf_id", caf.ID).
		Int("sii_code", caf.SIICode).
		Int64("from", caf.RangeStart).
		Int64("to", caf.RangeEnd).
		Msg("CAF cargado")
	return toCafResponse(caf), nil
}

// List CAF cargados de un tipo de documento.
func (uc *CafUseCase) List(ctx context.Context, companyID string, siiCode int) ([]dto.CafResponse, error) {
	cafs, err := uc.cafs.ListByCompanyAndCode(ctx, companyID, siiCode)
	if err != nil {
		return nil, fmt.Errorf("caf: listar: %w", err)
	}
	out := make([]dto.CafResponse, 0, len(cafs))
	for _, c := range cafs {
		out = append(out, *toCafResponse(c))
	}
	return out, nil
}

func toCafResponse(c *entity.CafFile) *dto.CafResponse {
	return &dto.CafResponse{
		ID:             c.ID,
		SIICode:        c.SIICode,
		EmitterRUT:     c.EmitterRUT,
		RangeStart:     c.RangeStart,
		RangeEnd:       c.RangeEnd,
		IssuedDate:     c.IssuedDate,
		ExpirationDate: c.ExpirationDate,
		KeyID:          c.KeyID,
		Status:         string(c.Status),
		Filename:       c.Filename,
	}
}
