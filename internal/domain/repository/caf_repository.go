package repository

import (
	"context"

	"github.com/jhoicas/boleta-pos/internal/domain/entity"
)

// CafRepository persiste los archivos de autorización de folios.
type CafRepository interface {
	Create(ctx context.Context, caf *entity.CafFile) error
	// ListByCompanyAndCode devuelve los CAF de la empresa para un tipo de documento, ordenados por inicio de rango.
	ListByCompanyAndCode(ctx context.Context, companyID string, siiCode int) ([]*entity.CafFile, error)
	UpdateStatus(ctx context.Context, id string, status entity.CafStatus) error
}
