package repository

import (
	"context"
	"time"

	"github.com/jhoicas/boleta-pos/internal/domain/entity"
)

// OrderFilter criterios de búsqueda de órdenes.
type OrderFilter struct {
	CompanyID string
	SessionID string
	SIICode   int
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// OrderRepository persiste las órdenes finalizadas con su timbre.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*entity.Order, int, error)
	// CountBySessionAndClass cuenta las órdenes fiscales ya emitidas en la sesión para un tipo de documento.
	CountBySessionAndClass(ctx context.Context, sessionID, classID string) (int64, error)
	// MaxFolio mayor folio emitido por la empresa para el tipo de documento; 0 si no hay.
	MaxFolio(ctx context.Context, companyID string, siiCode int) (int64, error)
}
