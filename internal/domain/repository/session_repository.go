package repository

import (
	"context"
	"time"

	"github.com/jhoicas/boleta-pos/internal/domain/entity"
)

// SessionRepository persiste las sesiones de caja y sus contadores de documentos.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.PosSession) error
	GetByID(ctx context.Context, id string) (*entity.PosSession, error)
	// UpdateSequence guarda el contador emitido de una secuencia; crea la fila si no existe.
	UpdateSequence(ctx context.Context, seq *entity.SessionSequence) error
	Close(ctx context.Context, id string, at time.Time) error
}
