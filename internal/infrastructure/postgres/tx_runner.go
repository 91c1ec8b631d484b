package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/boleta-pos/internal/application/pos"
	"github.com/jhoicas/boleta-pos/internal/domain/repository"
)

var _ pos.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool    *pgxpool.Pool
	catalog OrderCatalog
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool, catalog OrderCatalog) *TxRunner {
	return &TxRunner{pool: pool, catalog: catalog}
}

// RunPOS guarda la venta timbrada y el contador de la sesión en la misma transacción.
func (r *TxRunner) RunPOS(ctx context.Context, fn func(
	orders repository.OrderRepository,
	sessions repository.SessionRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewOrderRepository(tx, r.catalog), NewSessionRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
