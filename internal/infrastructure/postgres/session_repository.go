package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/internal/domain/repository"
)

var _ repository.SessionRepository = (*SessionRepo)(nil)

// SessionRepo sesiones de caja (pos_sessions) y sus contadores (pos_session_sequences).
type SessionRepo struct {
	q Querier
}

// NewSessionRepository construye el repositorio.
func NewSessionRepository(q Querier) *SessionRepo {
	return &SessionRepo{q: q}
}

// Create inserta la sesión con sus contadores. Dentro de un pool sin transacción cada
// sentencia es independiente; TxRunner.RunPOS agrupa la escritura cuando hace falta.
func (r *SessionRepo) Create(ctx context.Context, s *entity.PosSession) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO pos_sessions (id, company_id, cashier_id, state, opened_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.CompanyID, s.CashierID, s.State, s.OpenedAt, s.ClosedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert session: %w", err)
	}
	for _, seq := range s.Sequences {
		if err := r.UpdateSequence(ctx, seq); err != nil {
			return err
		}
	}
	return nil
}

// GetByID obtiene la sesión con sus contadores.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*entity.PosSession, error) {
	var s entity.PosSession
	err := r.q.QueryRow(ctx, `
		SELECT id, company_id, cashier_id, state, opened_at, closed_at
		FROM pos_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.CompanyID, &s.CashierID, &s.State, &s.OpenedAt, &s.ClosedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT document_class_id, sii_code, start_number, issued
		FROM pos_session_sequences WHERE session_id = $1 ORDER BY sii_code`, id)
	if err != nil {
		return nil, fmt.Errorf("list session sequences: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		seq := &entity.SessionSequence{SessionID: id}
		if err := rows.Scan(&seq.DocumentClassID, &seq.SIICode, &seq.StartNumber, &seq.Issued); err != nil {
			return nil, fmt.Errorf("scan session sequence: %w", err)
		}
		s.Sequences = append(s.Sequences, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSequence guarda el contador; nunca lo hace retroceder.
func (r *SessionRepo) UpdateSequence(ctx context.Context, seq *entity.SessionSequence) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO pos_session_sequences (session_id, document_class_id, sii_code, start_number, issued)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id, document_class_id)
		DO UPDATE SET issued = GREATEST(pos_session_sequences.issued, EXCLUDED.issued)`,
		seq.SessionID, seq.DocumentClassID, seq.SIICode, seq.StartNumber, seq.Issued,
	)
	if err != nil {
		return fmt.Errorf("upsert session sequence: %w", err)
	}
	return nil
}

// Close marca la sesión como cerrada.
func (r *SessionRepo) Close(ctx context.Context, id string, at time.Time) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE pos_sessions SET state = $2, closed_at = $3 WHERE id = $1`,
		id, entity.SessionClosed, at,
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
