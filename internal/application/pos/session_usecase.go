package pos

import (
	"context"
	"errors"

	"github.com/jhoicas/boleta-pos/internal/application/dto"
	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
)

// SessionUseCase apertura, cierre y consulta de sesiones de caja.
type SessionUseCase struct {
	registry *SessionRegistry
}

// NewSessionUseCase construye el caso de uso.
func NewSessionUseCase(registry *SessionRegistry) *SessionUseCase {
	return &SessionUseCase{registry: registry}
}

// Open abre una sesión para el cajero.
func (uc *SessionUseCase) Open(ctx context.Context, companyID, cashierID string) (*dto.SessionResponse, error) {
	s, err := uc.registry.Open(ctx, companyID, cashierID)
	if err != nil {
		return nil, err
	}
	return uc.toResponse(ctx, s)
}

// Get devuelve la sesión con el estado de sus contadores.
func (uc *SessionUseCase) Get(ctx context.Context, companyID, sessionID string) (*dto.SessionResponse, error) {
	s, err := uc.owned(ctx, companyID, sessionID)
	if err != nil {
		return nil, err
	}
	return uc.toResponse(ctx, s)
}

// Close cierra la sesión.
func (uc *SessionUseCase) Close(ctx context.Context, companyID, sessionID string) error {
	if _, err := uc.owned(ctx, companyID, sessionID); err != nil {
		return err
	}
	return uc.registry.Close(ctx, sessionID)
}

// Sequence próximo folio (sin consumirlo) y folios restantes del tipo de documento.
func (uc *SessionUseCase) Sequence(ctx context.Context, companyID, sessionID string, siiCode int) (*dto.SequenceResponse, error) {
	s, err := uc.owned(ctx, companyID, sessionID)
	if err != nil {
		return nil, err
	}
	ss := s.Sequence(siiCode)
	if ss == nil {
		return nil, domain.ErrNotFound
	}
	return uc.sequence(ctx, s.ID, ss)
}

func (uc *SessionUseCase) owned(ctx context.Context, companyID, sessionID string) (*entity.PosSession, error) {
	s, err := uc.registry.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return s, nil
}

func (uc *SessionUseCase) sequence(ctx context.Context, sessionID string, ss *entity.SessionSequence) (*dto.SequenceResponse, error) {
	seq, err := uc.registry.Sequence(ctx, sessionID, ss.SIICode)
	if err != nil {
		return nil, err
	}
	out := &dto.SequenceResponse{
		DocumentClassID: ss.DocumentClassID,
		SIICode:         ss.SIICode,
		StartNumber:     seq.Baseline(),
		Issued:          seq.Issued(),
		Left:            seq.Left(),
	}
	next, err := seq.Next()
	switch {
	case err == nil:
		out.NextFolio = next
	case !errors.Is(err, domain.ErrNoFoliosAvailable):
		return nil, err
	}
	return out, nil
}

func (uc *SessionUseCase) toResponse(ctx context.Context, s *entity.PosSession) (*dto.SessionResponse, error) {
	out := &dto.SessionResponse{
		ID:        s.ID,
		CompanyID: s.CompanyID,
		CashierID: s.CashierID,
		State:     s.State,
		OpenedAt:  s.OpenedAt,
		ClosedAt:  s.ClosedAt,
		Sequences: make([]dto.SequenceResponse, 0, len(s.Sequences)),
	}
	for _, ss := range s.Sequences {
		seq, err := uc.sequence(ctx, s.ID, ss)
		if err != nil {
			return nil, err
		}
		out.Sequences = append(out.Sequences, *seq)
	}
	return out, nil
}
