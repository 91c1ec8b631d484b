package pos

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/internal/domain/folio"
	"github.com/jhoicas/boleta-pos/internal/domain/repository"
)

// SessionRegistry mantiene en memoria las sesiones abiertas con sus contadores de folios.
// Cada contador se reconstruye desde la base al primer uso de la sesión.
type SessionRegistry struct {
	sessions repository.SessionRepository
	orders   repository.OrderRepository
	cafs     repository.CafRepository
	catalog  Catalog
	log      zerolog.Logger

	mu   sync.Mutex
	live map[string]*liveSession
}

type liveSession struct {
	session *entity.PosSession

	mu   sync.RWMutex
	seqs map[int]*folio.Sequence
	cafs map[int]entity.CafSet
}

// NewSessionRegistry construye el registro.
func NewSessionRegistry(
	sessions repository.SessionRepository,
	orders repository.OrderRepository,
	cafs repository.CafRepository,
	catalog Catalog,
	log zerolog.Logger,
) *SessionRegistry {
	return &SessionRegistry{
		sessions: sessions,
		orders:   orders,
		cafs:     cafs,
		catalog:  catalog,
		log:      log,
		live:     map[string]*liveSession{},
	}
}

// Open abre una sesión de caja con un contador por tipo de documento. Cada contador parte
// del folio siguiente al último emitido por la empresa.
func (r *SessionRegistry) Open(ctx context.Context, companyID, cashierID string) (*entity.PosSession, error) {
	if companyID == "" || cashierID == "" {
		return nil, fmt.Errorf("%w: empresa y cajero son obligatorios", domain.ErrInvalidInput)
	}
	s := &entity.PosSession{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		CashierID: cashierID,
		State:     entity.SessionOpened,
		OpenedAt:  time.Now(),
	}
	for _, class := range r.catalog.DocumentClasses() {
		last, err := r.orders.MaxFolio(ctx, companyID, class.SIICode)
		if err != nil {
			return nil, fmt.Errorf("sesión: último folio %d: %w", class.SIICode, err)
		}
		s.Sequences = append(s.Sequences, &entity.SessionSequence{
			SessionID:       s.ID,
			DocumentClassID: class.ID,
			SIICode:         class.SIICode,
			StartNumber:     last + 1,
		})
	}
	if err := r.sessions.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("sesión: crear: %w", err)
	}
	if _, err := r.get(ctx, s.ID); err != nil {
		return nil, err
	}
	r.log.Info().Str("session_id", s.ID).Str("cashier_id", cashierID).Msg("sesión de caja abierta")
	return s, nil
}

// Close cierra la sesión y la retira del registro.
func (r *SessionRegistry) Close(ctx context.Context, sessionID string) error {
	ls, err := r.get(ctx, sessionID)
	if err != nil {
		return err
	}
	now := time.Now()
	if err := r.sessions.Close(ctx, sessionID, now); err != nil {
		return fmt.Errorf("sesión: cerrar: %w", err)
	}
	r.mu.Lock()
	delete(r.live, sessionID)
	r.mu.Unlock()
	ls.session.State = entity.SessionClosed
	ls.session.ClosedAt = &now
	return nil
}

// Session devuelve la sesión abierta.
func (r *SessionRegistry) Session(ctx context.Context, sessionID string) (*entity.PosSession, error) {
	ls, err := r.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return ls.session, nil
}

// Sequence contador y CAF vigentes de un tipo de documento en la sesión.
func (r *SessionRegistry) Sequence(ctx context.Context, sessionID string, siiCode int) (*folio.Sequence, error) {
	ls, err := r.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	seq, ok := ls.seqs[siiCode]
	if !ok {
		return nil, fmt.Errorf("%w: la sesión no emite documentos %d", domain.ErrNotFound, siiCode)
	}
	return seq, nil
}

// Cafs CAF cargados para el tipo de documento en la sesión.
func (r *SessionRegistry) Cafs(ctx context.Context, sessionID string, siiCode int) (entity.CafSet, error) {
	ls, err := r.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return append(entity.CafSet(nil), ls.cafs[siiCode]...), nil
}

// Attach incorpora un CAF recién cargado a las sesiones abiertas de la empresa.
// El CAF queda disponible para firmar antes de que su rango sea asignable.
func (r *SessionRegistry) Attach(caf *entity.CafFile) {
	r.mu.Lock()
	targets := make([]*liveSession, 0, len(r.live))
	for _, ls := range r.live {
		if ls.session.CompanyID == caf.CompanyID {
			targets = append(targets, ls)
		}
	}
	r.mu.Unlock()

	for _, ls := range targets {
		ls.mu.Lock()
		seq, ok := ls.seqs[caf.SIICode]
		if ok {
			ls.cafs[caf.SIICode] = append(ls.cafs[caf.SIICode], caf)
		}
		ls.mu.Unlock()
		if !ok {
			continue
		}
		if err := seq.AddRanges(folio.Range{Start: caf.RangeStart, End: caf.RangeEnd}); err != nil {
			r.log.Error().Err(err).Str("caf_id", caf.ID).Msg("rango de CAF rechazado por la sesión")
		}
	}
}

// Resume avanza el contador por documentos ya numerados fuera de esta instancia
// (ventas importadas desde una caja sin conexión).
func (r *SessionRegistry) Resume(ctx context.Context, sessionID string, siiCode int, ordenNumero int64) error {
	seq, err := r.Sequence(ctx, sessionID, siiCode)
	if err != nil {
		return err
	}
	if pending := ordenNumero - seq.Issued(); pending > 0 {
		return seq.Resume(pending)
	}
	return nil
}

func (r *SessionRegistry) get(ctx context.Context, sessionID string) (*liveSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ls, ok := r.live[sessionID]; ok {
		return ls, nil
	}
	ls, err := r.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	r.live[sessionID] = ls
	return ls, nil
}

func (r *SessionRegistry) load(ctx context.Context, sessionID string) (*liveSession, error) {
	s, err := r.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("sesión: obtener: %w", err)
	}
	if s == nil {
		return nil, domain.ErrNotFound
	}
	if s.State != entity.SessionOpened {
		return nil, fmt.Errorf("%w: la sesión %s está cerrada", domain.ErrConflict, sessionID)
	}
	ls := &liveSession{
		session: s,
		seqs:    map[int]*folio.Sequence{},
		cafs:    map[int]entity.CafSet{},
	}
	for _, ss := range s.Sequences {
		cafs, err := r.cafs.ListByCompanyAndCode(ctx, s.CompanyID, ss.SIICode)
		if err != nil {
			return nil, fmt.Errorf("sesión: CAF %d: %w", ss.SIICode, err)
		}
		seq := folio.NewSequence(ss.SIICode, ss.StartNumber, ss.Issued, folio.RangesFromCafs(cafs))

		// ventas ya guardadas que el contador persistido aún no refleja
		count, err := r.orders.CountBySessionAndClass(ctx, s.ID, ss.DocumentClassID)
		if err != nil {
			return nil, fmt.Errorf("sesión: contar ventas: %w", err)
		}
		if count > ss.Issued {
			if err := seq.Resume(count - ss.Issued); err != nil {
				return nil, err
			}
			r.log.Warn().Str("session_id", s.ID).Int("sii_code", ss.SIICode).
				Int64("persisted", ss.Issued).Int64("orders", count).Msg("contador de folios resincronizado")
		}
		ls.seqs[ss.SIICode] = seq
		ls.cafs[ss.SIICode] = cafs
	}
	return ls, nil
}
