package pos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/boleta-pos/internal/application/dto"
	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/dte"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/internal/domain/repository"
)

// FinalizeUseCase cierra una venta de la caja: la valoriza, la valida y, si es fiscal,
// le asigna folio y timbre en un solo paso.
type FinalizeUseCase struct {
	pricing   *PricingUseCase
	registry  *SessionRegistry
	stamps    StampService
	companies repository.CompanyRepository
	orders    repository.OrderRepository
	cafs      repository.CafRepository
	tx        TxRunner
	metrics   MetricsRecorder
	log       zerolog.Logger
	now       func() time.Time
}

// NewFinalizeUseCase construye el caso de uso. metrics nil = sin métricas.
func NewFinalizeUseCase(
	pricing *PricingUseCase,
	registry *SessionRegistry,
	stamps StampService,
	companies repository.CompanyRepository,
	orders repository.OrderRepository,
	cafs repository.CafRepository,
	tx TxRunner,
	metrics MetricsRecorder,
	log zerolog.Logger,
) *FinalizeUseCase {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &FinalizeUseCase{
		pricing:   pricing,
		registry:  registry,
		stamps:    stamps,
		companies: companies,
		orders:    orders,
		cafs:      cafs,
		tx:        tx,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
	}
}

// Finalize arma la venta desde la entrada de la caja y la finaliza.
// Reenviar una venta ya guardada (mismo id) devuelve la guardada.
func (uc *FinalizeUseCase) Finalize(ctx context.Context, companyID, sessionID string, in dto.OrderInput) (*entity.Order, error) {
	if in.ID != "" {
		existing, err := uc.orders.GetByID(ctx, in.ID)
		if err != nil {
			return nil, fmt.Errorf("finalizar: buscar venta: %w", err)
		}
		if existing != nil {
			if existing.CompanyID != companyID {
				return nil, domain.ErrForbidden
			}
			return existing, nil
		}
	}
	order, err := uc.pricing.BuildOrder(companyID, sessionID, in)
	if err != nil {
		return nil, err
	}
	return uc.FinalizeOrder(ctx, companyID, order)
}

// FinalizeOrder finaliza una venta ya armada. Una venta timbrada se devuelve sin cambios.
// Si no hay folio o CAF disponible la venta queda sin numerar y el contador no avanza.
func (uc *FinalizeUseCase) FinalizeOrder(ctx context.Context, companyID string, order *entity.Order) (*entity.Order, error) {
	if order == nil {
		return nil, fmt.Errorf("%w: venta nula", domain.ErrInvalidInput)
	}
	if order.IsStamped() {
		return order, nil
	}
	session, err := uc.registry.Session(ctx, order.SessionID)
	if err != nil {
		return nil, err
	}
	if session.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	order.CompanyID = companyID

	if err := dte.ValidateClient(order); err != nil {
		return nil, err
	}
	if _, err := uc.pricing.PriceOrder(order); err != nil {
		return nil, err
	}
	if err := dte.ValidateOrder(order); err != nil {
		uc.log.Warn().Err(err).Str("session_id", order.SessionID).Str("reference", order.Reference).Msg("venta rechazada por integridad")
		return nil, err
	}

	order.ValidatedAt = uc.now()
	order.CreatedAt = order.ValidatedAt
	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	if !order.IsFiscal() {
		order.Finalized = true
		if err := uc.orders.Create(ctx, order); err != nil {
			return nil, fmt.Errorf("finalizar: guardar venta: %w", err)
		}
		return order, nil
	}
	return uc.stamp(ctx, session, order)
}

func (uc *FinalizeUseCase) stamp(ctx context.Context, session *entity.PosSession, order *entity.Order) (*entity.Order, error) {
	code := order.DocumentClass.SIICode
	persisted := session.Sequence(code)
	if persisted == nil {
		return nil, fmt.Errorf("%w: la sesión no emite documentos %d", domain.ErrNotFound, code)
	}
	company, err := uc.companies.GetByID(ctx, session.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("finalizar: obtener empresa: %w", err)
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	seq, err := uc.registry.Sequence(ctx, session.ID, code)
	if err != nil {
		return nil, err
	}

	folio, ordenNumero, err := seq.Reserve(func(folio, ordenNumero int64) error {
		cafs, err := uc.registry.Cafs(ctx, session.ID, code)
		if err != nil {
			return err
		}
		draft := *order
		draft.SIIDocumentNumber = folio
		draft.OrdenNumero = ordenNumero

		stamp, err := uc.stamps.Sign(&draft, company, cafs)
		if err != nil {
			return err
		}
		draft.Stamp = stamp
		draft.Finalized = true

		counter := *persisted
		counter.Issued = ordenNumero
		err = uc.tx.RunPOS(ctx, func(orders repository.OrderRepository, sessions repository.SessionRepository) error {
			if err := orders.Create(ctx, &draft); err != nil {
				return err
			}
			return sessions.UpdateSequence(ctx, &counter)
		})
		if err != nil {
			return fmt.Errorf("finalizar: guardar venta timbrada: %w", err)
		}
		*order = draft
		persisted.Issued = ordenNumero
		uc.trackCaf(ctx, cafs.ForFolio(folio), folio)
		return nil
	})
	if err != nil {
		uc.metrics.StampFailed(failureReason(err))
		ev := uc.log.Error()
		if !errors.Is(err, domain.ErrNoFoliosAvailable) && !errors.Is(err, domain.ErrNoAuthorizationForFolio) {
			ev = uc.log.Warn()
		}
		ev.Err(err).Str("session_id", session.ID).Int("sii_code", code).Int64("counter", seq.Issued()).Msg("no se pudo foliar la venta")
		return nil, err
	}

	left := seq.Left()
	uc.metrics.FolioIssued(code, left)
	uc.log.Info().
		Str("order_id", order.ID).
		Int("sii_code", code).
		Int64("orden_numero", ordenNumero).
		Int64("folio", folio).
		Int64("folios_left", left).
		Msg("documento timbrado")
	return order, nil
}

// trackCaf marca el CAF en uso o agotado según el folio recién emitido.
func (uc *FinalizeUseCase) trackCaf(ctx context.Context, caf *entity.CafFile, folio int64) {
	if caf == nil || caf.ID == "" {
		return
	}
	status := caf.Status
	switch {
	case folio >= caf.RangeEnd:
		status = entity.CafSpent
	case status == entity.CafDraft:
		status = entity.CafInUse
	}
	if status == caf.Status {
		return
	}
	if err := uc.cafs.UpdateStatus(ctx, caf.ID, status); err != nil {
		uc.log.Error().Err(err).Str("caf_id", caf.ID).Msg("no se pudo actualizar el estado del CAF")
		return
	}
	caf.Status = status
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoFoliosAvailable):
		return "no_folios"
	case errors.Is(err, domain.ErrNoAuthorizationForFolio):
		return "no_caf"
	case errors.Is(err, domain.ErrMalformedAuthorization):
		return "malformed_caf"
	default:
		return "error"
	}
}
