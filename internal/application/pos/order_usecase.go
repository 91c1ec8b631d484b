package pos

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/boleta-pos/internal/application/dto"
	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/internal/domain/repository"
)

// CreationDateLayout formato de creation_date en la exportación.
const CreationDateLayout = "2006-01-02 15:04:05"

// OrderUseCase consulta, exporta e importa ventas.
type OrderUseCase struct {
	orders   repository.OrderRepository
	pricing  *PricingUseCase
	registry *SessionRegistry
	stamps   StampService
	catalog  Catalog
	loc      *time.Location
	log      zerolog.Logger
}

// NewOrderUseCase construye el caso de uso. loc es la zona horaria de creation_date.
func NewOrderUseCase(
	orders repository.OrderRepository,
	pricing *PricingUseCase,
	registry *SessionRegistry,
	stamps StampService,
	catalog Catalog,
	loc *time.Location,
	log zerolog.Logger,
) *OrderUseCase {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderUseCase{
		orders:   orders,
		pricing:  pricing,
		registry: registry,
		stamps:   stamps,
		catalog:  catalog,
		loc:      loc,
		log:      log,
	}
}

// Get devuelve la venta de la empresa.
func (uc *OrderUseCase) Get(ctx context.Context, companyID, id string) (*entity.Order, error) {
	o, err := uc.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("venta: obtener: %w", err)
	}
	if o == nil {
		return nil, domain.ErrNotFound
	}
	if o.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return o, nil
}

// List ventas de la empresa con filtros opcionales.
func (uc *OrderUseCase) List(ctx context.Context, companyID string, in dto.OrderListRequest) (*dto.OrderListResponse, error) {
	in.DefaultPage()
	filter := repository.OrderFilter{
		CompanyID: companyID,
		SessionID: in.SessionID,
		SIICode:   in.SIICode,
		Limit:     in.Limit,
		Offset:    in.Offset,
	}
	for _, p := range []struct {
		raw string
		dst **time.Time
		end bool
	}{{in.From, &filter.From, false}, {in.To, &filter.To, true}} {
		if p.raw == "" {
			continue
		}
		t, err := time.ParseInLocation("2006-01-02", p.raw, uc.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: fecha %q", domain.ErrInvalidInput, p.raw)
		}
		if p.end {
			t = t.AddDate(0, 0, 1)
		}
		*p.dst = &t
	}
	orders, total, err := uc.orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("venta: listar: %w", err)
	}
	out := &dto.OrderListResponse{
		Items: make([]dto.OrderExport, 0, len(orders)),
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: total},
	}
	for _, o := range orders {
		out.Items = append(out.Items, uc.Export(o))
	}
	return out, nil
}

// Export serializa la venta con su folio, orden_numero y timbre.
func (uc *OrderUseCase) Export(o *entity.Order) dto.OrderExport {
	out := dto.OrderExport{
		ID:                o.ID,
		SessionID:         o.SessionID,
		Reference:         o.Reference,
		SIIDocumentNumber: o.SIIDocumentNumber,
		OrdenNumero:       o.OrdenNumero,
		Finalized:         o.Finalized,
		FiscalPositionID:  o.FiscalPositionID,
		AmountTotal:       o.AmountTotal,
		AmountTax:         o.AmountTax,
		Exempt:            o.AmountExempt,
		Lines:             make([]dto.OrderLineExport, 0, len(o.Lines)),
	}
	if !o.CreatedAt.IsZero() {
		out.CreationDate = o.CreatedAt.In(uc.loc).Format(CreationDateLayout)
	}
	if o.DocumentClass != nil {
		out.DocumentClassID = o.DocumentClass.ID
	}
	if o.Stamp != nil {
		out.Signature = o.Stamp.XML
	}
	if c := o.Client; c != nil {
		out.Client = &dto.ClientInput{
			Name:           c.Name,
			DocumentNumber: c.DocumentNumber,
			Activity:       c.Activity,
			Street:         c.Street,
			City:           c.City,
			Email:          c.Email,
		}
	}
	for _, l := range o.Lines {
		out.Lines = append(out.Lines, dto.OrderLineExport{
			ID:              l.ID,
			ProductID:       l.ProductID,
			Description:     l.Description,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			Discount:        l.Discount,
			UoMID:           l.UoMID,
			TaxIDs:          l.TaxIDs,
			PriceWithoutTax: l.PriceWithoutTax,
			PriceWithTax:    l.PriceWithTax,
			Taxes:           toTaxDetails(l.TaxDetails),
		})
	}
	return out
}

// Import restaura una venta exportada por una caja (por ejemplo, emitida sin conexión).
// El sequence_id se resuelve contra los tipos de documento cargados; uno desconocido deja
// la venta sin tipo. El contador de la sesión avanza hasta el orden_numero importado.
func (uc *OrderUseCase) Import(ctx context.Context, companyID string, in dto.OrderExport) (*entity.Order, error) {
	if in.ID == "" {
		return nil, fmt.Errorf("%w: la venta importada no tiene id", domain.ErrInvalidInput)
	}
	if existing, err := uc.orders.GetByID(ctx, in.ID); err != nil {
		return nil, fmt.Errorf("venta: buscar: %w", err)
	} else if existing != nil {
		if existing.CompanyID != companyID {
			return nil, domain.ErrForbidden
		}
		return existing, nil
	}
	session, err := uc.registry.Session(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if session.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}

	lines := make([]dto.OrderLineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, dto.OrderLineInput{
			ID:          l.ID,
			ProductID:   l.ProductID,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Discount:    l.Discount,
			UoMID:       l.UoMID,
			TaxIDs:      l.TaxIDs,
		})
	}
	o, err := uc.pricing.BuildImportedOrder(companyID, in.SessionID, dto.OrderInput{
		ID:               in.ID,
		Reference:        in.Reference,
		DocumentClassID:  in.DocumentClassID,
		FiscalPositionID: in.FiscalPositionID,
		Client:           in.Client,
		Lines:            lines,
	})
	if err != nil {
		return nil, err
	}
	if _, err := uc.pricing.PriceOrder(o); err != nil {
		return nil, err
	}
	o.SIIDocumentNumber = in.SIIDocumentNumber
	o.OrdenNumero = in.OrdenNumero
	o.Finalized = in.Finalized
	if in.CreationDate != "" {
		t, err := time.ParseInLocation(CreationDateLayout, in.CreationDate, uc.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: creation_date %q", domain.ErrInvalidInput, in.CreationDate)
		}
		o.CreatedAt, o.ValidatedAt = t, t
	}
	if in.Signature != "" {
		st, err := uc.stamps.Parse(in.Signature)
		if err != nil {
			return nil, err
		}
		if st.Folio != o.SIIDocumentNumber {
			return nil, fmt.Errorf("%w: timbre con folio %d en venta con folio %d", domain.ErrIntegrityViolation, st.Folio, o.SIIDocumentNumber)
		}
		o.Stamp = st
	}

	if err := uc.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("venta: importar: %w", err)
	}
	if o.DocumentClass != nil && o.OrdenNumero > 0 {
		if err := uc.registry.Resume(ctx, o.SessionID, o.DocumentClass.SIICode, o.OrdenNumero); err != nil {
			return nil, err
		}
	}
	uc.log.Info().Str("order_id", o.ID).Int64("folio", o.SIIDocumentNumber).Msg("venta importada")
	return o, nil
}
