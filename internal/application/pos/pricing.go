package pos

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/boleta-pos/internal/application/dto"
	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/internal/domain/tax"
)

// PricingUseCase arma y valoriza ventas con el catálogo de impuestos.
type PricingUseCase struct {
	engine   *tax.Engine
	catalog  Catalog
	rounding decimal.Decimal
	log      zerolog.Logger
}

// NewPricingUseCase construye el caso de uso. rounding es el incremento de la moneda (1 para CLP).
func NewPricingUseCase(engine *tax.Engine, catalog Catalog, rounding decimal.Decimal, log zerolog.Logger) *PricingUseCase {
	if !rounding.IsPositive() {
		rounding = decimal.NewFromInt(1)
	}
	return &PricingUseCase{engine: engine, catalog: catalog, rounding: rounding, log: log}
}

// Rounding incremento de redondeo de la moneda.
func (uc *PricingUseCase) Rounding() decimal.Decimal { return uc.rounding }

// BuildOrder convierte la entrada de la caja en una venta con impuestos y tipo de documento resueltos.
// Un sequence_id desconocido es un error: la caja no emite un documento fiscal sin numerar.
func (uc *PricingUseCase) BuildOrder(companyID, sessionID string, in dto.OrderInput) (*entity.Order, error) {
	return uc.buildOrder(companyID, sessionID, in, false)
}

// BuildImportedOrder igual que BuildOrder, pero un sequence_id desconocido deja la venta sin documento fiscal.
func (uc *PricingUseCase) BuildImportedOrder(companyID, sessionID string, in dto.OrderInput) (*entity.Order, error) {
	return uc.buildOrder(companyID, sessionID, in, true)
}

func (uc *PricingUseCase) buildOrder(companyID, sessionID string, in dto.OrderInput, lenient bool) (*entity.Order, error) {
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("%w: la venta no tiene líneas", domain.ErrInvalidInput)
	}
	o := &entity.Order{
		ID:               in.ID,
		CompanyID:        companyID,
		SessionID:        sessionID,
		Reference:        in.Reference,
		FiscalPositionID: in.FiscalPositionID,
	}
	if in.DocumentClassID != "" {
		class, ok := uc.catalog.DocumentClass(in.DocumentClassID)
		switch {
		case ok:
			o.DocumentClass = class
		case !lenient:
			return nil, fmt.Errorf("%w: tipo de documento %q", domain.ErrInvalidInput, in.DocumentClassID)
		default:
			uc.log.Warn().Str("sequence_id", in.DocumentClassID).Msg("tipo de documento desconocido, venta sin folio")
		}
	}
	if in.Client != nil {
		o.Client = &entity.Partner{
			CompanyID:      companyID,
			Name:           strings.TrimSpace(in.Client.Name),
			DocumentNumber: strings.TrimSpace(in.Client.DocumentNumber),
			Activity:       in.Client.Activity,
			Street:         in.Client.Street,
			City:           in.Client.City,
			Email:          in.Client.Email,
		}
	}
	for i, li := range in.Lines {
		if li.Quantity.IsZero() {
			return nil, fmt.Errorf("%w: línea %d sin cantidad", domain.ErrInvalidInput, i+1)
		}
		rules, err := uc.catalog.Taxes(li.TaxIDs)
		if err != nil {
			return nil, err
		}
		id := li.ID
		if id == 0 {
			id = int64(i + 1)
		}
		o.Lines = append(o.Lines, &entity.OrderLine{
			ID:          id,
			ProductID:   li.ProductID,
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			Discount:    li.Discount,
			UoMID:       li.UoMID,
			TaxIDs:      li.TaxIDs,
			Taxes:       rules,
		})
	}
	return o, nil
}

// PriceOrder valoriza cada línea, aplica la posición fiscal y deja los totales en la venta.
func (uc *PricingUseCase) PriceOrder(o *entity.Order) (tax.OrderTotals, error) {
	mapper, err := uc.mapper(o.FiscalPositionID)
	if err != nil {
		return tax.OrderTotals{}, err
	}
	for _, l := range o.Lines {
		if mapper != nil {
			var dropped []string
			l.Taxes, dropped = tax.MapTaxes(l.Taxes, mapper)
			l.TaxIDs = ruleIDs(l.Taxes)
			for _, id := range dropped {
				uc.log.Debug().Err(domain.ErrFiscalMappingMiss).Str("tax_id", id).
					Str("fiscal_position_id", o.FiscalPositionID).Msg("impuesto sin equivalente en la posición fiscal")
			}
		}
		uom, _ := uc.catalog.UoM(l.UoMID)
		if _, err := uc.engine.PriceLine(l, uc.rounding, nil, uom); err != nil {
			return tax.OrderTotals{}, fmt.Errorf("línea %d: %w", l.ID, err)
		}
	}
	totals := tax.ComputeOrderTotals(o, uc.rounding)
	o.AmountTotal = totals.Total
	o.AmountTax = totals.Tax
	o.AmountExempt = totals.Exempt
	return totals, nil
}

// ComputeTaxes calcula los impuestos de una línea aislada.
func (uc *PricingUseCase) ComputeTaxes(in dto.TaxComputeRequest) (*dto.TaxComputeResponse, error) {
	rules, err := uc.catalog.Taxes(in.TaxIDs)
	if err != nil {
		return nil, err
	}
	mapper, err := uc.mapper(in.FiscalPositionID)
	if err != nil {
		return nil, err
	}
	qty := in.Quantity
	if qty.IsZero() {
		qty = decimal.NewFromInt(1)
	}
	price := in.UnitPrice.Mul(decimal.NewFromInt(1).Sub(in.Discount.Div(decimal.NewFromInt(100))))
	uom, _ := uc.catalog.UoM(in.UoMID)

	var fp tax.FiscalPositionMapper
	if mapper != nil {
		fp = mapper
	}
	b, err := uc.engine.ComputeAll(rules, price, qty, uc.rounding, fp, uom)
	if err != nil {
		return nil, err
	}
	out := &dto.TaxComputeResponse{
		Taxes:             toTaxDetails(b.Taxes),
		TotalExcluded:     b.TotalExcluded,
		TotalIncluded:     b.TotalIncluded,
		TotalTax:          b.TotalTax(),
		UnroundedExcluded: b.UnroundedExcluded,
		Unmapped:          b.Unmapped,
	}
	return out, nil
}

func (uc *PricingUseCase) mapper(positionID string) (*tax.PositionMapper, error) {
	if positionID == "" {
		return nil, nil
	}
	pos, ok := uc.catalog.FiscalPosition(positionID)
	if !ok {
		return nil, fmt.Errorf("%w: posición fiscal %q", domain.ErrNotFound, positionID)
	}
	return tax.NewPositionMapper(pos, uc.catalog.TaxIndex()), nil
}

func ruleIDs(rules []*entity.TaxRule) []string {
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	return ids
}

func toTaxDetails(in []entity.TaxDetail) []dto.TaxDetailResponse {
	out := make([]dto.TaxDetailResponse, 0, len(in))
	for _, d := range in {
		out = append(out, dto.TaxDetailResponse{TaxID: d.TaxID, Name: d.Name, Amount: d.Amount, SIICode: d.SIICode})
	}
	return out
}
