package tax

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/pkg/sii"
)

// PriceLine calcula precio con y sin impuestos de la línea (precio unitario con descuento
// aplicado) y deja el resultado en la propia línea.
func (e *Engine) PriceLine(line *entity.OrderLine, rounding decimal.Decimal, mapper FiscalPositionMapper, uom *entity.UnitOfMeasure) (*entity.TaxBreakdown, error) {
	price := line.UnitPrice.Mul(one.Sub(line.Discount.Div(hundred)))
	b, err := e.ComputeAll(line.Taxes, price, line.Quantity, rounding, mapper, uom)
	if err != nil {
		return nil, err
	}
	line.PriceWithoutTax = b.TotalExcluded
	line.PriceWithTax = b.TotalIncluded
	line.TaxDetails = b.Taxes
	return b, nil
}

// OrderTotals totales de la venta tal como se imprimen y firman.
type OrderTotals struct {
	Net    decimal.Decimal // neto afecto + exento
	Exempt decimal.Decimal
	Tax    decimal.Decimal
	Total  decimal.Decimal
	Taxes  []entity.TaxDetail
}

// ComputeOrderTotals agrega las líneas ya valorizadas. En boletas el IVA se calcula una sola
// vez sobre el total bruto de las líneas afectas, como lo exige la boleta electrónica.
func ComputeOrderTotals(o *entity.Order, rounding decimal.Decimal) OrderTotals {
	var t OrderTotals
	t.Net, t.Exempt, t.Tax = decimal.Zero, decimal.Zero, decimal.Zero

	for _, l := range o.Lines {
		if isExemptLine(l) {
			t.Exempt = t.Exempt.Add(l.PriceWithoutTax)
		}
	}

	if o.DocumentClass.IsBoleta() {
		gross := decimal.Zero
		var vat *entity.TaxRule
		for _, l := range o.Lines {
			if isExemptLine(l) {
				continue
			}
			gross = gross.Add(l.PriceWithTax)
			if v := vatRule(l); v != nil && vat == nil {
				vat = v
			}
		}
		t.Net = t.Exempt
		if vat != nil {
			rate := vat.Amount.Div(hundred)
			net := gross.Div(one.Add(rate))
			amount := Round(net.Mul(rate), one)
			t.Net = t.Net.Add(Round(net, rounding))
			t.Taxes = append(t.Taxes, entity.TaxDetail{TaxID: vat.ID, Name: vat.Name, Amount: amount, SIICode: vat.SIICode})
		} else {
			t.Net = t.Net.Add(Round(gross, rounding))
		}
	} else {
		net := decimal.Zero
		byID := map[string]int{}
		for _, l := range o.Lines {
			net = net.Add(l.PriceWithoutTax)
			for _, d := range l.TaxDetails {
				if d.SIICode == sii.TaxCodeExento {
					continue
				}
				if i, ok := byID[d.TaxID]; ok {
					t.Taxes[i].Amount = t.Taxes[i].Amount.Add(d.Amount)
					continue
				}
				byID[d.TaxID] = len(t.Taxes)
				t.Taxes = append(t.Taxes, d)
			}
		}
		t.Net = Round(net, rounding)
	}

	for _, d := range t.Taxes {
		t.Tax = t.Tax.Add(Round(d.Amount, rounding))
	}
	t.Total = t.Net.Add(t.Tax)
	return t
}

// isExemptLine línea sin impuestos afectos o con un impuesto exento explícito.
func isExemptLine(l *entity.OrderLine) bool {
	if len(l.Taxes) == 0 {
		return true
	}
	for _, r := range l.Taxes {
		if r.SIICode == sii.TaxCodeExento && r.AmountType != entity.AmountGroup {
			return true
		}
	}
	return false
}

func vatRule(l *entity.OrderLine) *entity.TaxRule {
	for _, r := range l.Taxes {
		if sii.IsVAT(r.SIICode) {
			return r
		}
		for _, c := range r.Children {
			if sii.IsVAT(c.SIICode) {
				return c
			}
		}
	}
	return nil
}
