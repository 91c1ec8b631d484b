// Package tax calcula impuestos de líneas y ventas: impuestos fijos, porcentuales,
// proporcionales y grupos, incluidos o no en el precio.
package tax

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
)

// MaxGroupDepth profundidad máxima de grupos de impuestos anidados.
const MaxGroupDepth = 8

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
	// globalPrecision factor del incremento interno cuando se redondea globalmente.
	globalPrecision = decimal.New(1, -5)
)

// FiscalPositionMapper reemplaza un impuesto por su equivalente de la posición fiscal.
// ok=false indica que el impuesto no aplica a la línea.
type FiscalPositionMapper interface {
	MapTax(rule *entity.TaxRule) (mapped *entity.TaxRule, ok bool)
}

// Engine motor de cálculo de impuestos. No guarda estado entre llamadas.
type Engine struct {
	// RoundGlobally usa un incremento interno 10^-5 veces menor para los pasos intermedios
	// y aplica el incremento visible solo a los totales.
	RoundGlobally bool
}

// NewEngine crea el motor con la política de redondeo dada.
func NewEngine(roundGlobally bool) *Engine {
	return &Engine{RoundGlobally: roundGlobally}
}

type partial struct {
	excluded  decimal.Decimal
	included  decimal.Decimal
	taxes     []entity.TaxDetail
	unmapped  []string
	inclusive bool
}

// ComputeAll aplica la lista ordenada de impuestos a unitPrice×quantity.
// mapper nil desactiva la posición fiscal; uom es la unidad de la línea (puede ser nil).
func (e *Engine) ComputeAll(rules []*entity.TaxRule, unitPrice, quantity, rounding decimal.Decimal, mapper FiscalPositionMapper, uom *entity.UnitOfMeasure) (*entity.TaxBreakdown, error) {
	inner := rounding
	if e.RoundGlobally && rounding.IsPositive() {
		inner = rounding.Mul(globalPrecision)
	}
	base := Round(unitPrice.Mul(quantity), rounding)

	p, err := e.compute(rules, base, quantity, inner, rounding, mapper, uom, 0)
	if err != nil {
		return nil, err
	}
	out := &entity.TaxBreakdown{
		Taxes:         p.taxes,
		TotalExcluded: Round(p.excluded, rounding),
		TotalIncluded: Round(p.included, rounding),
		Unmapped:      p.unmapped,
	}
	if out.Taxes == nil {
		out.Taxes = []entity.TaxDetail{}
	}
	if p.inclusive {
		u := Round(p.excluded, inner)
		out.UnroundedExcluded = &u
	}
	return out, nil
}

func (e *Engine) compute(rules []*entity.TaxRule, base, quantity, inner, rounding decimal.Decimal, mapper FiscalPositionMapper, uom *entity.UnitOfMeasure, depth int) (*partial, error) {
	if depth > MaxGroupDepth {
		return nil, fmt.Errorf("%w: grupos de impuestos anidados en más de %d niveles", domain.ErrInvalidInput, MaxGroupDepth)
	}
	p := &partial{excluded: base, included: base}
	if err := CheckInclusiveRates(rules); err != nil {
		return nil, err
	}
	composed := composedBases(rules, base, quantity, uom)

	for _, rule := range rules {
		if rule == nil {
			continue
		}
		if mapper != nil {
			mapped, ok := mapper.MapTax(rule)
			if !ok || mapped == nil {
				p.unmapped = append(p.unmapped, rule.ID)
				continue
			}
			rule = mapped
			if err := CheckInclusiveRates([]*entity.TaxRule{rule}); err != nil {
				return nil, err
			}
		}

		if rule.AmountType == entity.AmountGroup {
			child, err := e.compute(rule.Children, base, quantity, inner, rounding, mapper, uom, depth+1)
			if err != nil {
				return nil, err
			}
			p.taxes = append(p.taxes, child.taxes...)
			p.unmapped = append(p.unmapped, child.unmapped...)
			p.excluded, p.included = child.excluded, child.included
			base = child.excluded
			p.inclusive = p.inclusive || child.inclusive
			continue
		}

		ruleBase := base
		if cb, ok := composed[rule.ID]; ok {
			ruleBase = cb
		}
		amount := Round(evaluate(rule, ruleBase, quantity, uom), inner)
		if rule.PriceInclude {
			p.inclusive = true
		}
		if amount.IsZero() {
			continue
		}
		if rule.PriceInclude {
			p.excluded = p.excluded.Sub(amount)
			base = base.Sub(amount)
		} else {
			p.included = p.included.Add(Round(amount, rounding))
		}
		if rule.IncludeBaseAmount {
			base = base.Add(amount)
		}
		p.taxes = append(p.taxes, entity.TaxDetail{
			TaxID:   rule.ID,
			Name:    rule.Name,
			Amount:  amount,
			SIICode: rule.SIICode,
		})
	}
	return p, nil
}

// CheckInclusiveRates rechaza porcentajes incluidos en el precio que anulan el divisor
// (una tasa de -100 o un conjunto que suma -100).
func CheckInclusiveRates(rules []*entity.TaxRule) error {
	sum := decimal.Zero
	for _, r := range rules {
		if r == nil || !r.PriceInclude || r.AmountType != entity.AmountPercent {
			continue
		}
		if r.Amount.Equal(hundred.Neg()) {
			return fmt.Errorf("%w: impuesto %s: tasa incluida de -100%%", domain.ErrInvalidInput, r.ID)
		}
		sum = sum.Add(r.Amount)
	}
	if sum.Equal(hundred.Neg()) {
		return fmt.Errorf("%w: impuestos incluidos suman -100%%", domain.ErrInvalidInput)
	}
	return nil
}

// composedBases resuelve de una vez la base común de varios impuestos porcentuales
// incluidos en el precio, de modo que el reparto no dependa del orden declarado.
// Devuelve, por id de impuesto, la base sobre la que se evalúa cada uno.
func composedBases(rules []*entity.TaxRule, base, quantity decimal.Decimal, uom *entity.UnitOfMeasure) map[string]decimal.Decimal {
	if len(rules) < 2 {
		return nil
	}
	percentSum, recovered := decimal.Zero, decimal.Zero
	found := false
	for _, r := range rules {
		if r == nil || !r.PriceInclude || r.AmountType == entity.AmountGroup {
			continue
		}
		found = true
		if r.AmountType == entity.AmountPercent {
			percentSum = percentSum.Add(r.Amount)
		} else {
			recovered = recovered.Add(evaluate(r, base, quantity, uom))
		}
	}
	if !found {
		return nil
	}
	common := base.Sub(recovered).Div(one.Add(percentSum.Div(hundred)))
	out := make(map[string]decimal.Decimal)
	for _, r := range rules {
		if r == nil || !r.PriceInclude || r.AmountType != entity.AmountPercent {
			continue
		}
		out[r.ID] = common.Mul(one.Add(r.Amount.Div(hundred)))
	}
	return out
}

// evaluate calcula el monto de un impuesto simple sobre la base.
func evaluate(rule *entity.TaxRule, base, quantity decimal.Decimal, uom *entity.UnitOfMeasure) decimal.Decimal {
	if rule.AmountType == entity.AmountFixed {
		amount := rule.Amount
		if f := uomFactor(rule.UoM, uom); !f.Equal(one) {
			amount = amount.Mul(f)
		}
		if base.IsNegative() {
			amount = amount.Neg()
		}
		return amount.Mul(quantity.Abs())
	}

	rate := rule.Amount.Div(hundred)
	switch {
	case rule.AmountType == entity.AmountPercent && !rule.PriceInclude,
		rule.AmountType == entity.AmountDivision && rule.PriceInclude:
		return base.Mul(rate)
	case rule.AmountType == entity.AmountPercent && rule.PriceInclude:
		return base.Sub(base.Div(one.Add(rate)))
	case rule.AmountType == entity.AmountDivision && !rule.PriceInclude:
		if rate.Equal(one) {
			return decimal.Zero
		}
		return base.Div(one.Sub(rate)).Sub(base)
	}
	return decimal.Zero
}

// uomFactor convierte un monto fijo expresado por unidad del impuesto a la unidad de la línea.
func uomFactor(taxUoM, lineUoM *entity.UnitOfMeasure) decimal.Decimal {
	if taxUoM == nil || taxUoM.Factor.IsZero() {
		return one
	}
	if lineUoM != nil && lineUoM.ID == taxUoM.ID {
		return one
	}
	lineFactor := one
	if lineUoM != nil && !lineUoM.Factor.IsZero() {
		lineFactor = lineUoM.Factor
	}
	return taxUoM.Factor.Div(lineFactor)
}

// Round redondea value al múltiplo más cercano de increment, alejándose de cero en el empate.
// increment <= 0 deja el valor intacto.
func Round(value, increment decimal.Decimal) decimal.Decimal {
	if !increment.IsPositive() {
		return value
	}
	return value.Div(increment).Round(0).Mul(increment)
}
