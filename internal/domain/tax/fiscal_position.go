package tax

import "github.com/jhoicas/boleta-pos/internal/domain/entity"

// PositionMapper aplica una posición fiscal usando el catálogo de impuestos cargado.
type PositionMapper struct {
	Position *entity.FiscalPosition
	Taxes    map[string]*entity.TaxRule
}

// NewPositionMapper devuelve nil si no hay posición fiscal (sin reemplazos).
func NewPositionMapper(pos *entity.FiscalPosition, taxes map[string]*entity.TaxRule) *PositionMapper {
	if pos == nil {
		return nil
	}
	return &PositionMapper{Position: pos, Taxes: taxes}
}

// MapTax devuelve el impuesto de destino. Impuestos sin entrada en la posición se mantienen.
func (m *PositionMapper) MapTax(rule *entity.TaxRule) (*entity.TaxRule, bool) {
	if m == nil || m.Position == nil {
		return rule, true
	}
	dest, ok := m.Position.TaxMap[rule.ID]
	if !ok {
		return rule, true
	}
	if dest == "" {
		return nil, false
	}
	mapped, ok := m.Taxes[dest]
	if !ok {
		return nil, false
	}
	return mapped, true
}

// MapTaxes aplica la posición fiscal a los impuestos de una línea. dropped lista los ids
// que la posición elimina o que apuntan a un impuesto inexistente.
func MapTaxes(rules []*entity.TaxRule, mapper FiscalPositionMapper) (mapped []*entity.TaxRule, dropped []string) {
	if mapper == nil {
		return rules, nil
	}
	mapped = make([]*entity.TaxRule, 0, len(rules))
	for _, r := range rules {
		m, ok := mapper.MapTax(r)
		if !ok || m == nil {
			dropped = append(dropped, r.ID)
			continue
		}
		mapped = append(mapped, m)
	}
	return mapped, dropped
}
