package entity

import "github.com/shopspring/decimal"

// AmountType tipo de cálculo de un impuesto.
type AmountType string

const (
	AmountFixed    AmountType = "fixed"    // monto fijo por unidad
	AmountPercent  AmountType = "percent"  // porcentaje sobre la base
	AmountDivision AmountType = "division" // porcentaje proporcional (base/(1-t))
	AmountGroup    AmountType = "group"    // grupo de impuestos hijos
)

// UnitOfMeasure unidad de medida; Factor relativo a la unidad de referencia de su categoría.
type UnitOfMeasure struct {
	ID     string
	Name   string
	Factor decimal.Decimal
}

// TaxRule definición de un impuesto. Inmutable una vez cargada para la sesión.
type TaxRule struct {
	ID                string
	Name              string
	Amount            decimal.Decimal // tasa (%) o monto fijo
	AmountType        AmountType
	PriceInclude      bool           // el precio ya incluye el impuesto
	IncludeBaseAmount bool           // los impuestos siguientes usan la base incrementada
	Children          []*TaxRule     // solo para AmountGroup
	UoM               *UnitOfMeasure // unidad del monto fijo
	SIICode           int            // 14 = IVA, 0 = exento (ver pkg/sii)
}

// TaxDetail monto de un impuesto dentro de un desglose.
type TaxDetail struct {
	TaxID   string          `json:"tax_id"`
	Name    string          `json:"name"`
	Amount  decimal.Decimal `json:"amount"`
	SIICode int             `json:"sii_code"`
}

// TaxBreakdown resultado de aplicar una lista ordenada de impuestos a una base.
// No se persiste; se recalcula cuando se necesita.
type TaxBreakdown struct {
	Taxes         []TaxDetail
	TotalExcluded decimal.Decimal
	TotalIncluded decimal.Decimal
	// UnroundedExcluded solo existe si hubo algún impuesto incluido en el precio.
	UnroundedExcluded *decimal.Decimal
	// Unmapped impuestos descartados por no tener equivalente en la posición fiscal.
	Unmapped []string
}

// TotalTax suma de los montos de impuestos del desglose.
func (b *TaxBreakdown) TotalTax() decimal.Decimal {
	total := decimal.Zero
	for _, t := range b.Taxes {
		total = total.Add(t.Amount)
	}
	return total
}

// FiscalPosition reemplaza impuestos según el régimen del cliente.
// Un destino vacío en TaxMap elimina el impuesto de origen.
type FiscalPosition struct {
	ID     string
	Name   string
	TaxMap map[string]string
}
