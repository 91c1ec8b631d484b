package tax_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/internal/domain/tax"
	"github.com/jhoicas/boleta-pos/pkg/sii"
)

func pricedOrder(t *testing.T, class *entity.DocumentClass) *entity.Order {
	t.Helper()
	eng := tax.NewEngine(false)
	iva := percent("iva", "19", false)
	exento := &entity.TaxRule{ID: "exento", Name: "Exento", Amount: d("0"), AmountType: entity.AmountPercent, SIICode: sii.TaxCodeExento}

	o := &entity.Order{
		DocumentClass: class,
		Lines: []*entity.OrderLine{
			{ID: 1, Description: "Pan", Quantity: d("1"), UnitPrice: d("1000"), Discount: d("0"), Taxes: []*entity.TaxRule{iva}},
			{ID: 2, Description: "Libro", Quantity: d("2"), UnitPrice: d("300"), Discount: d("50"), Taxes: []*entity.TaxRule{exento}},
		},
	}
	for _, l := range o.Lines {
		_, err := eng.PriceLine(l, d("1"), nil, nil)
		require.NoError(t, err)
	}
	return o
}

func TestPriceLine_Descuento(t *testing.T) {
	o := pricedOrder(t, nil)
	assertDec(t, "300", o.Lines[1].PriceWithoutTax, "2 × 300 con 50% de descuento")
	assertDec(t, "1190", o.Lines[0].PriceWithTax, "línea afecta")
}

func TestComputeOrderTotals_Boleta(t *testing.T) {
	o := pricedOrder(t, &entity.DocumentClass{ID: "39", SIICode: sii.DocBoletaAfecta})
	totals := tax.ComputeOrderTotals(o, d("1"))

	assertDec(t, "300", totals.Exempt, "exento")
	assertDec(t, "190", totals.Tax, "IVA recalculado sobre el bruto")
	assertDec(t, "1300", totals.Net, "neto + exento")
	assertDec(t, "1490", totals.Total, "total")
	require.Len(t, totals.Taxes, 1)
	require.Equal(t, "iva", totals.Taxes[0].TaxID)
}

func TestComputeOrderTotals_BoletaIVADesdeBruto(t *testing.T) {
	eng := tax.NewEngine(false)
	iva := percent("iva", "19", true)
	o := &entity.Order{
		DocumentClass: &entity.DocumentClass{SIICode: sii.DocBoletaAfecta},
		Lines: []*entity.OrderLine{
			{ID: 1, Quantity: d("1"), UnitPrice: d("990"), Discount: d("0"), Taxes: []*entity.TaxRule{iva}},
			{ID: 2, Quantity: d("1"), UnitPrice: d("990"), Discount: d("0"), Taxes: []*entity.TaxRule{iva}},
		},
	}
	for _, l := range o.Lines {
		_, err := eng.PriceLine(l, d("1"), nil, nil)
		require.NoError(t, err)
	}
	totals := tax.ComputeOrderTotals(o, d("1"))

	// 1980/1.19 = 1663.87 → IVA 316.13 → 316; neto 1664.
	assertDec(t, "316", totals.Tax, "IVA de la boleta")
	assertDec(t, "1664", totals.Net, "neto")
	assertDec(t, "1980", totals.Total, "total")
}

func TestComputeOrderTotals_Factura(t *testing.T) {
	o := pricedOrder(t, &entity.DocumentClass{ID: "33", SIICode: sii.DocFacturaAfecta})
	totals := tax.ComputeOrderTotals(o, d("1"))

	assertDec(t, "300", totals.Exempt, "exento")
	assertDec(t, "1300", totals.Net, "neto")
	assertDec(t, "190", totals.Tax, "IVA por línea")
	assertDec(t, "1490", totals.Total, "total")
}
