// Package pdf genera la representación impresa de la boleta electrónica.
//
// Layout (ticket de 80 mm o A4):
//
//	┌──────────────────────────────────────┐
//	│  Razón social / RUT / giro           │
//	│  ┌────────────────────────────────┐  │
//	│  │ R.U.T.: 76.000.000-0           │  │
//	│  │ BOLETA ELECTRÓNICA             │  │
//	│  │ N° 123                         │  │
//	│  └────────────────────────────────┘  │
//	│  Fecha / Cliente                     │
//	│  Cant | Descripción | Total          │
//	│  Exento / Neto / IVA / TOTAL         │
//	│  PDF417 del timbre                   │
//	│  Timbre Electrónico SII / Res. N°    │
//	└──────────────────────────────────────┘
package pdf

import (
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/boleta-pos/internal/application/pos"
)

var _ pos.ReceiptPDFGenerator = (*ReceiptGenerator)(nil)

var (
	colorPrimary = &props.Color{Red: 200, Green: 0, Blue: 0}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// Formatos de página.
const (
	FormatTicket = "80mm"
	FormatA4     = "a4"
)

// ReceiptGenerator implementa pos.ReceiptPDFGenerator con Maroto v2.
type ReceiptGenerator struct {
	format string
}

// NewReceiptGenerator construye el generador; un formato desconocido usa el ticket de 80 mm.
func NewReceiptGenerator(format string) *ReceiptGenerator {
	if format != FormatA4 {
		format = FormatTicket
	}
	return &ReceiptGenerator{format: format}
}

// Generate devuelve los bytes del PDF.
func (g *ReceiptGenerator) Generate(data pos.ReceiptData) ([]byte, error) {
	if data.Company == nil || data.Order == nil {
		return nil, fmt.Errorf("pdf: faltan empresa o venta")
	}
	fontSize := 7.0
	builder := config.NewBuilder().
		WithDefaultFont(&props.Font{Family: "helvetica", Size: fontSize}).
		WithTitle(nonEmpty(data.DocumentName, "Comprobante de venta"), true).
		WithAuthor(data.Company.Name, true)
	if g.format == FormatA4 {
		fontSize = 9
		builder = builder.WithPageSize(pagesize.A4).
			WithLeftMargin(15).WithRightMargin(15).WithTopMargin(10).
			WithDefaultFont(&props.Font{Family: "helvetica", Size: fontSize})
	} else {
		// alto suficiente para que el ticket no se corte en varias páginas
		height := 120 + 6*float64(len(data.Order.Lines))
		if len(data.BarcodePNG) > 0 {
			height += 45
		}
		builder = builder.WithDimensions(80, height).
			WithLeftMargin(4).WithRightMargin(4).WithTopMargin(4).WithBottomMargin(4)
	}

	m := maroto.New(builder.Build())
	m.AddRows(headerRows(data, fontSize)...)
	m.AddRows(line.NewRow(2, props.Line{Color: colorGray, Thickness: 0.2}))
	m.AddRows(infoRows(data, fontSize)...)
	m.AddRows(line.NewRow(2, props.Line{Color: colorGray, Thickness: 0.2}))
	m.AddRows(tableHeaderRow(fontSize))
	m.AddRows(lineRows(data, fontSize)...)
	m.AddRows(line.NewRow(2, props.Line{Color: colorGray, Thickness: 0.2}))
	m.AddRows(totalRows(data, fontSize)...)
	m.AddRows(stampRows(data, fontSize)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// headerRows emisor y recuadro con RUT, tipo de documento y folio.
func headerRows(data pos.ReceiptData, size float64) []core.Row {
	c := data.Company
	rows := []core.Row{
		row.New(5).Add(col.New(12).Add(text.New(c.Name, props.Text{
			Style: fontstyle.Bold, Size: size + 2, Align: align.Center,
		}))),
	}
	if c.Activity != "" {
		rows = append(rows, row.New(4).Add(col.New(12).Add(text.New(c.Activity, props.Text{
			Size: size - 1, Align: align.Center, Color: colorGray,
		}))))
	}
	if c.Address != "" {
		rows = append(rows, row.New(4).Add(col.New(12).Add(text.New(c.Address, props.Text{
			Size: size - 1, Align: align.Center, Color: colorGray,
		}))))
	}
	if data.DocumentName == "" {
		return rows
	}
	boxed := props.Text{Style: fontstyle.Bold, Size: size + 1, Align: align.Center, Color: colorPrimary}
	folio := ""
	if data.Order.SIIDocumentNumber > 0 {
		folio = fmt.Sprintf("N° %d", data.Order.SIIDocumentNumber)
	}
	return append(rows,
		line.NewRow(2, props.Line{Color: colorPrimary, Thickness: 0.4}),
		row.New(5).Add(col.New(12).Add(text.New("R.U.T.: "+c.RUT, boxed))),
		row.New(5).Add(col.New(12).Add(text.New(data.DocumentName, boxed))),
		row.New(5).Add(col.New(12).Add(text.New(folio, boxed))),
		line.NewRow(2, props.Line{Color: colorPrimary, Thickness: 0.4}),
	)
}

// infoRows fecha, referencia de caja y receptor.
func infoRows(data pos.ReceiptData, size float64) []core.Row {
	small := props.Text{Size: size}
	rows := []core.Row{
		row.New(4).Add(col.New(12).Add(text.New("Fecha: "+nonEmpty(data.CreationDate, "-"), small))),
	}
	if data.Order.Reference != "" {
		rows = append(rows, row.New(4).Add(col.New(12).Add(text.New(data.Order.Reference, small))))
	}
	if cl := data.Order.Client; cl != nil && cl.Name != "" {
		rows = append(rows, row.New(4).Add(col.New(12).Add(
			text.New(fmt.Sprintf("Cliente: %s  RUT: %s", cl.Name, nonEmpty(cl.DocumentNumber, "-")), small),
		)))
	}
	return rows
}

func tableHeaderRow(size float64) core.Row {
	h := func(label string, width int, a align.Type) core.Col {
		return col.New(width).Add(text.New(label, props.Text{Style: fontstyle.Bold, Size: size, Align: a}))
	}
	return row.New(5).Add(
		h("Cant.", 2, align.Left),
		h("Descripción", 6, align.Left),
		h("Total", 4, align.Right),
	)
}

// lineRows una fila por línea; en boletas el monto va con IVA incluido.
func lineRows(data pos.ReceiptData, size float64) []core.Row {
	boleta := data.Order.DocumentClass.IsBoleta()
	rows := make([]core.Row, 0, len(data.Order.Lines))
	for _, l := range data.Order.Lines {
		amount := l.PriceWithoutTax
		if boleta {
			amount = l.PriceWithTax
		}
		rows = append(rows, row.New(6).Add(
			col.New(2).Add(text.New(l.Quantity.String(), props.Text{Size: size})),
			col.New(6).Add(text.New(l.Description, props.Text{Size: size})),
			col.New(4).Add(text.New(money(amount), props.Text{Size: size, Align: align.Right})),
		))
	}
	return rows
}

func totalRows(data pos.ReceiptData, size float64) []core.Row {
	t := data.Totals
	entry := func(label string, amount decimal.Decimal, bold bool) core.Row {
		style := fontstyle.Normal
		if bold {
			style = fontstyle.Bold
		}
		return row.New(5).Add(
			col.New(7).Add(text.New(label, props.Text{Size: size, Style: style, Align: align.Right})),
			col.New(5).Add(text.New(money(amount), props.Text{Size: size, Style: style, Align: align.Right})),
		)
	}
	var rows []core.Row
	if !t.Exempt.IsZero() {
		rows = append(rows, entry("Exento:", t.Exempt, false))
	}
	rows = append(rows, entry("Neto:", t.Net.Sub(t.Exempt), false))
	for _, tx := range t.Taxes {
		rows = append(rows, entry(tx.Name+":", tx.Amount, false))
	}
	return append(rows, entry("TOTAL:", t.Total, true))
}

// stampRows PDF417 del timbre con la leyenda del SII.
func stampRows(data pos.ReceiptData, size float64) []core.Row {
	if len(data.BarcodePNG) == 0 {
		return nil
	}
	legend := "Timbre Electrónico SII"
	if data.Company.ResolutionNumber != "" {
		legend += fmt.Sprintf("\nRes. %s de %d", data.Company.ResolutionNumber, data.Company.ResolutionDate.Year())
	}
	legend += "\nVerifique documento: www.sii.cl"
	return []core.Row{
		row.New(3),
		row.New(35).Add(col.New(12).Add(
			image.NewFromBytes(data.BarcodePNG, extension.Png, props.Rect{Center: true, Percent: 100}),
		)),
		row.New(12).Add(col.New(12).Add(text.New(legend, props.Text{Size: size - 1, Align: align.Center, Top: 1}))),
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// money formatea pesos chilenos: 25000 → "$25.000".
func money(d decimal.Decimal) string {
	s := d.Abs().StringFixed(0)
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + "$" + formatThousands(s)
}

// formatThousands inserta puntos de miles en un string numérico sin decimales.
func formatThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}
