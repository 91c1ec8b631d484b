package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order venta del punto de venta. El folio y el timbre se asignan juntos una sola vez.
type Order struct {
	ID                string
	CompanyID         string
	SessionID         string
	Reference         string
	DocumentClass     *DocumentClass // nil = venta sin documento fiscal
	Client            *Partner
	FiscalPositionID  string
	Lines             []*OrderLine
	SIIDocumentNumber int64 // folio; 0 = sin asignar
	OrdenNumero       int64 // posición en la secuencia de la sesión
	Stamp             *Stamp
	Finalized         bool
	AmountTotal       decimal.Decimal
	AmountTax         decimal.Decimal
	AmountExempt      decimal.Decimal
	CreatedAt         time.Time
	ValidatedAt       time.Time
}

// OrderLine línea de venta.
type OrderLine struct {
	ID          int64 // identificador interno; la menor define IT1 del timbre
	ProductID   string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal // porcentaje
	UoMID       string
	TaxIDs      []string
	Taxes       []*TaxRule // resueltos desde TaxIDs

	PriceWithoutTax decimal.Decimal
	PriceWithTax    decimal.Decimal
	TaxDetails      []TaxDetail
}

// IsFiscal indica si la venta emite documento tributario.
func (o *Order) IsFiscal() bool {
	return o.DocumentClass != nil
}

// IsStamped indica si la venta ya tiene folio y timbre.
func (o *Order) IsStamped() bool {
	return o.Stamp != nil
}

// FirstLine línea con el menor identificador interno.
func (o *Order) FirstLine() *OrderLine {
	var first *OrderLine
	for _, l := range o.Lines {
		if first == nil || l.ID < first.ID {
			first = l
		}
	}
	return first
}

// Stamp Timbre Electrónico Dte (TED). Inmutable una vez creado.
type Stamp struct {
	EmitterRUT     string // RE
	DocumentType   int    // TD
	Folio          int64  // F
	EmissionDate   string // FE (YYYY-MM-DD)
	ReceiverRUT    string // RR
	ReceiverName   string // RSR
	Amount         int64  // MNT
	FirstItem      string // IT1
	CAFDeclaration string // <CAF> incrustado
	Timestamp      string // TSTED (YYYY-MM-DDTHH:MM:SS)
	DD             string // bloque firmado
	Signature      string // FRMT (base64)
	Algorithm      string
	XML            string // <TED> completo; es lo que se persiste e imprime
}
