package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClientInput receptor de la venta.
type ClientInput struct {
	Name           string `json:"name"`
	DocumentNumber string `json:"document_number"` // RUT
	Activity       string `json:"activity,omitempty"`
	Street         string `json:"street,omitempty"`
	City           string `json:"city,omitempty"`
	Email          string `json:"email,omitempty"`
}

// OrderLineInput línea enviada por la caja.
type OrderLineInput struct {
	ID          int64           `json:"id"`
	ProductID   string          `json:"product_id"`
	Description string          `json:"description" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	UoMID       string          `json:"uom_id,omitempty"`
	TaxIDs      []string        `json:"tax_ids"`
}

// OrderInput venta a finalizar. ID permite reenviar la misma venta sin duplicarla.
type OrderInput struct {
	ID               string           `json:"id,omitempty"`
	Reference        string           `json:"reference"`
	DocumentClassID  string           `json:"sequence_id,omitempty"` // vacío = venta sin documento fiscal
	FiscalPositionID string           `json:"fiscal_position_id,omitempty"`
	Client           *ClientInput     `json:"client,omitempty"`
	Lines            []OrderLineInput `json:"lines" validate:"required,min=1"`
}

// TaxComputeRequest cálculo de impuestos de una línea aislada.
type TaxComputeRequest struct {
	TaxIDs           []string        `json:"tax_ids"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Quantity         decimal.Decimal `json:"quantity"`
	Discount         decimal.Decimal `json:"discount"`
	UoMID            string          `json:"uom_id,omitempty"`
	FiscalPositionID string          `json:"fiscal_position_id,omitempty"`
}

// TaxDetailResponse monto de un impuesto.
type TaxDetailResponse struct {
	TaxID   string          `json:"id"`
	Name    string          `json:"name"`
	Amount  decimal.Decimal `json:"amount"`
	SIICode int             `json:"sii_code"`
}

// TaxComputeResponse resultado del cálculo.
type TaxComputeResponse struct {
	Taxes             []TaxDetailResponse `json:"taxes"`
	TotalExcluded     decimal.Decimal     `json:"total_excluded"`
	TotalIncluded     decimal.Decimal     `json:"total_included"`
	TotalTax          decimal.Decimal     `json:"total_tax"`
	UnroundedExcluded *decimal.Decimal    `json:"total_excluded_unrounded,omitempty"`
	Unmapped          []string            `json:"unmapped,omitempty"`
}

// RUTValidateRequest validación de RUT.
type RUTValidateRequest struct {
	RUT    string `json:"rut" validate:"required"`
	Strict bool   `json:"strict"`
}

// RUTValidateResponse resultado; Error solo en modo estricto.
type RUTValidateResponse struct {
	Valid bool   `json:"valid"`
	RUT   string `json:"rut,omitempty"`
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error,omitempty"`
}

// OpenSessionRequest apertura de caja.
type OpenSessionRequest struct {
	CashierID string `json:"cashier_id,omitempty"` // vacío = usuario del token
}

// SequenceResponse estado del contador de un tipo de documento.
type SequenceResponse struct {
	DocumentClassID string `json:"sequence_id"`
	SIICode         int    `json:"sii_code"`
	StartNumber     int64  `json:"start_number"`
	Issued          int64  `json:"numero_ordenes"`
	NextFolio       int64  `json:"next_folio,omitempty"` // 0 = sin folios disponibles
	Left            int64  `json:"folios_left"`
}

// SessionResponse sesión de caja.
type SessionResponse struct {
	ID        string             `json:"id"`
	CompanyID string             `json:"company_id"`
	CashierID string             `json:"cashier_id"`
	State     string             `json:"state"`
	OpenedAt  time.Time          `json:"opened_at"`
	ClosedAt  *time.Time         `json:"closed_at,omitempty"`
	Sequences []SequenceResponse `json:"sequences"`
}

// OrderLineExport línea exportada.
type OrderLineExport struct {
	ID              int64               `json:"id"`
	ProductID       string              `json:"product_id"`
	Description     string              `json:"description"`
	Quantity        decimal.Decimal     `json:"qty"`
	UnitPrice       decimal.Decimal     `json:"price_unit"`
	Discount        decimal.Decimal     `json:"discount"`
	UoMID           string              `json:"uom_id,omitempty"`
	TaxIDs          []string            `json:"tax_ids"`
	PriceWithoutTax decimal.Decimal     `json:"price_subtotal"`
	PriceWithTax    decimal.Decimal     `json:"price_subtotal_incl"`
	Taxes           []TaxDetailResponse `json:"tax_details,omitempty"`
}

// OrderExport venta serializada para la caja y para reimportar.
type OrderExport struct {
	ID                string            `json:"id"`
	SessionID         string            `json:"pos_session_id"`
	Reference         string            `json:"name"`
	DocumentClassID   string            `json:"sequence_id,omitempty"`
	SIIDocumentNumber int64             `json:"sii_document_number,omitempty"`
	Signature         string            `json:"signature,omitempty"` // XML del TED
	OrdenNumero       int64             `json:"orden_numero,omitempty"`
	Finalized         bool              `json:"finalized"`
	FiscalPositionID  string            `json:"fiscal_position_id,omitempty"`
	Client            *ClientInput      `json:"client,omitempty"`
	Lines             []OrderLineExport `json:"lines"`
	AmountTotal       decimal.Decimal   `json:"amount_total"`
	AmountTax         decimal.Decimal   `json:"amount_tax"`
	Exempt            decimal.Decimal   `json:"exempt"`
	CreationDate      string            `json:"creation_date"` // YYYY-MM-DD HH:MM:SS
}

// OrderListRequest filtros del listado de ventas.
type OrderListRequest struct {
	PageRequest
	SessionID string `query:"session_id"`
	SIICode   int    `query:"sii_code"`
	From      string `query:"from"` // YYYY-MM-DD
	To        string `query:"to"`
}

// OrderListResponse página de ventas.
type OrderListResponse struct {
	Items []OrderExport `json:"items"`
	Page  PageResponse  `json:"page"`
}

// CafResponse CAF cargado.
type CafResponse struct {
	ID             string     `json:"id"`
	SIICode        int        `json:"sii_code"`
	EmitterRUT     string     `json:"emitter_rut"`
	RangeStart     int64      `json:"range_start"`
	RangeEnd       int64      `json:"range_end"`
	IssuedDate     time.Time  `json:"issued_date"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	KeyID          string     `json:"idk"`
	Status         string     `json:"status"`
	Filename       string     `json:"filename,omitempty"`
}

// ReceiptExport datos de impresión de la boleta.
type ReceiptExport struct {
	Company      CompanyResponse `json:"company"`
	Order        OrderExport     `json:"order"`
	DocumentName string          `json:"document_name,omitempty"`
	Barcode      []byte          `json:"barcode,omitempty"` // PNG del PDF417, base64 en JSON
}
