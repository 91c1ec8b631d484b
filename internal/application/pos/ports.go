// Package pos orquesta la caja: valorización de ventas, foliado, timbre y carga de CAF.
package pos

import (
	"context"
	"time"

	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/internal/domain/repository"
	"github.com/jhoicas/boleta-pos/internal/domain/tax"
)

// Catalog datos maestros de impuestos, unidades, tipos de documento y posiciones fiscales.
type Catalog interface {
	Taxes(ids []string) ([]*entity.TaxRule, error)
	TaxIndex() map[string]*entity.TaxRule
	UoM(id string) (*entity.UnitOfMeasure, bool)
	DocumentClass(id string) (*entity.DocumentClass, bool)
	DocumentClassByCode(code int) (*entity.DocumentClass, bool)
	DocumentClasses() []*entity.DocumentClass
	FiscalPosition(id string) (*entity.FiscalPosition, bool)
}

// StampService firma y relee timbres electrónicos.
type StampService interface {
	Sign(order *entity.Order, company *entity.Company, cafs entity.CafSet) (*entity.Stamp, error)
	Parse(tedXML string) (*entity.Stamp, error)
}

// CafReader interpreta y valida archivos CAF.
type CafReader interface {
	Parse(data []byte) (*entity.CafFile, error)
	Validate(caf *entity.CafFile, companyRUT string, siiCode int, now time.Time) error
	VerifyAuthority(caf *entity.CafFile) error
}

// BarcodeRenderer dibuja el PDF417 del timbre.
type BarcodeRenderer interface {
	PNG(ted string) ([]byte, error)
}

// ReceiptData todo lo que se imprime en la boleta.
type ReceiptData struct {
	Company      *entity.Company
	Order        *entity.Order
	Totals       tax.OrderTotals
	DocumentName string
	CreationDate string
	BarcodePNG   []byte
}

// ReceiptPDFGenerator genera la representación impresa.
type ReceiptPDFGenerator interface {
	Generate(data ReceiptData) ([]byte, error)
}

// MetricsRecorder contadores operativos de la caja.
type MetricsRecorder interface {
	FolioIssued(siiCode int, left int64)
	StampFailed(reason string)
	CafLoaded(siiCode int)
}

// TxRunner ejecuta fn en una transacción con repositorios atados a ella.
type TxRunner interface {
	RunPOS(ctx context.Context, fn func(orders repository.OrderRepository, sessions repository.SessionRepository) error) error
}

// NopMetrics no registra nada.
type NopMetrics struct{}

func (NopMetrics) FolioIssued(int, int64) {}
func (NopMetrics) StampFailed(string)     {}
func (NopMetrics) CafLoaded(int)          {}
