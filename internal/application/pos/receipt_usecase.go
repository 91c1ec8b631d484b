package pos

import (
	"context"
	"fmt"

	"github.com/jhoicas/boleta-pos/internal/application/dto"
	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/internal/domain/repository"
	"github.com/jhoicas/boleta-pos/internal/domain/tax"
	"github.com/jhoicas/boleta-pos/pkg/sii"
)

// ReceiptUseCase datos de impresión, código de barras y PDF de una venta.
type ReceiptUseCase struct {
	orders    *OrderUseCase
	companies repository.CompanyRepository
	barcode   BarcodeRenderer
	pdf       ReceiptPDFGenerator
}

// NewReceiptUseCase construye el caso de uso.
func NewReceiptUseCase(orders *OrderUseCase, companies repository.CompanyRepository, barcode BarcodeRenderer, pdf ReceiptPDFGenerator) *ReceiptUseCase {
	return &ReceiptUseCase{orders: orders, companies: companies, barcode: barcode, pdf: pdf}
}

// Barcode PNG del PDF417 con el TED de la venta.
func (uc *ReceiptUseCase) Barcode(ctx context.Context, companyID, orderID string) ([]byte, error) {
	o, err := uc.orders.Get(ctx, companyID, orderID)
	if err != nil {
		return nil, err
	}
	if !o.IsStamped() {
		return nil, fmt.Errorf("%w: la venta no tiene timbre", domain.ErrInvalidInput)
	}
	return uc.barcode.PNG(o.Stamp.XML)
}

// Receipt datos de impresión de la venta.
func (uc *ReceiptUseCase) Receipt(ctx context.Context, companyID, orderID string) (*dto.ReceiptExport, error) {
	data, err := uc.data(ctx, companyID, orderID)
	if err != nil {
		return nil, err
	}
	c := data.Company
	return &dto.ReceiptExport{
		Company: dto.CompanyResponse{
			ID:               c.ID,
			Name:             c.Name,
			RUT:              c.RUT,
			Activity:         c.Activity,
			Address:          c.Address,
			ResolutionNumber: c.ResolutionNumber,
			ResolutionDate:   c.ResolutionDate,
		},
		Order:        uc.orders.Export(data.Order),
		DocumentName: data.DocumentName,
		Barcode:      data.BarcodePNG,
	}, nil
}

// PDF representación impresa de la venta y nombre de archivo sugerido.
func (uc *ReceiptUseCase) PDF(ctx context.Context, companyID, orderID string) ([]byte, string, error) {
	data, err := uc.data(ctx, companyID, orderID)
	if err != nil {
		return nil, "", err
	}
	pdf, err := uc.pdf.Generate(*data)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generar: %w", err)
	}
	filename := fmt.Sprintf("venta-%s.pdf", data.Order.ID)
	if data.Order.IsFiscal() && data.Order.SIIDocumentNumber > 0 {
		filename = fmt.Sprintf("dte-%d-%d.pdf", data.Order.DocumentClass.SIICode, data.Order.SIIDocumentNumber)
	}
	return pdf, filename, nil
}

func (uc *ReceiptUseCase) data(ctx context.Context, companyID, orderID string) (*ReceiptData, error) {
	o, err := uc.orders.Get(ctx, companyID, orderID)
	if err != nil {
		return nil, err
	}
	company, err := uc.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("recibo: obtener empresa: %w", err)
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	data := &ReceiptData{
		Company: company,
		Order:   o,
		Totals:  tax.ComputeOrderTotals(o, uc.orders.pricing.Rounding()),
	}
	if !o.CreatedAt.IsZero() {
		data.CreationDate = o.CreatedAt.In(uc.orders.loc).Format(CreationDateLayout)
	}
	if o.DocumentClass != nil {
		data.DocumentName = documentName(o.DocumentClass)
	}
	if o.IsStamped() {
		if data.BarcodePNG, err = uc.barcode.PNG(o.Stamp.XML); err != nil {
			return nil, fmt.Errorf("recibo: código de barras: %w", err)
		}
	}
	return data, nil
}

func documentName(d *entity.DocumentClass) string {
	if name, ok := sii.DocumentNames[d.SIICode]; ok {
		return name
	}
	return d.Name
}
