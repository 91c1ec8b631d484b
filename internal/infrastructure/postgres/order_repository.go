package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/internal/domain/repository"
	"github.com/jhoicas/boleta-pos/internal/infrastructure/timbre"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderCatalog resuelve tipos de documento e impuestos al leer una venta.
type OrderCatalog interface {
	DocumentClass(id string) (*entity.DocumentClass, bool)
	Taxes(ids []string) ([]*entity.TaxRule, error)
}

var orderColumns = []string{
	"id", "company_id", "session_id", "reference", "document_class_id", "sii_code",
	"fiscal_position_id", "client", "lines", "sii_document_number", "orden_numero",
	"ted_xml", "finalized", "amount_total", "amount_tax", "amount_exempt", "created_at", "validated_at",
}

// OrderRepo ventas del punto de venta. Las líneas y el cliente van como JSONB; el timbre
// se guarda como el XML del TED y se reconstruye al leer.
type OrderRepo struct {
	q       Querier
	catalog OrderCatalog
}

// NewOrderRepository construye el repositorio.
func NewOrderRepository(q Querier, catalog OrderCatalog) *OrderRepo {
	return &OrderRepo{q: q, catalog: catalog}
}

func (r *OrderRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

type orderLineRow struct {
	ID              int64              `json:"id"`
	ProductID       string             `json:"product_id,omitempty"`
	Description     string             `json:"description"`
	Quantity        decimal.Decimal    `json:"qty"`
	UnitPrice       decimal.Decimal    `json:"price_unit"`
	Discount        decimal.Decimal    `json:"discount"`
	UoMID           string             `json:"uom_id,omitempty"`
	TaxIDs          []string           `json:"tax_ids"`
	PriceWithoutTax decimal.Decimal    `json:"price_subtotal"`
	PriceWithTax    decimal.Decimal    `json:"price_subtotal_incl"`
	TaxDetails      []entity.TaxDetail `json:"tax_details,omitempty"`
}

type clientRow struct {
	Name           string `json:"name"`
	DocumentNumber string `json:"document_number"`
	Activity       string `json:"activity,omitempty"`
	Street         string `json:"street,omitempty"`
	City           string `json:"city,omitempty"`
	Email          string `json:"email,omitempty"`
}

// Create inserta la venta. Un id repetido es ErrDuplicate; también lo es un folio repetido
// para la misma empresa y tipo de documento (índice único parcial).
func (r *OrderRepo) Create(ctx context.Context, o *entity.Order) error {
	lines := make([]orderLineRow, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, orderLineRow{
			ID:              l.ID,
			ProductID:       l.ProductID,
			Description:     l.Description,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			Discount:        l.Discount,
			UoMID:           l.UoMID,
			TaxIDs:          l.TaxIDs,
			PriceWithoutTax: l.PriceWithoutTax,
			PriceWithTax:    l.PriceWithTax,
			TaxDetails:      l.TaxDetails,
		})
	}
	linesJSON, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal lines: %w", err)
	}
	var clientJSON []byte
	if c := o.Client; c != nil {
		if clientJSON, err = json.Marshal(clientRow{
			Name: c.Name, DocumentNumber: c.DocumentNumber, Activity: c.Activity,
			Street: c.Street, City: c.City, Email: c.Email,
		}); err != nil {
			return fmt.Errorf("marshal client: %w", err)
		}
	}
	var (
		classID *string
		siiCode *int
		tedXML  *string
	)
	if o.DocumentClass != nil {
		classID, siiCode = &o.DocumentClass.ID, &o.DocumentClass.SIICode
	}
	if o.Stamp != nil {
		tedXML = &o.Stamp.XML
	}

	sql, args, err := r.builder().Insert("pos_orders").Columns(orderColumns...).Values(
		o.ID, o.CompanyID, o.SessionID, o.Reference, classID, siiCode,
		o.FiscalPositionID, clientJSON, linesJSON, o.SIIDocumentNumber, o.OrdenNumero,
		tedXML, o.Finalized, o.AmountTotal, o.AmountTax, o.AmountExempt, o.CreatedAt, nullTime(o.ValidatedAt),
	).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.q.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: venta %s folio %d", domain.ErrDuplicate, o.ID, o.SIIDocumentNumber)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID obtiene una venta por ID.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	sql, args, err := r.builder().Select(orderColumns...).From("pos_orders").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	o, err := r.scan(r.q.QueryRow(ctx, sql, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

// List ventas que cumplen el filtro, por fecha de creación descendente, y el total sin paginar.
func (r *OrderRepo) List(ctx context.Context, f repository.OrderFilter) ([]*entity.Order, int, error) {
	where := squirrel.And{squirrel.Eq{"company_id": f.CompanyID}}
	if f.SessionID != "" {
		where = append(where, squirrel.Eq{"session_id": f.SessionID})
	}
	if f.SIICode != 0 {
		where = append(where, squirrel.Eq{"sii_code": f.SIICode})
	}
	if f.From != nil {
		where = append(where, squirrel.GtOrEq{"created_at": *f.From})
	}
	if f.To != nil {
		where = append(where, squirrel.Lt{"created_at": *f.To})
	}

	countSQL, countArgs, err := r.builder().Select("COUNT(*)").From("pos_orders").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int
	if err := r.q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	q := r.builder().Select(orderColumns...).From("pos_orders").Where(where).
		OrderBy("created_at DESC", "sii_document_number DESC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list: %w", err)
	}
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var list []*entity.Order
	for rows.Next() {
		o, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, o)
	}
	return list, total, rows.Err()
}

// CountBySessionAndClass ventas foliadas de la sesión para el tipo de documento.
func (r *OrderRepo) CountBySessionAndClass(ctx context.Context, sessionID, classID string) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM pos_orders
		WHERE session_id = $1 AND document_class_id = $2 AND sii_document_number > 0`,
		sessionID, classID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count session orders: %w", err)
	}
	return n, nil
}

// MaxFolio mayor folio emitido por la empresa para el tipo de documento.
func (r *OrderRepo) MaxFolio(ctx context.Context, companyID string, siiCode int) (int64, error) {
	var top int64
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(MAX(sii_document_number), 0) FROM pos_orders
		WHERE company_id = $1 AND sii_code = $2`,
		companyID, siiCode,
	).Scan(&top)
	if err != nil {
		return 0, fmt.Errorf("max folio: %w", err)
	}
	return top, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *OrderRepo) scan(row rowScanner) (*entity.Order, error) {
	var (
		o           entity.Order
		classID     *string
		siiCode     *int
		clientJSON  []byte
		linesJSON   []byte
		tedXML      *string
		validatedAt *time.Time
	)
	if err := row.Scan(
		&o.ID, &o.CompanyID, &o.SessionID, &o.Reference, &classID, &siiCode,
		&o.FiscalPositionID, &clientJSON, &linesJSON, &o.SIIDocumentNumber, &o.OrdenNumero,
		&tedXML, &o.Finalized, &o.AmountTotal, &o.AmountTax, &o.AmountExempt, &o.CreatedAt, &validatedAt,
	); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	if validatedAt != nil {
		o.ValidatedAt = *validatedAt
	}
	if classID != nil {
		if class, ok := r.catalog.DocumentClass(*classID); ok {
			o.DocumentClass = class
		} else {
			o.DocumentClass = &entity.DocumentClass{ID: *classID}
			if siiCode != nil {
				o.DocumentClass.SIICode = *siiCode
			}
		}
	}
	if len(clientJSON) > 0 {
		var c clientRow
		if err := json.Unmarshal(clientJSON, &c); err != nil {
			return nil, fmt.Errorf("unmarshal client: %w", err)
		}
		o.Client = &entity.Partner{
			CompanyID: o.CompanyID, Name: c.Name, DocumentNumber: c.DocumentNumber,
			Activity: c.Activity, Street: c.Street, City: c.City, Email: c.Email,
		}
	}
	var lines []orderLineRow
	if err := json.Unmarshal(linesJSON, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal lines: %w", err)
	}
	for _, l := range lines {
		// impuestos retirados del catálogo quedan sin regla; el desglose guardado se conserva
		rules, _ := r.catalog.Taxes(l.TaxIDs)
		o.Lines = append(o.Lines, &entity.OrderLine{
			ID:              l.ID,
			ProductID:       l.ProductID,
			Description:     l.Description,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			Discount:        l.Discount,
			UoMID:           l.UoMID,
			TaxIDs:          l.TaxIDs,
			Taxes:           rules,
			PriceWithoutTax: l.PriceWithoutTax,
			PriceWithTax:    l.PriceWithTax,
			TaxDetails:      l.TaxDetails,
		})
	}
	if tedXML != nil && *tedXML != "" {
		st, err := timbre.ParseTED(*tedXML)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", o.ID, err)
		}
		o.Stamp = st
	}
	return &o, nil
}
