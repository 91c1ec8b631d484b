// Package dte contiene las validaciones de dominio de los documentos tributarios
// electrónicos emitidos desde la caja (boletas y facturas).
package dte

import (
	"errors"
	"fmt"

	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/pkg/sii"
)

// ValidateClient valida en modo estricto el RUT del receptor, si la venta tiene cliente.
func ValidateClient(order *entity.Order) error {
	if order == nil || order.Client == nil || order.Client.DocumentNumber == "" {
		return nil
	}
	if _, err := sii.CheckRUT(order.Client.DocumentNumber); err != nil {
		return fmt.Errorf("%w: cliente %q: %w", domain.ErrValidation, order.Client.Name, err)
	}
	return nil
}

// ValidateOrder comprueba las reglas de negocio del documento fiscal antes de numerarlo.
// Las líneas deben estar valorizadas y AmountTotal calculado. Todas las violaciones se
// reportan juntas, encabezadas por domain.ErrIntegrityViolation.
func ValidateOrder(order *entity.Order) error {
	if order == nil {
		return fmt.Errorf("%w: venta nula", domain.ErrIntegrityViolation)
	}
	if !order.IsFiscal() {
		return nil
	}
	var errs []error

	if len(order.Lines) == 0 {
		errs = append(errs, errors.New("el documento debe tener al menos una línea"))
	}
	exempt := order.DocumentClass.IsExempt()
	for _, l := range order.Lines {
		if l.UnitPrice.IsNegative() || l.PriceWithTax.IsNegative() {
			errs = append(errs, fmt.Errorf("línea %d (%s): monto negativo en documento fiscal", l.ID, l.Description))
		}
		if exempt {
			if t := taxedRule(l.Taxes); t != nil {
				errs = append(errs, fmt.Errorf("línea %d (%s): documento exento con impuesto afecto %q", l.ID, l.Description, t.Name))
			}
		}
	}
	if len(order.Lines) > 0 && !order.AmountTotal.IsPositive() {
		errs = append(errs, fmt.Errorf("el total del documento debe ser positivo (%s)", order.AmountTotal.String()))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{domain.ErrIntegrityViolation}, errs...)...)
	}
	return nil
}

// taxedRule primer impuesto afecto (código SII distinto de exento con tasa no nula).
func taxedRule(rules []*entity.TaxRule) *entity.TaxRule {
	for _, r := range rules {
		if r.AmountType == entity.AmountGroup {
			if t := taxedRule(r.Children); t != nil {
				return t
			}
			continue
		}
		if r.SIICode != sii.TaxCodeExento && !r.Amount.IsZero() {
			return r
		}
	}
	return nil
}
