package dte_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/dte"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/pkg/sii"
)

var (
	iva    = &entity.TaxRule{ID: "iva", Name: "IVA 19%", Amount: decimal.NewFromInt(19), AmountType: entity.AmountPercent, SIICode: sii.TaxCodeIVA}
	exento = &entity.TaxRule{ID: "ex", Name: "Exento", Amount: decimal.Zero, AmountType: entity.AmountPercent}
)

func line(id int64, price int64, taxes ...*entity.TaxRule) *entity.OrderLine {
	p := decimal.NewFromInt(price)
	return &entity.OrderLine{ID: id, Description: "item", Quantity: decimal.NewFromInt(1), UnitPrice: p, PriceWithTax: p, Taxes: taxes}
}

func TestValidateOrder_BoletaValida(t *testing.T) {
	o := &entity.Order{
		DocumentClass: &entity.DocumentClass{SIICode: sii.DocBoletaAfecta},
		Lines:         []*entity.OrderLine{line(1, 1190, iva)},
		AmountTotal:   decimal.NewFromInt(1190),
	}
	assert.NoError(t, dte.ValidateOrder(o))
}

func TestValidateOrder_VentaNoFiscalNoSeValida(t *testing.T) {
	o := &entity.Order{Lines: []*entity.OrderLine{line(1, -500)}}
	assert.NoError(t, dte.ValidateOrder(o))
}

func TestValidateOrder_LineaNegativa(t *testing.T) {
	o := &entity.Order{
		DocumentClass: &entity.DocumentClass{SIICode: sii.DocBoletaAfecta},
		Lines:         []*entity.OrderLine{line(1, 2000, iva), line(2, -500, iva)},
		AmountTotal:   decimal.NewFromInt(1500),
	}
	err := dte.ValidateOrder(o)
	require.ErrorIs(t, err, domain.ErrIntegrityViolation)
	assert.Contains(t, err.Error(), "línea 2")
}

func TestValidateOrder_ExentaConImpuestoAfecto(t *testing.T) {
	o := &entity.Order{
		DocumentClass: &entity.DocumentClass{SIICode: sii.DocBoletaExenta},
		Lines:         []*entity.OrderLine{line(1, 1000, exento), line(2, 1190, iva)},
		AmountTotal:   decimal.NewFromInt(2190),
	}
	err := dte.ValidateOrder(o)
	require.ErrorIs(t, err, domain.ErrIntegrityViolation)
	assert.Contains(t, err.Error(), "IVA 19%")
}

func TestValidateOrder_TotalCeroYSinLineas(t *testing.T) {
	o := &entity.Order{DocumentClass: &entity.DocumentClass{SIICode: sii.DocBoletaAfecta}}
	assert.ErrorIs(t, dte.ValidateOrder(o), domain.ErrIntegrityViolation)

	o.Lines = []*entity.OrderLine{line(1, 0, iva)}
	assert.ErrorIs(t, dte.ValidateOrder(o), domain.ErrIntegrityViolation)
}

func TestValidateClient(t *testing.T) {
	o := &entity.Order{Client: &entity.Partner{Name: "Cliente", DocumentNumber: "12.345.678-5"}}
	assert.NoError(t, dte.ValidateClient(o))

	o.Client.DocumentNumber = "12.345.678-4"
	err := dte.ValidateClient(o)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, err, sii.ErrInvalidRUT)

	assert.NoError(t, dte.ValidateClient(&entity.Order{}), "sin cliente no hay nada que validar")
}
