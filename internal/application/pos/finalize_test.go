package pos_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/boleta-pos/internal/application/dto"
	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/internal/infrastructure/timbre"
	"github.com/jhoicas/boleta-pos/internal/infrastructure/timbre/timbretest"
)

func TestFinalize_BoletaFoliadaYTimbrada(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addCaf(t, 1, 50)
	sid := f.open(t)

	first, err := f.finalize.Finalize(ctx, companyID, sid, boletaInput("1190"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.SIIDocumentNumber)
	assert.Equal(t, int64(1), first.OrdenNumero)
	assert.True(t, first.Finalized)
	assert.Equal(t, "190", first.AmountTax.String())
	assert.Equal(t, "1190", first.AmountTotal.String())
	require.NotNil(t, first.Stamp)
	assert.NotEmpty(t, first.Stamp.Signature)
	assert.Equal(t, int64(1), first.Stamp.Folio)
	assert.Equal(t, int64(1190), first.Stamp.Amount)
	assert.Equal(t, "Pan amasado", first.Stamp.FirstItem)

	second, err := f.finalize.Finalize(ctx, companyID, sid, boletaInput("500"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.SIIDocumentNumber)
	assert.Equal(t, int64(2), f.sessions.issued(sid, "boleta_afecta"), "el contador persistido acompaña a la venta")
	assert.Equal(t, 2, f.metrics.issued[39])
	assert.Equal(t, int64(48), f.metrics.left[39])

	stored, err := f.orders.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Stamp.XML, stored.Stamp.XML)
}

func TestFinalize_Idempotente(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addCaf(t, 1, 50)
	sid := f.open(t)

	in := boletaInput("1190")
	in.ID = "venta-1"
	a, err := f.finalize.Finalize(ctx, companyID, sid, in)
	require.NoError(t, err)
	b, err := f.finalize.Finalize(ctx, companyID, sid, in)
	require.NoError(t, err)

	assert.Equal(t, a.SIIDocumentNumber, b.SIIDocumentNumber)
	assert.Equal(t, a.Stamp.XML, b.Stamp.XML)
	assert.Equal(t, int64(1), f.sessions.issued(sid, "boleta_afecta"), "reenviar no consume folios")

	again, err := f.finalize.FinalizeOrder(ctx, companyID, a)
	require.NoError(t, err)
	assert.Same(t, a, again, "una venta timbrada se devuelve sin cambios")
}

func TestFinalize_FalloAlGuardarNoConsumeFolio(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addCaf(t, 1, 50)
	sid := f.open(t)

	f.tx.err = errors.New("conexión perdida")
	_, err := f.finalize.Finalize(ctx, companyID, sid, boletaInput("1190"))
	require.Error(t, err)
	assert.Equal(t, 1, f.metrics.failures["error"])

	f.tx.err = nil
	o, err := f.finalize.Finalize(ctx, companyID, sid, boletaInput("1190"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), o.SIIDocumentNumber, "el folio del intento fallido se reutiliza")
}

func TestFinalize_SinFolios(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addCaf(t, 1, 1)
	sid := f.open(t)

	_, err := f.finalize.Finalize(ctx, companyID, sid, boletaInput("1190"))
	require.NoError(t, err)

	in := boletaInput("1190")
	in.ID = "venta-sin-folio"
	_, err = f.finalize.Finalize(ctx, companyID, sid, in)
	require.ErrorIs(t, err, domain.ErrNoFoliosAvailable)
	assert.Equal(t, 1, f.metrics.failures["no_folios"])
	assert.Equal(t, int64(1), f.sessions.issued(sid, "boleta_afecta"))

	stored, _ := f.orders.GetByID(ctx, "venta-sin-folio")
	assert.Nil(t, stored, "la venta queda sin numerar")

	// un CAF nuevo cargado durante la sesión habilita el siguiente rango
	gen := timbretest.New(t, timbretest.Config{From: 101, To: 150})
	_, err = f.caf.Load(ctx, companyID, "caf-101.xml", gen.XML, 39)
	require.NoError(t, err)

	o, err := f.finalize.Finalize(ctx, companyID, sid, in)
	require.NoError(t, err)
	assert.Equal(t, int64(101), o.SIIDocumentNumber)
	assert.Equal(t, int64(2), o.OrdenNumero)
}

func TestFinalize_MarcaEstadoDelCAF(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	caf := f.addCaf(t, 1, 2)
	sid := f.open(t)

	_, err := f.finalize.Finalize(ctx, companyID, sid, boletaInput("1190"))
	require.NoError(t, err)
	assert.Equal(t, entity.CafInUse, caf.Status)

	_, err = f.finalize.Finalize(ctx, companyID, sid, boletaInput("1190"))
	require.NoError(t, err)
	assert.Equal(t, entity.CafSpent, caf.Status)
}

func TestFinalize_VentaSinDocumento(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sid := f.open(t)

	in := boletaInput("1190")
	in.DocumentClassID = ""
	o, err := f.finalize.Finalize(ctx, companyID, sid, in)
	require.NoError(t, err)
	assert.True(t, o.Finalized)
	assert.Zero(t, o.SIIDocumentNumber)
	assert.Nil(t, o.Stamp)
	assert.NotEmpty(t, o.ID)
}

func TestFinalize_TipoDeDocumentoDesconocido(t *testing.T) {
	f := newFixture(t)
	f.addCaf(t, 1, 50)
	sid := f.open(t)

	in := boletaInput("1190")
	in.DocumentClassID = "boleta_afectaX"
	o, err := f.finalize.Finalize(context.Background(), companyID, sid, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, o)
	assert.Empty(t, f.orders.m, "no se guarda una venta sin folio")
	assert.Equal(t, int64(0), f.sessions.issued(sid, "boleta_afecta"))
}

func TestFinalize_RUTClienteInvalido(t *testing.T) {
	f := newFixture(t)
	f.addCaf(t, 1, 50)
	sid := f.open(t)

	in := boletaInput("1190")
	in.Client = &dto.ClientInput{Name: "Juan", DocumentNumber: "12.345.678-9"}
	_, err := f.finalize.Finalize(context.Background(), companyID, sid, in)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, int64(0), f.sessions.issued(sid, "boleta_afecta"))
}

func TestFinalize_BoletaExentaConIVA(t *testing.T) {
	f := newFixture(t)
	sid := f.open(t)

	in := boletaInput("1190")
	in.DocumentClassID = "boleta_exenta"
	_, err := f.finalize.Finalize(context.Background(), companyID, sid, in)
	assert.ErrorIs(t, err, domain.ErrIntegrityViolation)
}

func TestFinalize_OtraEmpresa(t *testing.T) {
	f := newFixture(t)
	sid := f.open(t)
	_, err := f.finalize.Finalize(context.Background(), "otra", sid, boletaInput("1190"))
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestFinalize_Concurrente(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addCaf(t, 1, 10)
	f.addCaf(t, 21, 40)
	sid := f.open(t)

	const n = 25
	var wg sync.WaitGroup
	folios := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := f.finalize.Finalize(ctx, companyID, sid, boletaInput("1000"))
			if assert.NoError(t, err) {
				folios <- o.SIIDocumentNumber
			}
		}()
	}
	wg.Wait()
	close(folios)

	seen := map[int64]bool{}
	for folio := range folios {
		assert.False(t, seen[folio], "folio %d repetido", folio)
		assert.True(t, (folio >= 1 && folio <= 10) || (folio >= 21 && folio <= 40), "folio %d fuera de los CAF", folio)
		seen[folio] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, int64(n), f.sessions.issued(sid, "boleta_afecta"))
}

func TestFinalize_TimbreVerificable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	gen := timbretest.New(t, timbretest.Config{From: 1, To: 50})
	_, err := f.caf.Load(ctx, companyID, "caf.xml", gen.XML, 0)
	require.NoError(t, err)
	sid := f.open(t)

	o, err := f.finalize.Finalize(ctx, companyID, sid, boletaInput("2380"))
	require.NoError(t, err)

	dd, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(o.Stamp.DD))
	require.NoError(t, err)
	assert.NoError(t, timbre.Verify(dd, o.Stamp.Signature, &gen.Key.PublicKey))
	assert.True(t, decimal.NewFromInt(380).Equal(o.AmountTax))
}
