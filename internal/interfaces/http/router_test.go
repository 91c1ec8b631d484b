package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/boleta-pos/internal/application/dto"
	"github.com/jhoicas/boleta-pos/internal/application/pos"
	"github.com/jhoicas/boleta-pos/internal/domain/tax"
	"github.com/jhoicas/boleta-pos/internal/infrastructure/masterdata"
	"github.com/jhoicas/boleta-pos/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/boleta-pos/internal/interfaces/http"
	"github.com/jhoicas/boleta-pos/pkg/logger"
)

func newRouterApp(t *testing.T) (*fiber.App, *metrics.Recorder) {
	t.Helper()
	rec := metrics.NewRecorder("boleta-pos", "test")
	pricing := pos.NewPricingUseCase(tax.NewEngine(false), masterdata.Default(), decimal.NewFromInt(1), logger.Nop().Zerolog())
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		ServiceName: "boleta-pos",
		PricingUC:   pricing,
		Metrics:     rec.Registry(),
		JWTSecret:   testJWTSecret,
	})
	return app, rec
}

func doJSON(t *testing.T, app *fiber.App, method, path, auth string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, out
}

func TestRouter_Health(t *testing.T) {
	app, _ := newRouterApp(t)
	resp, body := doJSON(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)
}

func TestRouter_Metrics(t *testing.T) {
	app, rec := newRouterApp(t)
	rec.FolioIssued(39, 99)

	resp, body := doJSON(t, app, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `pos_folios_remaining{env="test",service="boleta-pos",sii_code="39"} 99`)
}

func TestRouter_ValidarRUT(t *testing.T) {
	app, _ := newRouterApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/rut/validate", "", dto.RUTValidateRequest{RUT: "12.345.678-5"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.RUTValidateResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Valid)
	assert.Equal(t, "12345678-5", out.RUT)

	resp, body = doJSON(t, app, http.MethodPost, "/api/rut/validate", "", dto.RUTValidateRequest{RUT: "12.345.678-4"})
	require.Equal(t, http.StatusOK, resp.StatusCode, "en modo no estricto un RUT inválido no es error")
	require.NoError(t, json.Unmarshal(body, &out))
	assert.False(t, out.Valid)

	resp, body = doJSON(t, app, http.MethodPost, "/api/rut/validate", "", dto.RUTValidateRequest{RUT: "12.345.678-4", Strict: true})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "INVALID_RUT")
}

func TestRouter_CalcularImpuestos(t *testing.T) {
	app, _ := newRouterApp(t)
	in := dto.TaxComputeRequest{
		TaxIDs:    []string{"iva_19"},
		UnitPrice: decimal.NewFromInt(1000),
		Quantity:  decimal.NewFromInt(2),
	}

	resp, _ := doJSON(t, app, http.MethodPost, "/api/taxes/compute", "", in)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "requiere token")

	resp, body := doJSON(t, app, http.MethodPost, "/api/taxes/compute", tokenForRole(t, "cajero"), in)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out dto.TaxComputeResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, decimal.NewFromInt(2000).Equal(out.TotalExcluded))
	assert.True(t, decimal.NewFromInt(380).Equal(out.TotalTax))
	assert.True(t, decimal.NewFromInt(2380).Equal(out.TotalIncluded))

	in.TaxIDs = []string{"no_existe"}
	resp, _ = doJSON(t, app, http.MethodPost, "/api/taxes/compute", tokenForRole(t, "cajero"), in)
	assert.GreaterOrEqual(t, resp.StatusCode, 400)
	assert.Less(t, resp.StatusCode, 500)
}

func TestRouter_RegistroSoloAdmin(t *testing.T) {
	app, _ := newRouterApp(t)
	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/register", tokenForRole(t, "cajero"),
		dto.RegisterRequest{Email: "a@b.cl", Password: "12345678"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, string(body), "FORBIDDEN")
}

func TestRouter_CargaCafSoloSupervisor(t *testing.T) {
	app, _ := newRouterApp(t)
	resp, _ := doJSON(t, app, http.MethodPost, "/api/cafs", tokenForRole(t, "cajero"), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
