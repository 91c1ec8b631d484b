package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/boleta-pos/internal/application/dto"
	"github.com/jhoicas/boleta-pos/internal/application/pos"
	"github.com/jhoicas/boleta-pos/pkg/sii"
)

// SessionHandler apertura, consulta y cierre de sesiones de caja.
type SessionHandler struct {
	uc *pos.SessionUseCase
}

// NewSessionHandler construye el handler.
func NewSessionHandler(uc *pos.SessionUseCase) *SessionHandler {
	return &SessionHandler{uc: uc}
}

// Open godoc
// @Summary      Abrir sesión de caja
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OpenSessionRequest  false  "cajero (por defecto el del token)"
// @Success      201   {object}  dto.SessionResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/sessions [post]
func (h *SessionHandler) Open(c *fiber.Ctx) error {
	var in dto.OpenSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	if in.CashierID == "" {
		in.CashierID = GetUserID(c)
	}
	out, err := h.uc.Open(c.UserContext(), GetCompanyID(c), in.CashierID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Get godoc
// @Summary      Obtener sesión con sus contadores
// @Tags         sessions
// @Produce      json
// @Param        id   path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.SessionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/sessions/{id} [get]
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Close godoc
// @Summary      Cerrar sesión de caja
// @Tags         sessions
// @Param        id   path  string  true  "ID de la sesión"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/sessions/{id}/close [post]
func (h *SessionHandler) Close(c *fiber.Ctx) error {
	if err := h.uc.Close(c.UserContext(), GetCompanyID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Sequence godoc
// @Summary      Próximo folio y folios restantes
// @Tags         sessions
// @Produce      json
// @Param        id    path  string  true  "ID de la sesión"
// @Param        code  path  int     true  "Código SII del documento (39, 41)"
// @Success      200   {object}  dto.SequenceResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/sessions/{id}/sequences/{code} [get]
func (h *SessionHandler) Sequence(c *fiber.Ctx) error {
	code, err := c.ParamsInt("code")
	if err != nil || code <= 0 {
		return validation(c, "code debe ser un código SII")
	}
	out, err := h.uc.Sequence(c.UserContext(), GetCompanyID(c), c.Params("id"), code)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// PricingHandler utilidades de cálculo: RUT e impuestos.
type PricingHandler struct {
	uc *pos.PricingUseCase
}

// NewPricingHandler construye el handler.
func NewPricingHandler(uc *pos.PricingUseCase) *PricingHandler {
	return &PricingHandler{uc: uc}
}

// ValidateRUT godoc
// @Summary      Validar RUT
// @Description  En modo estricto un RUT inválido responde 400 con el motivo.
// @Tags         tools
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RUTValidateRequest  true  "rut, strict"
// @Success      200   {object}  dto.RUTValidateResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/rut/validate [post]
func (h *PricingHandler) ValidateRUT(c *fiber.Ctx) error {
	var in dto.RUTValidateRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	rut, ok, err := sii.ValidateRUT(in.RUT, in.Strict)
	if err != nil {
		return respondError(c, err)
	}
	out := dto.RUTValidateResponse{Valid: ok}
	if ok {
		out.RUT = rut.String()
	}
	return c.JSON(out)
}

// ComputeTaxes godoc
// @Summary      Calcular impuestos de una línea
// @Tags         tools
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TaxComputeRequest  true  "impuestos, precio y cantidad"
// @Success      200   {object}  dto.TaxComputeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/taxes/compute [post]
func (h *PricingHandler) ComputeTaxes(c *fiber.Ctx) error {
	var in dto.TaxComputeRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.ComputeTaxes(in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
