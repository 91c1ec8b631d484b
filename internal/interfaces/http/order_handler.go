package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/boleta-pos/internal/application/dto"
	"github.com/jhoicas/boleta-pos/internal/application/pos"
)

// OrderHandler finalización, consulta e impresión de ventas.
type OrderHandler struct {
	finalize *pos.FinalizeUseCase
	orders   *pos.OrderUseCase
	receipts *pos.ReceiptUseCase
}

// NewOrderHandler construye el handler.
func NewOrderHandler(finalize *pos.FinalizeUseCase, orders *pos.OrderUseCase, receipts *pos.ReceiptUseCase) *OrderHandler {
	return &OrderHandler{finalize: finalize, orders: orders, receipts: receipts}
}

// Finalize godoc
// @Summary      Finalizar venta
// @Description  Con sequence_id de boleta asigna folio, firma el TED y guarda la venta.
// @Description  Sin folios o CAF disponibles responde 409 y el contador no avanza.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id    path  string          true  "ID de la sesión"
// @Param        body  body  dto.OrderInput  true  "venta"
// @Success      201   {object}  dto.OrderExport
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/sessions/{id}/orders [post]
func (h *OrderHandler) Finalize(c *fiber.Ctx) error {
	var in dto.OrderInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if len(in.Lines) == 0 {
		return validation(c, "la venta debe tener al menos una línea")
	}
	order, err := h.finalize.Finalize(c.UserContext(), GetCompanyID(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.orders.Export(order))
}

// Import godoc
// @Summary      Importar venta exportada por una caja
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OrderExport  true  "venta exportada"
// @Success      201   {object}  dto.OrderExport
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/orders/import [post]
func (h *OrderHandler) Import(c *fiber.Ctx) error {
	var in dto.OrderExport
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	order, err := h.orders.Import(c.UserContext(), GetCompanyID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.orders.Export(order))
}

// List godoc
// @Summary      Listar ventas
// @Tags         orders
// @Produce      json
// @Param        session_id  query  string  false  "Sesión"
// @Param        sii_code    query  int     false  "Código SII"
// @Param        from        query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to          query  string  false  "Hasta (YYYY-MM-DD)"
// @Param        limit       query  int     false  "Límite"  default(20)
// @Param        offset      query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.OrderListResponse
// @Security     BearerAuth
// @Router       /api/orders [get]
func (h *OrderHandler) List(c *fiber.Ctx) error {
	var in dto.OrderListRequest
	if err := c.QueryParser(&in); err != nil {
		return validation(c, "parámetros de consulta inválidos")
	}
	if in.Limit > 100 {
		in.Limit = 100
	}
	out, err := h.orders.List(c.UserContext(), GetCompanyID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Get godoc
// @Summary      Obtener venta
// @Tags         orders
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {object}  dto.OrderExport
// @Failure      404  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	order, err := h.orders.Get(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(h.orders.Export(order))
}

// Barcode godoc
// @Summary      PDF417 del timbre electrónico
// @Tags         orders
// @Produce      png
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {file}  binary
// @Failure      400  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/orders/{id}/barcode.png [get]
func (h *OrderHandler) Barcode(c *fiber.Ctx) error {
	png, err := h.receipts.Barcode(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

// Receipt godoc
// @Summary      Datos de impresión de la boleta
// @Tags         orders
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {object}  dto.ReceiptExport
// @Security     BearerAuth
// @Router       /api/orders/{id}/receipt [get]
func (h *OrderHandler) Receipt(c *fiber.Ctx) error {
	out, err := h.receipts.Receipt(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// ReceiptPDF godoc
// @Summary      Boleta impresa en PDF
// @Tags         orders
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {file}  binary
// @Security     BearerAuth
// @Router       /api/orders/{id}/receipt.pdf [get]
func (h *OrderHandler) ReceiptPDF(c *fiber.Ctx) error {
	pdf, filename, err := h.receipts.PDF(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	return c.Send(pdf)
}
