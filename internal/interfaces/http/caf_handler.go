package http

import (
	"io"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/boleta-pos/internal/application/pos"
)

// maxCafSize un CAF real pesa unos pocos KB.
const maxCafSize = 64 << 10

// CafHandler carga y listado de archivos CAF.
type CafHandler struct {
	uc *pos.CafUseCase
}

// NewCafHandler construye el handler.
func NewCafHandler(uc *pos.CafUseCase) *CafHandler {
	return &CafHandler{uc: uc}
}

// Upload godoc
// @Summary      Cargar CAF
// @Description  Acepta el XML en el campo multipart "file" o como cuerpo crudo.
// @Tags         cafs
// @Accept       multipart/form-data
// @Produce      json
// @Param        file        formData  file  false  "CAF XML"
// @Param        class_code  query     int   false  "Código SII esperado (39, 41)"
// @Success      201  {object}  dto.CafResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Security     BearerAuth
// @Router       /api/cafs [post]
func (h *CafHandler) Upload(c *fiber.Ctx) error {
	code := c.QueryInt("class_code", 0)
	filename := c.Query("filename", "caf.xml")
	var data []byte
	if fh, err := c.FormFile("file"); err == nil {
		if fh.Size > maxCafSize {
			return validation(c, "el CAF excede el tamaño permitido")
		}
		f, err := fh.Open()
		if err != nil {
			return badBody(c)
		}
		defer f.Close()
		if data, err = io.ReadAll(io.LimitReader(f, maxCafSize)); err != nil {
			return badBody(c)
		}
		filename = filepath.Base(fh.Filename)
	} else {
		data = c.Body()
	}
	if len(data) == 0 {
		return validation(c, "CAF vacío")
	}
	if len(data) > maxCafSize {
		return validation(c, "el CAF excede el tamaño permitido")
	}
	out, err := h.uc.Load(c.UserContext(), GetCompanyID(c), filename, data, code)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar CAF de un tipo de documento
// @Tags         cafs
// @Produce      json
// @Param        code  path  int  true  "Código SII"
// @Success      200  {array}  dto.CafResponse
// @Security     BearerAuth
// @Router       /api/cafs/{code} [get]
func (h *CafHandler) List(c *fiber.Ctx) error {
	code, err := c.ParamsInt("code")
	if err != nil || code <= 0 {
		return validation(c, "code debe ser un código SII")
	}
	out, err := h.uc.List(c.UserContext(), GetCompanyID(c), code)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
