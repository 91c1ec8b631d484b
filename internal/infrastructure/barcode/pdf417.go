// Package barcode dibuja el timbre electrónico como código PDF417 para imprimirlo en la boleta.
package barcode

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/pdf417"

	"github.com/jhoicas/boleta-pos/pkg/sii"
)

// PDF417Renderer transforma el XML del TED en una imagen PNG. No tiene reglas de negocio.
type PDF417Renderer struct {
	SecurityLevel byte // nivel de corrección de errores (0-8)
	ModuleWidth   int  // píxeles por módulo en horizontal
	RowHeight     int  // multiplicador vertical de cada fila
}

// NewPDF417Renderer crea el renderer con los valores de impresión por defecto.
func NewPDF417Renderer(securityLevel int) *PDF417Renderer {
	if securityLevel < 0 || securityLevel > 8 {
		securityLevel = sii.PDF417SecurityLevel
	}
	return &PDF417Renderer{SecurityLevel: byte(securityLevel), ModuleWidth: 2, RowHeight: 3}
}

// Encode devuelve el código de barras sin escalar.
func (r *PDF417Renderer) Encode(ted string) (barcode.Barcode, error) {
	if ted == "" {
		return nil, fmt.Errorf("barcode: timbre vacío")
	}
	bc, err := pdf417.Encode(ted, r.SecurityLevel)
	if err != nil {
		return nil, fmt.Errorf("barcode: codificar PDF417: %w", err)
	}
	return bc, nil
}

// PNG devuelve el código con módulos de ModuleWidth×RowHeight píxeles, codificado en PNG.
func (r *PDF417Renderer) PNG(ted string) ([]byte, error) {
	bc, err := r.Encode(ted)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, r.scale(bc)); err != nil {
		return nil, fmt.Errorf("barcode: PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// scale amplía cada módulo a ModuleWidth×RowHeight píxeles.
func (r *PDF417Renderer) scale(bc barcode.Barcode) *image.Gray {
	mw, rh := max(r.ModuleWidth, 1), max(r.RowHeight, 1)
	b := bc.Bounds()
	img := image.NewGray(image.Rect(0, 0, b.Dx()*mw, b.Dy()*rh))
	for y := 0; y < img.Rect.Dy(); y++ {
		for x := 0; x < img.Rect.Dx(); x++ {
			c := color.GrayModel.Convert(bc.At(b.Min.X+x/mw, b.Min.Y+y/rh)).(color.Gray)
			if c.Y < 128 {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}
