package entity

import "github.com/jhoicas/boleta-pos/pkg/sii"

// DocumentClass tipo de documento fiscal (boleta afecta, boleta exenta, factura...).
type DocumentClass struct {
	ID      string
	Name    string
	SIICode int // 39, 41, 33, 34
}

// IsBoleta indica si la clase es una boleta.
func (d *DocumentClass) IsBoleta() bool {
	return d != nil && sii.IsBoleta(d.SIICode)
}

// IsExempt indica si la clase no admite impuestos afectos.
func (d *DocumentClass) IsExempt() bool {
	return d != nil && sii.IsExemptDocument(d.SIICode)
}
