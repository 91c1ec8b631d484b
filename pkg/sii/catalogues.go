// Package sii contiene catálogos y validaciones del Servicio de Impuestos Internos (Chile)
// usados por la boleta electrónica: RUT, tipos de documento y códigos de impuesto.
package sii

// =============================================================================
// Tipos de Documento Tributario Electrónico (TD en el CAF y en el TED)
// =============================================================================

const (
	DocFacturaAfecta = 33 // Factura electrónica
	DocFacturaExenta = 34 // Factura no afecta o exenta electrónica
	DocBoletaAfecta  = 39 // Boleta electrónica
	DocBoletaExenta  = 41 // Boleta exenta electrónica
	DocGuiaDespacho  = 52 // Guía de despacho electrónica
	DocNotaDebito    = 56 // Nota de débito electrónica
	DocNotaCredito   = 61 // Nota de crédito electrónica
)

// DocumentNames nombres impresos por tipo de documento.
var DocumentNames = map[int]string{
	DocFacturaAfecta: "FACTURA ELECTRÓNICA",
	DocFacturaExenta: "FACTURA NO AFECTA O EXENTA ELECTRÓNICA",
	DocBoletaAfecta:  "BOLETA ELECTRÓNICA",
	DocBoletaExenta:  "BOLETA EXENTA ELECTRÓNICA",
	DocGuiaDespacho:  "GUÍA DE DESPACHO ELECTRÓNICA",
	DocNotaDebito:    "NOTA DE DÉBITO ELECTRÓNICA",
	DocNotaCredito:   "NOTA DE CRÉDITO ELECTRÓNICA",
}

// IsBoleta indica si el código corresponde a una boleta (afecta o exenta).
func IsBoleta(code int) bool {
	return code == DocBoletaAfecta || code == DocBoletaExenta
}

// IsExemptDocument indica si el documento no puede llevar impuestos afectos.
func IsExemptDocument(code int) bool {
	return code == DocBoletaExenta || code == DocFacturaExenta
}

// CafExpires indica si el CAF del tipo de documento vence (6 meses desde FA).
// Boletas, facturas exentas y guías de despacho no vencen.
func CafExpires(code int) bool {
	switch code {
	case DocBoletaAfecta, DocBoletaExenta, DocFacturaExenta, DocGuiaDespacho:
		return false
	}
	return true
}

// CafValidityMonths vigencia del CAF para los tipos que vencen.
const CafValidityMonths = 6

// =============================================================================
// Códigos de impuesto SII
// =============================================================================

const (
	TaxCodeExento     = 0  // Exento / no afecto
	TaxCodeIVA        = 14 // IVA
	TaxCodeIVAAnticip = 15 // IVA retenido / anticipado
)

// IsVAT indica si el código SII del impuesto corresponde a IVA.
func IsVAT(code int) bool {
	return code == TaxCodeIVA || code == TaxCodeIVAAnticip
}

// =============================================================================
// Receptor por defecto del TED cuando la venta no tiene cliente
// =============================================================================

const (
	AnonymousReceiverRUT  = "66666666-6"
	AnonymousReceiverName = "Usuario Anonimo"
)

// =============================================================================
// Algoritmos y versiones del TED / CAF
// =============================================================================

const (
	SignatureAlgorithm = "SHA1withRSA"
	TEDVersion         = "1.0"
	CAFVersion         = "1.0"
	// PDF417SecurityLevel nivel de corrección de errores exigido para el timbre impreso.
	PDF417SecurityLevel = 5
)
