package entity

import "time"

// CafStatus estado de uso de un CAF.
type CafStatus string

const (
	CafDraft CafStatus = "draft"
	CafInUse CafStatus = "in_use"
	CafSpent CafStatus = "spent"
)

// CafFile Código de Autorización de Folios emitido por el SII para un tipo de documento.
// Inmutable una vez cargado; los rangos de distintos CAF pueden no ser contiguos.
type CafFile struct {
	ID                 string
	CompanyID          string
	SIICode            int        // TD: tipo de documento autorizado
	EmitterRUT         string     // RE
	EmitterName        string     // RS
	RangeStart         int64      // RNG/D
	RangeEnd           int64      // RNG/H
	IssuedDate         time.Time  // FA
	ExpirationDate     *time.Time // nil = no vence
	KeyID              string     // IDK: llave del SII que firmó la declaración
	PublicModulus      string     // RSAPK/M (base64)
	PublicExponent     string     // RSAPK/E (base64)
	AuthoritySignature string     // FRMA
	PrivateKeyPEM      string     // RSASK
	PublicKeyPEM       string     // RSAPUBK
	Declaration        string     // elemento <CAF> compacto, se incrusta tal cual en el TED
	RawXML             []byte     // archivo original (ISO-8859-1)
	Filename           string
	Status             CafStatus
	CreatedAt          time.Time
}

// Contains indica si el folio está dentro del rango autorizado.
func (c *CafFile) Contains(folio int64) bool {
	return folio >= c.RangeStart && folio <= c.RangeEnd
}

// Size cantidad de folios autorizados.
func (c *CafFile) Size() int64 {
	return c.RangeEnd - c.RangeStart + 1
}

// UseLevel porcentaje consumido del rango dado el próximo folio a emitir.
func (c *CafFile) UseLevel(next int64) float64 {
	switch {
	case next <= c.RangeStart:
		return 0
	case next > c.RangeEnd:
		return 100
	}
	return float64(next-c.RangeStart) / float64(c.Size()) * 100
}

// IsExpired indica si el CAF venció a la fecha dada.
func (c *CafFile) IsExpired(now time.Time) bool {
	return c.ExpirationDate != nil && now.After(*c.ExpirationDate)
}

// CafSet colección de CAF de una clase de documento.
type CafSet []*CafFile

// ForFolio devuelve el CAF cuyo rango contiene el folio, o nil.
func (s CafSet) ForFolio(folio int64) *CafFile {
	for _, c := range s {
		if c.Contains(folio) {
			return c
		}
	}
	return nil
}
