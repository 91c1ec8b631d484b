package entity

import "time"

// Estados de sesión de caja.
const (
	SessionOpened = "opened"
	SessionClosed = "closed"
)

// PosSession sesión de caja: dueña de los contadores de folios por clase de documento.
type PosSession struct {
	ID        string
	CompanyID string
	CashierID string
	State     string // opened, closed
	Sequences []*SessionSequence
	OpenedAt  time.Time
	ClosedAt  *time.Time
}

// SessionSequence contador persistido de una clase de documento en la sesión.
type SessionSequence struct {
	SessionID       string
	DocumentClassID string
	SIICode         int
	StartNumber     int64 // folio activo al abrir la sesión
	Issued          int64 // documentos emitidos (numero_ordenes); nunca decrece
}

// Sequence devuelve el contador de la clase dada, o nil.
func (s *PosSession) Sequence(siiCode int) *SessionSequence {
	for _, seq := range s.Sequences {
		if seq.SIICode == siiCode {
			return seq
		}
	}
	return nil
}
