package folio

import (
	"fmt"
	"sync"

	"github.com/jhoicas/boleta-pos/internal/domain"
)

// Sequence contador de documentos de una clase dentro de una sesión de caja.
// Pertenece a la sesión; el contador solo avanza y nunca se reutiliza.
type Sequence struct {
	mu       sync.Mutex
	siiCode  int
	baseline int64
	issued   int64
	ranges   []Range
}

// NewSequence crea el contador a partir del folio inicial de la sesión y los documentos
// ya emitidos en ella.
func NewSequence(siiCode int, baseline, issued int64, ranges []Range) *Sequence {
	return &Sequence{
		siiCode:  siiCode,
		baseline: baseline,
		issued:   issued,
		ranges:   append([]Range(nil), ranges...),
	}
}

// SIICode tipo de documento de la secuencia.
func (s *Sequence) SIICode() int { return s.siiCode }

// Baseline folio inicial de la sesión.
func (s *Sequence) Baseline() int64 { return s.baseline }

// Issued documentos emitidos en la sesión.
func (s *Sequence) Issued() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issued
}

// Next folio que recibiría el próximo documento, sin consumirlo.
func (s *Sequence) Next() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NextNumber(s.baseline+s.issued, s.ranges, s.baseline)
}

// Left folios disponibles en los CAF cargados.
func (s *Sequence) Left() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Remaining(s.baseline+s.issued, s.ranges, s.baseline)
}

// Reserve asigna el próximo folio y ejecuta fn con él mientras mantiene el lock.
// El contador avanza solo si fn termina sin error; si fn falla el folio queda libre
// para el siguiente intento.
func (s *Sequence) Reserve(fn func(folio, ordenNumero int64) error) (folio, ordenNumero int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	folio, err = NextNumber(s.baseline+s.issued, s.ranges, s.baseline)
	if err != nil {
		return 0, 0, err
	}
	ordenNumero = s.issued + 1
	if fn != nil {
		if err = fn(folio, ordenNumero); err != nil {
			return 0, 0, err
		}
	}
	s.issued = ordenNumero
	return folio, ordenNumero, nil
}

// Resume suma los documentos ya numerados que siguen pendientes de sincronizar,
// para no repetir sus folios al reabrir la sesión.
func (s *Sequence) Resume(pending int64) error {
	if pending < 0 {
		return fmt.Errorf("%w: pendientes negativos (%d)", domain.ErrInvalidInput, pending)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued += pending
	return nil
}

// AddRanges incorpora los rangos de un CAF cargado durante la sesión.
func (s *Sequence) AddRanges(ranges ...Range) error {
	if _, err := sortedRanges(ranges); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges = append(s.ranges, ranges...)
	return nil
}
