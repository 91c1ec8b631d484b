// Package folio traduce el contador de documentos de una sesión a folios autorizados
// por los CAF de una clase de documento.
package folio

import (
	"fmt"
	"sort"

	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
)

// Range intervalo cerrado de folios autorizados.
type Range struct {
	Start int64
	End   int64
}

// RangesFromCafs extrae los rangos de un conjunto de CAF.
func RangesFromCafs(cafs entity.CafSet) []Range {
	out := make([]Range, 0, len(cafs))
	for _, c := range cafs {
		out = append(out, Range{Start: c.RangeStart, End: c.RangeEnd})
	}
	return out
}

// sortedRanges valida y ordena por (inicio, fin). No modifica la entrada.
func sortedRanges(ranges []Range) ([]Range, error) {
	out := make([]Range, len(ranges))
	copy(out, ranges)
	for _, r := range out {
		if r.Start > r.End || r.Start < 1 {
			return nil, fmt.Errorf("%w: rango de folios [%d,%d] inválido", domain.ErrMalformedAuthorization, r.Start, r.End)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out, nil
}

// NextNumber devuelve el folio del documento número counter-baseline+1 emitido desde baseline.
// Los rangos se recorren en orden ascendente a partir del rango que contiene baseline; los
// huecos entre rangos se saltan y los tramos solapados se consumen una sola vez.
// Cada rango se visita a lo más una vez, así que datos mal formados no pueden ciclar.
func NextNumber(counter int64, ranges []Range, baseline int64) (int64, error) {
	if counter < baseline {
		return 0, fmt.Errorf("%w: contador %d menor que el folio inicial %d", domain.ErrInvalidInput, counter, baseline)
	}
	sorted, err := sortedRanges(ranges)
	if err != nil {
		return 0, err
	}
	offset := counter - baseline
	cursor := baseline
	for _, r := range sorted {
		start := max(r.Start, cursor)
		if start > r.End {
			continue
		}
		n := r.End - start + 1
		if offset < n {
			return start + offset, nil
		}
		offset -= n
		cursor = r.End + 1
	}
	return 0, fmt.Errorf("%w: contador %d fuera de los rangos autorizados", domain.ErrNoFoliosAvailable, counter)
}

// Remaining cantidad de folios aún disponibles dado el contador actual.
func Remaining(counter int64, ranges []Range, baseline int64) int64 {
	next, err := NextNumber(counter, ranges, baseline)
	if err != nil {
		return 0
	}
	sorted, _ := sortedRanges(ranges)
	var left int64
	cursor := next
	for _, r := range sorted {
		if r.End < cursor {
			continue
		}
		start := max(r.Start, cursor)
		left += r.End - start + 1
		cursor = r.End + 1
	}
	return left
}
