package timbre

import (
	"time"

	"github.com/jhoicas/boleta-pos/internal/domain/entity"
)

// CafReader lee, valida y verifica archivos CAF con las llaves del SII configuradas.
type CafReader struct {
	keys AuthorityKeyring
}

// NewCafReader crea el lector. Sin llaves la verificación de FRMA se omite.
func NewCafReader(keys AuthorityKeyring) *CafReader {
	return &CafReader{keys: keys}
}

// Parse interpreta el XML del CAF.
func (r *CafReader) Parse(data []byte) (*entity.CafFile, error) {
	return ParseCAF(data)
}

// Validate comprueba empresa, tipo de documento, par de llaves y vencimiento.
func (r *CafReader) Validate(caf *entity.CafFile, companyRUT string, siiCode int, now time.Time) error {
	return ValidateCAF(caf, companyRUT, siiCode, now)
}

// VerifyAuthority verifica la firma del SII sobre la declaración.
func (r *CafReader) VerifyAuthority(caf *entity.CafFile) error {
	if len(r.keys) == 0 {
		return nil
	}
	return r.keys.VerifyAuthority(caf)
}
