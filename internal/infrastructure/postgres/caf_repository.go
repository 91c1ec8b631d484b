package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/internal/domain/repository"
)

var _ repository.CafRepository = (*CafRepo)(nil)

const cafColumns = `id, company_id, sii_code, emitter_rut, emitter_name, range_start, range_end,
	issued_date, expiration_date, key_id, public_modulus, public_exponent, authority_signature,
	private_key_pem, public_key_pem, declaration, raw_xml, filename, status, created_at`

// CafRepo CAF cargados por empresa. El XML original se guarda tal como llegó (ISO-8859-1).
type CafRepo struct {
	q Querier
}

// NewCafRepository construye el repositorio.
func NewCafRepository(q Querier) *CafRepo {
	return &CafRepo{q: q}
}

// Create inserta el CAF. Un rango repetido para la misma empresa y tipo es ErrDuplicate.
func (r *CafRepo) Create(ctx context.Context, c *entity.CafFile) error {
	query := `INSERT INTO caf_files (` + cafColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.CompanyID, c.SIICode, c.EmitterRUT, c.EmitterName, c.RangeStart, c.RangeEnd,
		c.IssuedDate, c.ExpirationDate, c.KeyID, c.PublicModulus, c.PublicExponent, c.AuthoritySignature,
		c.PrivateKeyPEM, c.PublicKeyPEM, c.Declaration, c.RawXML, c.Filename, string(c.Status), c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: CAF %d [%d,%d]", domain.ErrDuplicate, c.SIICode, c.RangeStart, c.RangeEnd)
		}
		return fmt.Errorf("insert caf: %w", err)
	}
	return nil
}

// ListByCompanyAndCode CAF de la empresa para el tipo de documento, por inicio de rango.
func (r *CafRepo) ListByCompanyAndCode(ctx context.Context, companyID string, siiCode int) ([]*entity.CafFile, error) {
	query := `SELECT ` + cafColumns + ` FROM caf_files
		WHERE company_id = $1 AND sii_code = $2 ORDER BY range_start`
	rows, err := r.q.Query(ctx, query, companyID, siiCode)
	if err != nil {
		return nil, fmt.Errorf("list cafs: %w", err)
	}
	defer rows.Close()

	var list []*entity.CafFile
	for rows.Next() {
		var (
			c      entity.CafFile
			status string
			exp    *time.Time
		)
		if err := rows.Scan(
			&c.ID, &c.CompanyID, &c.SIICode, &c.EmitterRUT, &c.EmitterName, &c.RangeStart, &c.RangeEnd,
			&c.IssuedDate, &exp, &c.KeyID, &c.PublicModulus, &c.PublicExponent, &c.AuthoritySignature,
			&c.PrivateKeyPEM, &c.PublicKeyPEM, &c.Declaration, &c.RawXML, &c.Filename, &status, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan caf: %w", err)
		}
		c.ExpirationDate = exp
		c.Status = entity.CafStatus(status)
		list = append(list, &c)
	}
	return list, rows.Err()
}

// UpdateStatus cambia el estado de uso del CAF.
func (r *CafRepo) UpdateStatus(ctx context.Context, id string, status entity.CafStatus) error {
	cmd, err := r.q.Exec(ctx, `UPDATE caf_files SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update caf status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
