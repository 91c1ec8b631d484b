package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/boleta-pos/internal/application/dto"
	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
)

type memCompanies struct {
	mu   sync.Mutex
	byID map[string]*entity.Company
}

func newMemCompanies() *memCompanies {
	return &memCompanies{byID: map[string]*entity.Company{}}
}

func (m *memCompanies) Create(_ context.Context, c *entity.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[c.ID] = c
	return nil
}

func (m *memCompanies) GetByID(_ context.Context, id string) (*entity.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id], nil
}

func (m *memCompanies) GetByRUT(_ context.Context, rut string) (*entity.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.RUT == rut {
			return c, nil
		}
	}
	return nil, nil
}

func TestCompanyUseCase_Create(t *testing.T) {
	uc := NewCompanyUseCase(newMemCompanies())
	ctx := context.Background()

	out, err := uc.Create(ctx, dto.CreateCompanyRequest{
		Name: " Comercial de Prueba ", RUT: "12.345.678-5",
		ResolutionNumber: "80", ResolutionDate: "2014-08-22",
	})
	require.NoError(t, err)
	assert.Equal(t, "Comercial de Prueba", out.Name)
	assert.Equal(t, "12345678-5", out.RUT, "el RUT se guarda en forma canónica")
	assert.Equal(t, 2014, out.ResolutionDate.Year())

	got, err := uc.GetByID(ctx, out.ID)
	require.NoError(t, err)
	assert.Equal(t, out.RUT, got.RUT)

	_, err = uc.Create(ctx, dto.CreateCompanyRequest{Name: "Otra", RUT: "123456785"})
	assert.ErrorIs(t, err, domain.ErrDuplicate, "mismo RUT con otro formato es duplicado")
}

func TestCompanyUseCase_CreateInvalida(t *testing.T) {
	uc := NewCompanyUseCase(newMemCompanies())
	ctx := context.Background()

	_, err := uc.Create(ctx, dto.CreateCompanyRequest{Name: "X", RUT: "12.345.678-9"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.Create(ctx, dto.CreateCompanyRequest{RUT: "12.345.678-5"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.Create(ctx, dto.CreateCompanyRequest{Name: "X", RUT: "12.345.678-5", ResolutionDate: "22/08/2014"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCompanyUseCase_GetByIDInexistente(t *testing.T) {
	out, err := NewCompanyUseCase(newMemCompanies()).GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, out)
}
