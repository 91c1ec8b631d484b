package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/boleta-pos/internal/application/dto"
	"github.com/jhoicas/boleta-pos/internal/domain"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/pkg/jwt"
)

const companyID = "00000000-0000-0000-0000-000000000002"

type memUsers struct{ users []*entity.User }

func (m *memUsers) Create(_ context.Context, u *entity.User) error {
	m.users = append(m.users, u)
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) GetByEmailAndCompany(_ context.Context, email, company string) (*entity.User, error) {
	for _, u := range m.users {
		if u.Email == email && u.CompanyID == company {
			return u, nil
		}
	}
	return nil, nil
}

type memCompanies struct{}

func (memCompanies) Create(context.Context, *entity.Company) error { return nil }

func (memCompanies) GetByID(_ context.Context, id string) (*entity.Company, error) {
	if id != companyID {
		return nil, nil
	}
	return &entity.Company{ID: companyID, RUT: "76000000-0", CreatedAt: time.Now()}, nil
}

func (memCompanies) GetByRUT(context.Context, string) (*entity.Company, error) { return nil, nil }

func newUseCase() (*AuthUseCase, *memUsers) {
	users := &memUsers{}
	return NewAuthUseCase(users, memCompanies{}, JWTConfig{Secret: "secreto", ExpMinutes: 5, Issuer: "boleta-pos"}), users
}

func TestRegisterYLogin(t *testing.T) {
	uc, users := newUseCase()
	ctx := context.Background()

	u, err := uc.RegisterUser(ctx, dto.RegisterRequest{Email: "caja1@comercial.cl", Password: "secreto123", CompanyID: companyID})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleCajero, u.Role, "el rol por defecto es cajero")
	assert.Equal(t, "caja1@comercial.cl", u.Name)
	assert.NotEqual(t, "secreto123", users.users[0].PasswordHash)

	out, err := uc.Login(ctx, dto.LoginRequest{Email: "caja1@comercial.cl", Password: "secreto123"})
	require.NoError(t, err)
	id, err := jwt.Parse("secreto", out.Token)
	require.NoError(t, err)
	assert.Equal(t, jwt.Identity{UserID: u.ID, CompanyID: companyID, Role: entity.RoleCajero}, id)
}

func TestRegister_Rechazos(t *testing.T) {
	uc, _ := newUseCase()
	ctx := context.Background()

	_, err := uc.RegisterUser(ctx, dto.RegisterRequest{Email: "a@b.cl", Password: "secreto123", CompanyID: companyID})
	require.NoError(t, err)

	_, err = uc.RegisterUser(ctx, dto.RegisterRequest{Email: "a@b.cl", Password: "secreto123", CompanyID: companyID})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)

	_, err = uc.RegisterUser(ctx, dto.RegisterRequest{Email: "x@b.cl", Password: "secreto123", CompanyID: "otra"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.RegisterUser(ctx, dto.RegisterRequest{Email: "y@b.cl", Password: "secreto123", CompanyID: companyID, Role: "gerente"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLogin_Rechazos(t *testing.T) {
	uc, users := newUseCase()
	ctx := context.Background()
	_, err := uc.RegisterUser(ctx, dto.RegisterRequest{Email: "a@b.cl", Password: "secreto123", CompanyID: companyID})
	require.NoError(t, err)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "a@b.cl", Password: "incorrecta"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "nadie@b.cl", Password: "secreto123"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	users.users[0].Status = "suspended"
	_, err = uc.Login(ctx, dto.LoginRequest{Email: "a@b.cl", Password: "secreto123"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
