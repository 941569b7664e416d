package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phonginreallife/contracthub/authz"
	"github.com/phonginreallife/contracthub/db"
)

// MockUserRepository is a testify mock of authz.UserRepository
type MockUserRepository struct {
	mock.Mock
}

var _ authz.UserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) user(args mock.Arguments) (*db.User, error) {
	if u := args.Get(0); u != nil {
		return u.(*db.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *db.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Get(ctx context.Context, id string) (*db.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*db.User, error) {
	return m.user(m.Called(ctx, username))
}

func (m *MockUserRepository) GetForUpdate(ctx context.Context, id string) (*db.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *MockUserRepository) Update(ctx context.Context, user *db.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserRepository) List(ctx context.Context) ([]db.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]db.User), args.Error(1)
}

func (m *MockUserRepository) ListByOrganizations(ctx context.Context, refs ...db.OrgRef) ([]db.User, error) {
	args := m.Called(ctx, refs)
	return args.Get(0).([]db.User), args.Error(1)
}

func newAuthService(t *testing.T) (*AuthService, *MockUserRepository, *db.User) {
	t.Helper()
	repo := new(MockUserRepository)
	svc := NewAuthService(repo, NewJWTService("test-secret", 5*time.Minute, time.Hour))

	hash, err := svc.HashPassword("correct horse")
	require.NoError(t, err)
	user := &db.User{ID: "u1", Username: "alice", PasswordHash: hash, IsActive: true}
	return svc, repo, user
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		svc, repo, user := newAuthService(t)
		repo.On("GetByUsername", ctx, "alice").Return(user, nil)

		pair, err := svc.Login(ctx, LoginRequest{Username: "alice", Password: "correct horse"})
		require.NoError(t, err)

		claims, err := svc.Authenticate(pair.Access)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.Subject)
		repo.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, repo, user := newAuthService(t)
		repo.On("GetByUsername", ctx, "alice").Return(user, nil)

		_, err := svc.Login(ctx, LoginRequest{Username: "alice", Password: "battery staple"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("inactive user", func(t *testing.T) {
		svc, repo, user := newAuthService(t)
		user.IsActive = false
		repo.On("GetByUsername", ctx, "alice").Return(user, nil)

		_, err := svc.Login(ctx, LoginRequest{Username: "alice", Password: "correct horse"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, repo, _ := newAuthService(t)
		repo.On("GetByUsername", ctx, "ghost").Return(nil, authz.ErrUserNotFound)

		_, err := svc.Login(ctx, LoginRequest{Username: "ghost", Password: "x"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()
	svc, repo, user := newAuthService(t)
	repo.On("GetByUsername", ctx, "alice").Return(user, nil)
	repo.On("Get", ctx, "u1").Return(user, nil).Once()

	pair, err := svc.Login(ctx, LoginRequest{Username: "alice", Password: "correct horse"})
	require.NoError(t, err)

	access, err := svc.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	_, err = svc.Authenticate(access)
	assert.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken, "an access token cannot refresh")

	repo.On("Get", ctx, "u1").Return(nil, authz.ErrUserNotFound)
	_, err = svc.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken, "deleted users cannot refresh")
}
