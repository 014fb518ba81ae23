package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"loot-tracker/internal/auth/dto"
	"loot-tracker/internal/auth/models"
	userModels "loot-tracker/internal/users/models"
	"loot-tracker/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*userModels.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[primitive.ObjectID]*userModels.User)}
}

func (m *memoryUsers) Create(ctx context.Context, user *userModels.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == user.Username || existing.CharacterName == user.CharacterName {
			return apperrors.Conflict("username or character already registered")
		}
	}
	user.ID = primitive.NewObjectID()
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memoryUsers) GetByID(ctx context.Context, id primitive.ObjectID) (*userModels.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, apperrors.NotFound("user not found")
}

func (m *memoryUsers) GetByUsername(ctx context.Context, username string) (*userModels.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("user not found")
}

func (m *memoryUsers) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

func (m *memoryUsers) TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[id]; ok {
		user.LastLogin = &at
	}
	return nil
}

func (m *memoryUsers) disable(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			user.Disabled = true
		}
	}
}

func newTestAuthService(t *testing.T) (*AuthService, *memoryUsers) {
	t.Helper()
	policy, err := NewMemoryPolicy()
	require.NoError(t, err)

	users := newMemoryUsers()
	service := NewAuthService(users, NewTokenService([]byte("test-secret"), time.Hour), policy)
	service.bcryptCost = bcrypt.MinCost
	return service, users
}

func TestRegisterFirstUserIsAdmin(t *testing.T) {
	service, _ := newTestAuthService(t)
	ctx := context.Background()

	first, err := service.Register(ctx, dto.RegisterRequest{Username: "leader", Password: "password1", CharacterName: "Raidlead"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, first.User.Role)
	assert.NotEmpty(t, first.Token)

	second, err := service.Register(ctx, dto.RegisterRequest{Username: "member", Password: "password2", CharacterName: "Dps"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, second.User.Role)
}

func TestRegisterValidation(t *testing.T) {
	service, _ := newTestAuthService(t)

	_, err := service.Register(context.Background(), dto.RegisterRequest{Username: "x", Password: "short", CharacterName: ""})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRegisterDuplicate(t *testing.T) {
	service, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, dto.RegisterRequest{Username: "member", Password: "password1", CharacterName: "Dps"})
	require.NoError(t, err)

	_, err = service.Register(ctx, dto.RegisterRequest{Username: "member", Password: "password1", CharacterName: "Other"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestLogin(t *testing.T) {
	service, users := newTestAuthService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, dto.RegisterRequest{Username: "member", Password: "password1", CharacterName: "Dps"})
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		session, err := service.Login(ctx, dto.LoginRequest{Username: "member", Password: "password1"})
		require.NoError(t, err)

		user, err := service.ValidateJWT(ctx, session.Token)
		require.NoError(t, err)
		assert.Equal(t, "Dps", user.CharacterName)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := service.Login(ctx, dto.LoginRequest{Username: "member", Password: "wrong-password"})
		assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		_, err := service.Login(ctx, dto.LoginRequest{Username: "nobody", Password: "password1"})
		assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	})

	t.Run("Disabled", func(t *testing.T) {
		session, err := service.Login(ctx, dto.LoginRequest{Username: "member", Password: "password1"})
		require.NoError(t, err)

		users.disable("member")

		_, err = service.Login(ctx, dto.LoginRequest{Username: "member", Password: "password1"})
		assert.ErrorIs(t, err, apperrors.ErrForbidden)

		_, err = service.ValidateJWT(ctx, session.Token)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestMeListsCapabilities(t *testing.T) {
	service, _ := newTestAuthService(t)

	me := service.Me(&models.AuthenticatedUser{UserID: "u1", Role: models.RoleUser})
	assert.Contains(t, me.Capabilities, models.CapAuctionsBid)
	assert.NotContains(t, me.Capabilities, models.CapApplicationsResolve)
}
