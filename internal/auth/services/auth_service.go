package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"loot-tracker/internal/auth/dto"
	"loot-tracker/internal/auth/models"
	userModels "loot-tracker/internal/users/models"
	"loot-tracker/pkg/apperrors"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the slice of the users repository that authentication needs
type UserStore interface {
	Create(ctx context.Context, user *userModels.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*userModels.User, error)
	GetByUsername(ctx context.Context, username string) (*userModels.User, error)
	Count(ctx context.Context) (int64, error)
	TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// AuthService handles registration, login and token validation
type AuthService struct {
	users      UserStore
	tokens     *TokenService
	policy     *Policy
	validate   *validator.Validate
	bcryptCost int
	now        func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, tokens *TokenService, policy *Policy) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		policy:     policy,
		validate:   validator.New(),
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// Policy returns the role to capability policy
func (s *AuthService) Policy() *Policy {
	return s.policy
}

// Register creates an account and returns a session. The first account becomes admin.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*models.Session, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.CharacterName = strings.TrimSpace(req.CharacterName)
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.FromValidator(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}

	role := models.RoleUser
	if count == 0 {
		role = models.RoleAdmin
	}

	now := s.now()
	user := &userModels.User{
		Username:      req.Username,
		PasswordHash:  string(hash),
		CharacterName: req.CharacterName,
		Role:          role,
		LastLogin:     &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("User registered", "user_id", user.ID.Hex(), "username", user.Username, "role", role)
	return s.issue(user)
}

// Login verifies credentials and returns a session
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*models.Session, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.FromValidator(err)
	}

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthenticated("invalid username or password")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.Unauthenticated("invalid username or password")
	}

	if user.Disabled {
		return nil, apperrors.Forbidden("account is disabled")
	}

	now := s.now()
	if err := s.users.TouchLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now

	return s.issue(user)
}

// ValidateJWT verifies the token and reloads the account so role changes and disabling
// take effect before the token expires.
func (s *AuthService) ValidateJWT(ctx context.Context, token string) (*models.AuthenticatedUser, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperrors.Unauthenticated("invalid token")
	}

	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthenticated("invalid token subject")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthenticated("account no longer exists")
		}
		return nil, err
	}
	if user.Disabled {
		return nil, apperrors.Forbidden("account is disabled")
	}

	return toAuthenticated(user), nil
}

// Me describes the caller and the capabilities of their role
func (s *AuthService) Me(user *models.AuthenticatedUser) dto.MeResponse {
	return dto.MeResponse{
		User:         *user,
		Capabilities: s.policy.Capabilities(user.Role),
	}
}

func (s *AuthService) issue(user *userModels.User) (*models.Session, error) {
	identity := toAuthenticated(user)
	token, expiresAt, err := s.tokens.Generate(*identity)
	if err != nil {
		return nil, err
	}
	return &models.Session{Token: token, ExpiresAt: expiresAt, User: *identity}, nil
}

func toAuthenticated(user *userModels.User) *models.AuthenticatedUser {
	return &models.AuthenticatedUser{
		UserID:        user.ID.Hex(),
		Username:      user.Username,
		CharacterName: user.CharacterName,
		Role:          user.Role,
	}
}
