package services

import (
	"errors"
	"fmt"
	"time"

	"loot-tracker/internal/auth/models"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "loot-tracker"

// TokenService issues and verifies HS256 session tokens
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret []byte, ttl time.Duration) *TokenService {
	return &TokenService{secret: secret, ttl: ttl, now: time.Now}
}

// Generate creates a JWT token for the authenticated user
func (s *TokenService) Generate(user models.AuthenticatedUser) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)

	claims := jwt.MapClaims{
		"user_id":        user.UserID,
		"username":       user.Username,
		"character_name": user.CharacterName,
		"role":           string(user.Role),
		"exp":            expiresAt.Unix(),
		"iat":            issuedAt.Unix(),
		"iss":            tokenIssuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign JWT: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Parse validates a JWT token and returns the identity it carries
func (s *TokenService) Parse(tokenString string) (*models.AuthenticatedUser, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("invalid JWT token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid JWT claims")
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, errors.New("JWT has no user_id claim")
	}
	username, _ := claims["username"].(string)
	characterName, _ := claims["character_name"].(string)
	role, _ := claims["role"].(string)

	return &models.AuthenticatedUser{
		UserID:        userID,
		Username:      username,
		CharacterName: characterName,
		Role:          models.Role(role),
	}, nil
}
