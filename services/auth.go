package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/phonginreallife/contracthub/authz"
)

var ErrInvalidCredentials = errors.New("no active account found with the given credentials")

// AuthService exchanges credentials for tokens
type AuthService struct {
	Users      authz.UserRepository
	JWTService *JWTService
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

func NewAuthService(users authz.UserRepository, jwtService *JWTService) *AuthService {
	return &AuthService{
		Users:      users,
		JWTService: jwtService,
	}
}

// HashPassword creates a bcrypt hash of the password
func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// Login checks the password of an active user and issues a token pair
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	user, err := s.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, authz.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		zerolog.Ctx(ctx).Debug().Str("username", req.Username).Msg("password mismatch")
		return nil, ErrInvalidCredentials
	}

	return s.JWTService.IssuePair(*user)
}

// Refresh issues a new access token while the user is still active
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.JWTService.Validate(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}

	user, err := s.Users.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, authz.ErrUserNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	if !user.IsActive {
		return "", ErrInvalidToken
	}

	return s.JWTService.IssueAccess(claims)
}

// Authenticate validates an access token and returns its claims
func (s *AuthService) Authenticate(accessToken string) (*TokenClaims, error) {
	return s.JWTService.Validate(accessToken, TokenTypeAccess)
}
