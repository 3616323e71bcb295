// Package auth provides account registration, password login, and bearer
// token verification.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/security"
	"trade-journal/internal/store"
)

// DevSecret signs tokens when no secret is configured.
const DevSecret = "dev-secret-key-change-in-prod"

// Claims is the JWT payload.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Config configures the Service.
type Config struct {
	Secret     string
	TokenTTL   time.Duration // 0 issues tokens without exp
	BcryptCost int
}

// Service registers users and issues and verifies tokens.
type Service struct {
	users     store.UserStore
	validator *security.InputValidator
	secret    []byte
	ttl       time.Duration
	cost      int
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService creates an auth service.
func NewService(users store.UserStore, validator *security.InputValidator, cfg Config, logger zerolog.Logger) *Service {
	logger = logger.With().Str("component", "auth").Logger()

	secret := cfg.Secret
	if secret == "" {
		logger.Warn().Msg("JWT secret not configured, using development default")
		secret = DevSecret
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if validator == nil {
		validator = security.NewInputValidator(false)
	}

	return &Service{
		users:     users,
		validator: validator,
		secret:    []byte(secret),
		ttl:       cfg.TokenTTL,
		cost:      cost,
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	if err := s.validator.ValidateCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Username: username, PasswordHash: string(hash)}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", username).Msg("User registered")
	return user, nil
}

// Login checks a password and returns a signed token.
func (s *Service) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	if err := s.validator.ValidateCredentials(username, password); err != nil {
		return "", nil, err
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, jerrors.ErrNotFound) {
			return "", nil, jerrors.ErrUserNotFound
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, jerrors.ErrInvalidCredentials
	}

	token, err := s.Issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Issue signs a token for user.
func (s *Service) Issue(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user.ID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token. Any malformed, tampered or expired token yields
// errors.ErrForbidden.
func (s *Service) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, jerrors.ErrForbidden
	}
	if claims.Username == "" {
		return nil, jerrors.ErrForbidden
	}
	return claims, nil
}

// Authenticate verifies an Authorization header of the form
// "Bearer <token>". A missing header or empty token yields
// errors.ErrUnauthorized.
func (s *Service) Authenticate(header string) (*Claims, error) {
	token := BearerToken(header)
	if token == "" {
		return nil, jerrors.ErrUnauthorized
	}
	return s.Verify(token)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
