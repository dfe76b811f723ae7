package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"pimonitor/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL = time.Hour
	tokenIssuer     = "pimonitor"
	ephemeralKeyLen = 32
)

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrEmptyPassword   = errors.New("password is empty")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidToken    = errors.New("invalid token")
	ErrEmptyUsername   = errors.New("username is empty")
)

// AuthService registers operators and issues the bearer tokens that guard the
// mutating API.
type AuthService struct {
	operators  repository.Authorization
	signingKey []byte
	tokenTTL   time.Duration
	parser     *jwt.Parser
}

// NewAuthService builds the service. An empty signingKey is replaced by a
// random per-process key, so tokens do not survive a restart.
func NewAuthService(repo repository.Authorization, signingKey string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	key := []byte(signingKey)
	if len(key) == 0 {
		key = make([]byte, ephemeralKeyLen)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("auth: generate signing key: %v", err))
		}
	}
	return &AuthService{
		operators:  repo,
		signingKey: key,
		tokenTTL:   ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
			jwt.WithExpirationRequired(),
		),
	}
}

func (s *AuthService) SignUp(ctx context.Context, username, password string) (int, error) {
	if s.operators == nil {
		return 0, ErrPersistenceDisabled
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, ErrEmptyUsername
	}
	if strings.TrimSpace(password) == "" {
		return 0, ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	return s.operators.Create(ctx, username, string(hash))
}

// Claims are the JWT claims of an operator token.
type Claims struct {
	jwt.RegisteredClaims
	UserID int `json:"user_id"`
}

// GenerateToken checks the credentials and returns a signed token.
func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (string, error) {
	if s.operators == nil {
		return "", ErrPersistenceDisabled
	}
	u, err := s.operators.GetByUsername(ctx, strings.TrimSpace(username))
	switch {
	case err != nil:
		return "", err
	case u == nil:
		return "", ErrUserNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidPassword
	}
	return s.issueToken(u.ID, time.Now())
}

// ParseToken returns the operator id of a valid, unexpired token.
func (s *AuthService) ParseToken(accessToken string) (int, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(accessToken, claims, func(*jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims.UserID, nil
}

func (s *AuthService) issueToken(userID int, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID,
	})
	return token.SignedString(s.signingKey)
}
