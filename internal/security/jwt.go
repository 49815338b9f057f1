package security

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cargolinq/freight-auth-service/internal/domain"
)

var (
	ErrMissingPayload = errors.New("token payload is required")
	ErrInvalidToken   = errors.New("invalid or expired token")
	ErrMissingBearer  = errors.New("authorization header is not bearer-scheme")
)

type Claims struct {
	TokenType         string `json:"token_type"`
	Username          string `json:"username"`
	Role              string `json:"role,omitempty"`
	MustResetPassword bool   `json:"must_reset_password"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim back into the user id.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// JWTManager signs and verifies access and refresh tokens. The two token
// kinds use independent secrets and lifetimes, and a token_type claim keeps
// them from being interchangeable even if the secrets matched.
type JWTManager struct {
	issuer        string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewJWTManager(issuer, accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		issuer:        issuer,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (m *JWTManager) IssueAccessToken(user *domain.User) (string, error) {
	return m.sign(user, "access", m.accessSecret, m.accessTTL)
}

func (m *JWTManager) IssueRefreshToken(user *domain.User) (string, error) {
	return m.sign(user, "refresh", m.refreshSecret, m.refreshTTL)
}

func (m *JWTManager) sign(user *domain.User, tokenType string, secret []byte, ttl time.Duration) (string, error) {
	if user == nil {
		return "", ErrMissingPayload
	}
	now := time.Now()
	claims := Claims{
		TokenType:         tokenType,
		Username:          user.Username,
		Role:              user.Role,
		MustResetPassword: user.MustResetPassword,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   fmt.Sprintf("%d", user.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (m *JWTManager) ParseAccessToken(raw string) (*Claims, error) {
	return m.parse(raw, m.accessSecret, "access")
}

func (m *JWTManager) ParseRefreshToken(raw string) (*Claims, error) {
	return m.parse(raw, m.refreshSecret, "refresh")
}

// ParseAuthorizationHeader extracts and verifies the access token from a
// bearer-scheme Authorization header value.
func (m *JWTManager) ParseAuthorizationHeader(header string) (*Claims, error) {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return nil, ErrMissingBearer
	}
	return m.ParseAccessToken(strings.TrimSpace(header[7:]))
}

func (m *JWTManager) parse(raw string, secret []byte, tokenType string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return secret, nil
	}, jwt.WithIssuer(m.issuer))
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
