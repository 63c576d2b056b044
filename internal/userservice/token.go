package userservice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sushihentaime/bloglist/internal/common"
)

const bearerScheme = "bearer "

var ErrEmptySecret = errors.New("token secret must not be empty")

type tokenClaims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies the bearer tokens handed out at login.
// Verification is stateless: everything it needs is the secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}

	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

func (s *TokenService) Issue(u *User) (string, error) {
	now := time.Now()

	claims := tokenClaims{
		ID:       u.ID.String(),
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("could not sign token: %w", err)
	}

	return signed, nil
}

// Verify takes the raw Authorization header value.
func (s *TokenService) Verify(header string) (*Principal, error) {
	if len(header) < len(bearerScheme) || !strings.EqualFold(header[:len(bearerScheme)], bearerScheme) {
		return nil, common.AuthError{Reason: common.AuthMissing}
	}

	raw := strings.TrimSpace(header[len(bearerScheme):])
	if raw == "" {
		return nil, common.AuthError{Reason: common.AuthMissing}
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, common.AuthError{Reason: common.AuthInvalid}
	}

	id, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, common.AuthError{Reason: common.AuthInvalid}
	}

	return &Principal{UserID: id, Username: claims.Username}, nil
}
