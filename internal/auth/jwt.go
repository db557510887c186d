package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/pkg/errors"
)

// Claims are the registered claims plus the principal's user id.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// Tokens issues and verifies HS256 bearer tokens for principals.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Generate(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.NewValidationError("user id is required", "userID", "")
	}

	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		UserID: userID,
	})
	return token.SignedString(t.secret)
}

// Parse returns the principal of a valid token; anything else is Unauthenticated.
func (t *Tokens) Parse(tokenString string) (domain.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return domain.Principal{}, errors.NewUnauthenticatedError("invalid token").WithCause(err)
	}
	if !token.Valid || strings.TrimSpace(claims.UserID) == "" {
		return domain.Principal{}, errors.NewUnauthenticatedError("invalid token")
	}
	return domain.Principal{UserID: claims.UserID}, nil
}
