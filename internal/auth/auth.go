package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"taskflow/internal/apperrors"
	"taskflow/internal/config"
	"taskflow/internal/models"
)

// Claims is the JWT payload: the user id travels in Subject.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateToken issues a signed JWT for the user.
func GenerateToken(userID, email string) (string, error) {
	cfg := config.Get()
	if cfg.JWTSecret == "" {
		return "", errors.New("auth: JWT_SECRET is not set")
	}
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.JWTExpiryHours) * time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}

// ParseToken verifies the signature and expiry and returns the claims.
func ParseToken(tokenStr string) (*Claims, error) {
	secret := config.Get().JWTSecret
	if secret == "" {
		return nil, errors.New("auth: JWT_SECRET is not set")
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token")
	}
	return claims, nil
}

// UserFinder looks up a live user record by id.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Resolver maps a bearer token to a live user identity. The user lookup
// covers revocation-by-deletion: a valid token for a removed user fails.
type Resolver struct {
	users UserFinder
}

// NewResolver returns a token resolver backed by the given user store.
func NewResolver(users UserFinder) *Resolver {
	return &Resolver{users: users}
}

// Resolve verifies the token and returns the live user it names. Any
// failure (absent, malformed, expired, unknown user) is Unauthorized.
func (r *Resolver) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("No token provided")
	}
	claims, err := ParseToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid token")
	}
	user, err := r.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.Unauthorized("User not found")
	}
	return user, nil
}
