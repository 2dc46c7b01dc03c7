// Package auth issues and validates the gateway's bearer tokens.
// Principals authenticate with their API key; a short-lived HMAC-signed
// token can be exchanged for it to avoid resending the key on every
// request.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/upb/command-gateway/models"
	"github.com/upb/command-gateway/services"
)

// Claims carries the principal identity inside a gateway token
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

// TokenService issues and validates HS256 tokens
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewTokenService creates a token service. ttl bounds token lifetime.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "command-gateway",
	}
}

// Issue creates a signed token for the principal
func (s *TokenService) Issue(principal *models.Principal) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.ID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Username: principal.Username,
		Role:     string(principal.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, services.WrapInternal("failed to sign token", err)
	}

	return signed, expiresAt, nil
}

// Validate parses a token and returns its claims. Expired, malformed,
// or wrongly-signed tokens all map to ErrInvalidToken.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, services.ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, services.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, services.ErrInvalidToken
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, services.ErrInvalidToken
	}

	return claims, nil
}

// ValidatePrincipalID validates a token and returns the principal ID it
// was issued to
func (s *TokenService) ValidatePrincipalID(tokenString string) (uuid.UUID, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.PrincipalID(), nil
}

// PrincipalID returns the subject as a UUID. Validate guarantees it parses.
func (c *Claims) PrincipalID() uuid.UUID {
	id, _ := uuid.Parse(c.Subject)
	return id
}
