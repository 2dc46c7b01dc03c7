package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/upb/command-gateway/models"
	"github.com/upb/command-gateway/utils"
	"go.uber.org/zap"
)

// TokenValidator validates a bearer token and returns the principal ID
// it was issued to
type TokenValidator interface {
	ValidatePrincipalID(token string) (uuid.UUID, error)
}

// PrincipalLookup resolves principals during authentication
type PrincipalLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Principal, error)
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*models.Principal, error)
}

// AuthMiddleware authenticates requests with either an X-API-Key header
// or a Bearer token previously obtained from the token endpoint.
type AuthMiddleware struct {
	validator  TokenValidator
	principals PrincipalLookup
	logger     *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator TokenValidator, principals PrincipalLookup, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator:  validator,
		principals: principals,
		logger:     logger,
	}
}

// apiKeyHeader carries the raw API key; only its hash ever touches storage
const apiKeyHeader = "X-API-Key"

var errMissingCredentials = errors.New("missing credentials")

// RequireAuth resolves the caller to a principal and stores it in the
// request context. The API key header takes precedence over a bearer
// token when both are present.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := chimiddleware.GetReqID(ctx)

		principal, err := m.authenticate(r)
		if err != nil {
			m.logger.Warn("authentication failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Missing or invalid credentials")
			return
		}

		ctx = WithPrincipal(ctx, principal)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("principal_id", principal.ID.String()),
			zap.String("username", principal.Username))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects non-admin principals. Must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		principal := GetPrincipalFromContext(ctx)
		if principal == nil {
			m.logger.Error("principal not found in context",
				zap.String("request_id", chimiddleware.GetReqID(ctx)))
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		if !principal.IsAdmin() {
			m.logger.Warn("admin access denied",
				zap.String("request_id", chimiddleware.GetReqID(ctx)),
				zap.String("principal_id", principal.ID.String()))
			_ = utils.WriteForbidden(w, "Admin privileges required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the request credentials to a principal
func (m *AuthMiddleware) authenticate(r *http.Request) (*models.Principal, error) {
	ctx := r.Context()

	if apiKey := r.Header.Get(apiKeyHeader); apiKey != "" {
		return m.principals.GetByAPIKeyHash(ctx, utils.HashAPIKey(apiKey))
	}

	token := extractBearerToken(r)
	if token == "" {
		return nil, errMissingCredentials
	}

	principalID, err := m.validator.ValidatePrincipalID(token)
	if err != nil {
		return nil, err
	}

	return m.principals.GetByID(ctx, principalID)
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
