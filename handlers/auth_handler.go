package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/command-gateway/auth"
	"github.com/upb/command-gateway/models"
	"github.com/upb/command-gateway/utils"
	"go.uber.org/zap"
)

// TokenRequest represents an API key to token exchange
type TokenRequest struct {
	APIKey string `json:"api_key" validate:"required,len=64,hexadecimal"`
}

// TokenResponse represents an issued bearer token
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
}

// PrincipalResolver resolves API key hashes to principals
type PrincipalResolver interface {
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*models.Principal, error)
}

// AuthHandler exchanges API keys for bearer tokens
type AuthHandler struct {
	tokens     *auth.TokenService
	principals PrincipalResolver
	logger     *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(tokens *auth.TokenService, principals PrincipalResolver, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		tokens:     tokens,
		principals: principals,
		logger:     logger,
	}
}

// HandleToken handles POST /auth/token
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chimiddleware.GetReqID(ctx)

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		// Do not distinguish malformed keys from unknown keys
		h.logger.Warn("token exchange with malformed API key",
			zap.String("request_id", requestID))
		_ = utils.WriteUnauthorized(w, "Invalid API key")
		return
	}

	principal, err := h.principals.GetByAPIKeyHash(ctx, utils.HashAPIKey(req.APIKey))
	if err != nil {
		h.logger.Warn("token exchange with unknown API key",
			zap.String("request_id", requestID))
		_ = utils.WriteUnauthorized(w, "Invalid API key")
		return
	}

	token, expiresAt, err := h.tokens.Issue(principal)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("token issued",
		zap.String("request_id", requestID),
		zap.String("principal_id", principal.ID.String()))

	_ = utils.WriteOK(w, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	})
}
