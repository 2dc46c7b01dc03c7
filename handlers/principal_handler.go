package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/upb/command-gateway/middleware"
	"github.com/upb/command-gateway/models"
	"github.com/upb/command-gateway/services/ledger"
	"github.com/upb/command-gateway/services/principals"
	"github.com/upb/command-gateway/utils"
	"go.uber.org/zap"
)

// RegisterPrincipalRequest represents a request to register a principal
type RegisterPrincipalRequest struct {
	Username string               `json:"username" validate:"required,min=3,max=64"`
	Role     models.PrincipalRole `json:"role" validate:"required,oneof=admin member"`
}

// AdjustCreditsRequest represents an administrative balance adjustment
type AdjustCreditsRequest struct {
	Delta         int  `json:"delta" validate:"required"`
	AllowNegative bool `json:"allow_negative"`
}

// PrincipalResponse represents a principal in API responses.
// The API key hash never leaves the server.
type PrincipalResponse struct {
	ID        uuid.UUID            `json:"id"`
	Username  string               `json:"username"`
	Role      models.PrincipalRole `json:"role"`
	Credits   int                  `json:"credits"`
	CreatedAt string               `json:"created_at"`
}

// RegisterPrincipalResponse includes the raw API key, returned exactly once
type RegisterPrincipalResponse struct {
	PrincipalResponse
	APIKey string `json:"api_key"`
}

// BalanceResponse represents the outcome of a credit adjustment
type BalanceResponse struct {
	PrincipalID uuid.UUID `json:"principal_id"`
	Credits     int       `json:"credits"`
}

// PrincipalHandler handles principal management HTTP requests
type PrincipalHandler struct {
	principals *principals.Service
	ledger     *ledger.Service
	logger     *zap.Logger
}

// NewPrincipalHandler creates a new PrincipalHandler
func NewPrincipalHandler(principalsSvc *principals.Service, ledgerSvc *ledger.Service, logger *zap.Logger) *PrincipalHandler {
	return &PrincipalHandler{
		principals: principalsSvc,
		ledger:     ledgerSvc,
		logger:     logger,
	}
}

// HandleRegister handles POST /api/v1/principals
func (h *PrincipalHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chimiddleware.GetReqID(ctx)

	actor := middleware.GetPrincipalFromContext(ctx)
	if actor == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req RegisterPrincipalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	result, err := h.principals.Register(ctx, actor, req.Username, req.Role)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("principal registered",
		zap.String("request_id", requestID),
		zap.String("principal_id", result.Principal.ID.String()),
		zap.String("username", result.Principal.Username))

	_ = utils.WriteCreated(w, RegisterPrincipalResponse{
		PrincipalResponse: principalToResponse(result.Principal),
		APIKey:            result.APIKey,
	})
}

// HandleList handles GET /api/v1/principals
func (h *PrincipalHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.principals.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	responses := make([]PrincipalResponse, len(list))
	for i, p := range list {
		responses[i] = principalToResponse(p)
	}

	_ = utils.WriteOK(w, responses)
}

// HandleGet handles GET /api/v1/principals/{id}
func (h *PrincipalHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid principal ID format", nil)
		return
	}

	p, err := h.principals.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, principalToResponse(p))
}

// HandleMe handles GET /api/v1/principals/me
func (h *PrincipalHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	_ = utils.WriteOK(w, principalToResponse(principal))
}

// HandleMyStats handles GET /api/v1/principals/me/stats
func (h *PrincipalHandler) HandleMyStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal := middleware.GetPrincipalFromContext(ctx)
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	stats, err := h.principals.StatsFor(ctx, principal.ID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, stats)
}

// HandleStats handles GET /api/v1/principals/{id}/stats
func (h *PrincipalHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid principal ID format", nil)
		return
	}

	stats, err := h.principals.StatsFor(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, stats)
}

// HandleAdjustCredits handles PATCH /api/v1/principals/{id}/credits
func (h *PrincipalHandler) HandleAdjustCredits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chimiddleware.GetReqID(ctx)

	actor := middleware.GetPrincipalFromContext(ctx)
	if actor == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid principal ID format", nil)
		return
	}

	var req AdjustCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	balance, err := h.ledger.Adjust(ctx, actor, id, req.Delta, req.AllowNegative)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("credits adjusted",
		zap.String("request_id", requestID),
		zap.String("principal_id", id.String()),
		zap.Int("delta", req.Delta),
		zap.Int("new_balance", balance))

	_ = utils.WriteOK(w, BalanceResponse{PrincipalID: id, Credits: balance})
}

// principalToResponse converts a principal model to its API representation
func principalToResponse(p *models.Principal) PrincipalResponse {
	return PrincipalResponse{
		ID:        p.ID,
		Username:  p.Username,
		Role:      p.Role,
		Credits:   p.Credits,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
}
