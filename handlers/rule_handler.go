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
	"github.com/upb/command-gateway/services/rules"
	"github.com/upb/command-gateway/utils"
	"go.uber.org/zap"
)

// CreateRuleRequest represents a request to create a rule
type CreateRuleRequest struct {
	Pattern     string            `json:"pattern" validate:"required,min=1,max=1024"`
	Action      models.RuleAction `json:"action" validate:"required,oneof=AUTO_ACCEPT AUTO_REJECT REQUIRE_APPROVAL"`
	Description string            `json:"description" validate:"max=1024"`
	Priority    int               `json:"priority" validate:"gte=0"`
}

// UpdateRuleRequest represents a partial rule update
type UpdateRuleRequest struct {
	Pattern     *string            `json:"pattern,omitempty" validate:"omitempty,min=1,max=1024"`
	Action      *models.RuleAction `json:"action,omitempty" validate:"omitempty,oneof=AUTO_ACCEPT AUTO_REJECT REQUIRE_APPROVAL"`
	Description *string            `json:"description,omitempty" validate:"omitempty,max=1024"`
	Priority    *int               `json:"priority,omitempty" validate:"omitempty,gte=0"`
}

// RuleResponse represents a rule in API responses
type RuleResponse struct {
	ID          uuid.UUID         `json:"id"`
	Pattern     string            `json:"pattern"`
	Action      models.RuleAction `json:"action"`
	Description string            `json:"description"`
	Priority    int               `json:"priority"`
	CreatedBy   uuid.UUID         `json:"created_by"`
	CreatedAt   string            `json:"created_at"`
}

// RuleHandler handles rule management HTTP requests
type RuleHandler struct {
	rules  *rules.Service
	logger *zap.Logger
}

// NewRuleHandler creates a new RuleHandler
func NewRuleHandler(rulesSvc *rules.Service, logger *zap.Logger) *RuleHandler {
	return &RuleHandler{
		rules:  rulesSvc,
		logger: logger,
	}
}

// HandleList handles GET /api/v1/rules
// Rules are returned in evaluation order.
func (h *RuleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.rules.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	responses := make([]RuleResponse, len(list))
	for i, rule := range list {
		responses[i] = ruleToResponse(rule)
	}

	_ = utils.WriteOK(w, responses)
}

// HandleGet handles GET /api/v1/rules/{id}
func (h *RuleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid rule ID format", nil)
		return
	}

	rule, err := h.rules.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, ruleToResponse(rule))
}

// HandleCreate handles POST /api/v1/rules
func (h *RuleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chimiddleware.GetReqID(ctx)

	principal := middleware.GetPrincipalFromContext(ctx)
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req CreateRuleRequest
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

	rule, err := h.rules.Create(ctx, principal, rules.CreateInput{
		Pattern:     req.Pattern,
		Action:      req.Action,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("rule created",
		zap.String("request_id", requestID),
		zap.String("rule_id", rule.ID.String()),
		zap.String("action", string(rule.Action)))

	_ = utils.WriteCreated(w, ruleToResponse(rule))
}

// HandleUpdate handles PUT /api/v1/rules/{id}
func (h *RuleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chimiddleware.GetReqID(ctx)

	principal := middleware.GetPrincipalFromContext(ctx)
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid rule ID format", nil)
		return
	}

	var req UpdateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	rule, err := h.rules.Update(ctx, principal, id, rules.UpdateInput{
		Pattern:     req.Pattern,
		Action:      req.Action,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("rule updated",
		zap.String("request_id", requestID),
		zap.String("rule_id", rule.ID.String()))

	_ = utils.WriteOK(w, ruleToResponse(rule))
}

// HandleDelete handles DELETE /api/v1/rules/{id}
func (h *RuleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal := middleware.GetPrincipalFromContext(ctx)
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid rule ID format", nil)
		return
	}

	if err := h.rules.Delete(ctx, principal, id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("rule deleted",
		zap.String("request_id", chimiddleware.GetReqID(ctx)),
		zap.String("rule_id", id.String()))

	utils.WriteNoContent(w)
}

// ruleToResponse converts a rule model to its API representation
func ruleToResponse(rule *models.Rule) RuleResponse {
	return RuleResponse{
		ID:          rule.ID,
		Pattern:     rule.Pattern,
		Action:      rule.Action,
		Description: rule.Description,
		Priority:    rule.Priority,
		CreatedBy:   rule.CreatedBy,
		CreatedAt:   rule.CreatedAt.UTC().Format(time.RFC3339),
	}
}
