package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/upb/command-gateway/middleware"
	"github.com/upb/command-gateway/models"
	"github.com/upb/command-gateway/services/settlement"
	"github.com/upb/command-gateway/utils"
	"go.uber.org/zap"
)

// SubmitCommandRequest represents a command submission
type SubmitCommandRequest struct {
	CommandText string `json:"command_text" validate:"required,min=1,max=4096"`
}

// CommandResponse represents a command record in API responses
type CommandResponse struct {
	ID              uuid.UUID  `json:"id"`
	PrincipalID     uuid.UUID  `json:"principal_id"`
	CommandText     string     `json:"command_text"`
	Status          string     `json:"status"`
	Result          string     `json:"result"`
	RuleID          *uuid.UUID `json:"rule_id,omitempty"`
	CreditsDeducted int        `json:"credits_deducted"`
	SubmittedAt     string     `json:"submitted_at"`
	ExecutedAt      *string    `json:"executed_at,omitempty"`
}

// CommandHandler handles command submission and retrieval
type CommandHandler struct {
	settlement *settlement.Service
	logger     *zap.Logger
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(settlementSvc *settlement.Service, logger *zap.Logger) *CommandHandler {
	return &CommandHandler{
		settlement: settlementSvc,
		logger:     logger,
	}
}

// HandleSubmit handles POST /api/v1/commands
func (h *CommandHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chimiddleware.GetReqID(ctx)

	principal := middleware.GetPrincipalFromContext(ctx)
	if principal == nil {
		h.logger.Error("principal not found in context",
			zap.String("request_id", requestID))
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req SubmitCommandRequest
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

	cmd, err := h.settlement.Submit(ctx, principal, req.CommandText)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("command submitted",
		zap.String("request_id", requestID),
		zap.String("command_id", cmd.ID.String()),
		zap.String("status", string(cmd.Status)))

	_ = utils.WriteCreated(w, commandToResponse(cmd))
}

// HandleList handles GET /api/v1/commands
// Returns the caller's own command history, newest first.
func (h *CommandHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal := middleware.GetPrincipalFromContext(ctx)
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	limit := parseLimit(r, settlement.DefaultHistoryLimit)

	cmds, err := h.settlement.History(ctx, principal.ID, limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	responses := make([]CommandResponse, len(cmds))
	for i, cmd := range cmds {
		responses[i] = commandToResponse(cmd)
	}

	_ = utils.WriteOK(w, responses)
}

// HandleGet handles GET /api/v1/commands/{id}
func (h *CommandHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal := middleware.GetPrincipalFromContext(ctx)
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid command ID format", nil)
		return
	}

	cmd, err := h.settlement.Get(ctx, principal, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, commandToResponse(cmd))
}

// HandlePending handles GET /api/v1/commands/pending
// Admin-only view of commands waiting on approval.
func (h *CommandHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := parseLimit(r, settlement.DefaultHistoryLimit)

	cmds, err := h.settlement.PendingApproval(ctx, limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	responses := make([]CommandResponse, len(cmds))
	for i, cmd := range cmds {
		responses[i] = commandToResponse(cmd)
	}

	_ = utils.WriteOK(w, responses)
}

// commandToResponse converts a command model to its API representation
func commandToResponse(cmd *models.Command) CommandResponse {
	resp := CommandResponse{
		ID:              cmd.ID,
		PrincipalID:     cmd.PrincipalID,
		CommandText:     cmd.CommandText,
		Status:          string(cmd.Status),
		Result:          cmd.Result,
		RuleID:          cmd.RuleID,
		CreditsDeducted: cmd.CreditsDeducted,
		SubmittedAt:     cmd.SubmittedAt.UTC().Format(time.RFC3339),
	}
	if cmd.ExecutedAt != nil {
		executedAt := cmd.ExecutedAt.UTC().Format(time.RFC3339)
		resp.ExecutedAt = &executedAt
	}
	return resp
}

// parseLimit reads an optional positive limit query parameter
func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
