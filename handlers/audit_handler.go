package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/upb/command-gateway/models"
	"github.com/upb/command-gateway/services/audit"
	"github.com/upb/command-gateway/utils"
	"go.uber.org/zap"
)

// AuditLogResponse represents an audit entry in API responses
type AuditLogResponse struct {
	ID          uuid.UUID       `json:"id"`
	PrincipalID uuid.UUID       `json:"principal_id"`
	Action      string          `json:"action"`
	Details     json.RawMessage `json:"details,omitempty"`
	Timestamp   string          `json:"timestamp"`
}

// AuditHandler handles audit trail HTTP requests
type AuditHandler struct {
	audit  *audit.Service
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditSvc *audit.Service, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  auditSvc,
		logger: logger,
	}
}

// HandleList handles GET /api/v1/audit
// Optional query parameters: principal_id, from, to (RFC3339), limit.
func (h *AuditHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := audit.QueryFilter{
		Limit: parseLimit(r, audit.DefaultQueryLimit),
	}

	if raw := r.URL.Query().Get("principal_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid principal_id format", nil)
			return
		}
		filter.PrincipalID = id
	}

	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid from timestamp, expected RFC3339", nil)
			return
		}
		filter.From = from
	}

	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid to timestamp, expected RFC3339", nil)
			return
		}
		filter.To = to
	}

	logs, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	responses := make([]AuditLogResponse, len(logs))
	for i, entry := range logs {
		responses[i] = auditLogToResponse(entry)
	}

	_ = utils.WriteOK(w, responses)
}

// auditLogToResponse converts an audit entry to its API representation
func auditLogToResponse(entry *models.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:          entry.ID,
		PrincipalID: entry.PrincipalID,
		Action:      string(entry.Action),
		Details:     entry.Details,
		Timestamp:   entry.Timestamp.UTC().Format(time.RFC3339),
	}
}
