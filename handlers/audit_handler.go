package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/upb/inventory-identity/middleware"
	"github.com/upb/inventory-identity/models"
	"github.com/upb/inventory-identity/utils"
	"go.uber.org/zap"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// AuditLister reads a company's audit trail
type AuditLister interface {
	List(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)
}

// AuditLogPage is one page of audit events
type AuditLogPage struct {
	Logs   []*models.AuditLog `json:"logs"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// AuditHandler serves /api/v1/audit
type AuditHandler struct {
	audit  AuditLister
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(audit AuditLister, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: logger}
}

// HandleList handles GET /api/v1/audit/logs?limit=&offset=
func (h *AuditHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	limit, err := queryInt(r, "limit", defaultAuditLimit)
	if err != nil || limit < 1 || limit > maxAuditLimit {
		_ = utils.WriteBadRequest(w, "limit must be between 1 and 200", nil)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		_ = utils.WriteBadRequest(w, "offset must be a non-negative integer", nil)
		return
	}

	logs, err := h.audit.List(r.Context(), identity.Tenant.CompanyID, limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}

	if err := utils.WriteOK(w, AuditLogPage{Logs: logs, Limit: limit, Offset: offset}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
