package handlers

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"ledgerpulse/internal/domain/ledger"
	"ledgerpulse/internal/infrastructure/storage/postgres"
)

// AuditHandler exposes the settlement audit trail for an entry.
// Owner access is verified through the entry itself before any history
// is returned.
type AuditHandler struct {
	*BaseHandler
	audit   *postgres.AuditService
	entries *ledger.Service
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, audit *postgres.AuditService, entries *ledger.Service) *AuditHandler {
	return &AuditHandler{BaseHandler: base, audit: audit, entries: entries}
}

// auditRecordResponse is the wire form of one audit record.
type auditRecordResponse struct {
	ID        string          `json:"id"`
	EntryID   string          `json:"entryId"`
	Action    string          `json:"action"`
	UserID    string          `json:"userId,omitempty"`
	Changes   json.RawMessage `json:"changes,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// GetEntryHistory handles GET /entries/:id/history
func (h *AuditHandler) GetEntryHistory(c *gin.Context) {
	ownerID, ok := h.OwnerID(c)
	if !ok {
		return
	}
	entryID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	if _, err := h.entries.GetByID(c.Request.Context(), ownerID, entryID); err != nil {
		h.Error(c, err)
		return
	}

	records, err := h.audit.GetEntryHistory(c.Request.Context(), entryID, 50)
	if err != nil {
		h.Error(c, err)
		return
	}

	out := make([]auditRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, auditRecordResponse{
			ID:        r.ID.String(),
			EntryID:   r.EntryID.String(),
			Action:    r.Action,
			UserID:    r.UserID,
			Changes:   r.Changes,
			CreatedAt: r.CreatedAt,
		})
	}

	h.OK(c, out)
}
