package handlers

import (
	"github.com/gin-gonic/gin"

	"ledgerpulse/internal/domain/ledger"
	"ledgerpulse/internal/domain/settlement"
	"ledgerpulse/internal/infrastructure/http/v1/dto"
)

// EntriesHandler handles ledger entry endpoints, including the
// settlement operations on individual entries.
type EntriesHandler struct {
	*BaseHandler
	entries     *ledger.Service
	settlements *settlement.Service
}

// NewEntriesHandler creates a new entries handler.
func NewEntriesHandler(base *BaseHandler, entries *ledger.Service, settlements *settlement.Service) *EntriesHandler {
	return &EntriesHandler{
		BaseHandler: base,
		entries:     entries,
		settlements: settlements,
	}
}

// Create handles POST /entries
func (h *EntriesHandler) Create(c *gin.Context) {
	ownerID, ok := h.OwnerID(c)
	if !ok {
		return
	}

	var req dto.CreateEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entry, err := req.ToEntry(ownerID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.entries.Create(c.Request.Context(), entry); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromEntry(entry))
}

// Get handles GET /entries/:id
func (h *EntriesHandler) Get(c *gin.Context) {
	ownerID, ok := h.OwnerID(c)
	if !ok {
		return
	}
	entryID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	entry, err := h.entries.GetByID(c.Request.Context(), ownerID, entryID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromEntry(entry))
}

// List handles GET /entries
func (h *EntriesHandler) List(c *gin.Context) {
	ownerID, ok := h.OwnerID(c)
	if !ok {
		return
	}

	var req dto.ListEntriesRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	entries, err := h.entries.List(c.Request.Context(), ownerID, filter, req.Filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:  dto.FromEntries(entries),
		Count:  len(entries),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// Settle handles POST /entries/:id/settle
func (h *EntriesHandler) Settle(c *gin.Context) {
	entryID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.SettleEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	settleReq, err := req.ToSettleRequest(entryID)
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.settlements.Settle(c.Request.Context(), settleReq)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSettlementResult(result))
}

// Reverse handles POST /entries/:id/reverse
func (h *EntriesHandler) Reverse(c *gin.Context) {
	entryID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	entry, err := h.settlements.ReverseSettlement(c.Request.Context(), entryID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromEntry(entry))
}

// RegisterRoutes registers entry routes.
func (h *EntriesHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/settle", h.Settle)
	rg.POST("/:id/reverse", h.Reverse)
}
