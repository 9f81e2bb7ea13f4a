package handlers

import (
	"github.com/gin-gonic/gin"

	"ledgerpulse/internal/domain/reports"
	"ledgerpulse/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles HTTP requests for the two read views.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetCashflow handles GET /reports/cashflow
func (h *ReportsHandler) GetCashflow(c *gin.Context) {
	ownerID, ok := h.OwnerID(c)
	if !ok {
		return
	}

	var req dto.ReportRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	report, err := h.service.GetCashflow(c.Request.Context(), ownerID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}

// GetProfit handles GET /reports/profit
func (h *ReportsHandler) GetProfit(c *gin.Context) {
	ownerID, ok := h.OwnerID(c)
	if !ok {
		return
	}

	var req dto.ReportRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	report, err := h.service.GetProfit(c.Request.Context(), ownerID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}

// RegisterRoutes registers report routes.
func (h *ReportsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/cashflow", h.GetCashflow)
	rg.GET("/profit", h.GetProfit)
}
