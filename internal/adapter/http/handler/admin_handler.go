package handler

import (
	"strconv"
	"strings"
	"time"

	"salesguard/internal/core/domain"
	"salesguard/internal/core/ports"
	"salesguard/pkg/apperror"
	"salesguard/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler serves the review queue, price statistics, the audit log
// and reports. All routes require the admin role.
type AdminHandler struct {
	suspicious ports.SuspiciousActivityService
	prices     ports.PriceStatsService
	audit      ports.AuditLedger
	reports    ports.ReportingService
	loc        *time.Location
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	suspicious ports.SuspiciousActivityService,
	prices ports.PriceStatsService,
	audit ports.AuditLedger,
	reports ports.ReportingService,
	loc *time.Location,
) *AdminHandler {
	return &AdminHandler{suspicious: suspicious, prices: prices, audit: audit, reports: reports, loc: loc}
}

// ListSuspicious handles GET /api/v1/admin/suspicious?reviewed=true|false.
// Without the parameter every finding is returned.
func (h *AdminHandler) ListSuspicious(c *gin.Context) {
	var filter domain.SuspiciousActivityFilter
	if raw := c.Query("reviewed"); raw != "" {
		reviewed, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, apperror.Validation("reviewed must be true or false"))
			return
		}
		filter.Reviewed = &reviewed
	}
	limit, err := limitQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.Limit = limit

	views, err := h.suspicious.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, views)
}

// Review handles PATCH /api/v1/admin/suspicious/:id/review.
func (h *AdminHandler) Review(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "suspicious activity")
	if !ok {
		return
	}

	activity, err := h.suspicious.MarkReviewed(c.Request.Context(), id, actor.WorkerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, activity)
}

// ListPriceHistory handles GET /api/v1/admin/price-history.
func (h *AdminHandler) ListPriceHistory(c *gin.Context) {
	list, err := h.prices.ListPriceHistory(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, list)
}

// GetPriceHistory handles GET /api/v1/admin/price-history/:product.
func (h *AdminHandler) GetPriceHistory(c *gin.Context) {
	product := strings.TrimSpace(c.Param("product"))
	if product == "" {
		response.Error(c, apperror.Validation("product is required"))
		return
	}

	history, err := h.prices.GetPriceHistory(c.Request.Context(), product)
	if err != nil {
		response.Error(c, err)
		return
	}
	if history == nil {
		response.Error(c, apperror.ErrNotFound("Price history"))
		return
	}
	response.OK(c, history)
}

// ListAudit handles GET /api/v1/admin/audit.
func (h *AdminHandler) ListAudit(c *gin.Context) {
	start, end, err := dateRange(c, h.loc)
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, err := limitQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := domain.AuditFilter{StartDate: start, EndDate: end, Limit: limit}

	if raw := c.Query("worker_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, apperror.ErrInvalidID("worker"))
			return
		}
		filter.WorkerID = &id
	}
	if raw := c.Query("action_type"); raw != "" {
		action := domain.AuditAction(strings.ToUpper(raw))
		if !action.IsValid() {
			response.Error(c, apperror.Validation("unknown action_type"))
			return
		}
		filter.Action = action
	}

	logs, err := h.audit.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, logs)
}

// Reports handles GET /api/v1/admin/reports?type=summary|daily.
func (h *AdminHandler) Reports(c *gin.Context) {
	start, end, err := dateRange(c, h.loc)
	if err != nil {
		response.Error(c, err)
		return
	}
	r := domain.ReportRange{Start: start, End: end}

	switch c.DefaultQuery("type", "summary") {
	case "summary":
		report, err := h.reports.Summary(c.Request.Context(), r)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, report)
	case "daily":
		days, err := h.reports.Daily(c.Request.Context(), r)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.List(c, days)
	default:
		response.Error(c, apperror.Validation("type must be summary or daily"))
	}
}
