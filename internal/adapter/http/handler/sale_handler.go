package handler

import (
	"strings"
	"time"

	"salesguard/internal/adapter/http/dto"
	"salesguard/internal/core/domain"
	"salesguard/internal/core/ports"
	"salesguard/pkg/apperror"
	"salesguard/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderIdempotencyKey makes sale creation safe to retry.
const HeaderIdempotencyKey = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

// SaleHandler handles sale recording endpoints.
type SaleHandler struct {
	saleSvc ports.SaleService
	loc     *time.Location
}

// NewSaleHandler creates a new SaleHandler. loc interprets bare dates in
// list filters.
func NewSaleHandler(saleSvc ports.SaleService, loc *time.Location) *SaleHandler {
	return &SaleHandler{saleSvc: saleSvc, loc: loc}
}

// Create handles POST /api/v1/sales.
func (h *SaleHandler) Create(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req dto.CreateSaleRequest
	if !bindJSON(c, &req) {
		return
	}

	key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
	if len(key) > maxIdempotencyKeyLen {
		response.Error(c, apperror.Validation("Idempotency-Key is too long"))
		return
	}

	sale, err := h.saleSvc.CreateSaleIdempotent(c.Request.Context(), actor, key, req.ToDomain())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sale)
}

// List handles GET /api/v1/sales.
func (h *SaleHandler) List(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

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
	filter := domain.SaleFilter{
		StartDate: start,
		EndDate:   end,
		Product:   strings.TrimSpace(c.Query("product")),
		Limit:     limit,
	}
	if raw := c.Query("worker_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, apperror.ErrInvalidID("worker"))
			return
		}
		filter.WorkerID = &id
	}

	sales, err := h.saleSvc.ListSales(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, sales)
}

// Get handles GET /api/v1/sales/:id.
func (h *SaleHandler) Get(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "sale")
	if !ok {
		return
	}

	sale, err := h.saleSvc.GetSale(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sale)
}

// Update handles PUT /api/v1/sales/:id.
func (h *SaleHandler) Update(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "sale")
	if !ok {
		return
	}
	var req dto.UpdateSaleRequest
	if !bindJSON(c, &req) {
		return
	}

	sale, err := h.saleSvc.UpdateSale(c.Request.Context(), id, actor, req.ToDomain())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sale)
}

// Delete handles DELETE /api/v1/sales/:id.
func (h *SaleHandler) Delete(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "sale")
	if !ok {
		return
	}

	if err := h.saleSvc.DeleteSale(c.Request.Context(), id, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
