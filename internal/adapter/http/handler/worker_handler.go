package handler

import (
	"salesguard/internal/adapter/http/dto"
	"salesguard/internal/core/ports"
	"salesguard/pkg/response"

	"github.com/gin-gonic/gin"
)

// WorkerHandler manages worker accounts (admin only).
type WorkerHandler struct {
	workerSvc ports.WorkerService
}

// NewWorkerHandler creates a new WorkerHandler.
func NewWorkerHandler(workerSvc ports.WorkerService) *WorkerHandler {
	return &WorkerHandler{workerSvc: workerSvc}
}

// List handles GET /api/v1/admin/workers.
func (h *WorkerHandler) List(c *gin.Context) {
	workers, err := h.workerSvc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, workers)
}

// Create handles POST /api/v1/admin/workers.
func (h *WorkerHandler) Create(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req dto.CreateWorkerRequest
	if !bindJSON(c, &req) {
		return
	}

	w, err := h.workerSvc.Create(c.Request.Context(), actor, ports.CreateWorkerRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, w)
}

// Update handles PUT /api/v1/admin/workers/:id.
func (h *WorkerHandler) Update(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "worker")
	if !ok {
		return
	}
	var req dto.UpdateWorkerRequest
	if !bindJSON(c, &req) {
		return
	}

	w, err := h.workerSvc.Update(c.Request.Context(), actor, id, ports.UpdateWorkerRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, w)
}

// Delete handles DELETE /api/v1/admin/workers/:id.
func (h *WorkerHandler) Delete(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "worker")
	if !ok {
		return
	}

	if err := h.workerSvc.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
