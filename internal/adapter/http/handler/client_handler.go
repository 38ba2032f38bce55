package handler

import (
	"salesguard/internal/adapter/http/dto"
	"salesguard/internal/core/ports"
	"salesguard/pkg/response"

	"github.com/gin-gonic/gin"
)

// ClientHandler manages customer records.
type ClientHandler struct {
	clientSvc ports.ClientService
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(clientSvc ports.ClientService) *ClientHandler {
	return &ClientHandler{clientSvc: clientSvc}
}

// List handles GET /api/v1/clients.
func (h *ClientHandler) List(c *gin.Context) {
	clients, err := h.clientSvc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, clients)
}

// Create handles POST /api/v1/clients.
func (h *ClientHandler) Create(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req dto.CreateClientRequest
	if !bindJSON(c, &req) {
		return
	}

	client, err := h.clientSvc.Create(c.Request.Context(), actor, ports.CreateClientRequest{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, client)
}
