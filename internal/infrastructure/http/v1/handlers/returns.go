package handlers

import (
	"github.com/gin-gonic/gin"

	"spareflow/internal/domain/returns"
	"spareflow/internal/infrastructure/http/v1/dto"
)

// ReturnHandler serves the return lifecycle.
type ReturnHandler struct {
	*BaseHandler
	service *returns.Service
}

// NewReturnHandler creates a new return handler.
func NewReturnHandler(base *BaseHandler, service *returns.Service) *ReturnHandler {
	return &ReturnHandler{BaseHandler: base, service: service}
}

// Create handles POST /create-return-request.
func (h *ReturnHandler) Create(c *gin.Context) {
	var req dto.CreateReturnRequest
	if !h.BindJSON(c, &req) || !h.Actor(c, &req.CreatedBy) {
		return
	}

	r, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromRequest(r))
}

// Update handles POST /update-return/:id.
func (h *ReturnHandler) Update(c *gin.Context) {
	requestID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.UpdateReturnRequest
	if !h.BindJSON(c, &req) || !h.Actor(c, &req.UpdatedBy) {
		return
	}

	r, err := h.service.Update(c.Request.Context(), requestID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromRequest(r))
}

// Receive handles POST /receive-return/:id.
func (h *ReturnHandler) Receive(c *gin.Context) {
	requestID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.ReceiveReturnRequest
	if !h.BindJSON(c, &req) || !h.Actor(c, &req.ReceivedBy) {
		return
	}

	r, err := h.service.Receive(c.Request.Context(), requestID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromRequest(r))
}

// Verify handles POST /verify-return/:id.
func (h *ReturnHandler) Verify(c *gin.Context) {
	requestID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.VerifyReturnRequest
	if !h.BindJSON(c, &req) || !h.Actor(c, &req.VerifiedBy) {
		return
	}

	res, err := h.service.Verify(c.Request.Context(), requestID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromVerifyResult(res))
}

// Reject handles POST /reject-return/:id.
func (h *ReturnHandler) Reject(c *gin.Context) {
	requestID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.RejectReturnRequest
	if !h.BindJSON(c, &req) || !h.Actor(c, &req.RejectedBy) {
		return
	}

	r, err := h.service.Reject(c.Request.Context(), requestID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromRequest(r))
}

// Reopen handles POST /reopen-return/:id.
func (h *ReturnHandler) Reopen(c *gin.Context) {
	requestID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.ReopenReturnRequest
	if !h.BindJSON(c, &req) || !h.Actor(c, &req.ReopenedBy) {
		return
	}

	r, err := h.service.Reopen(c.Request.Context(), requestID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromRequest(r))
}

// List handles GET /list-returns.
func (h *ReturnHandler) List(c *gin.Context) {
	var query dto.ListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	q, err := query.ToQuery()
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(res))
}

// Get handles GET /return-details/:id.
func (h *ReturnHandler) Get(c *gin.Context) {
	requestID, ok := h.ParseID(c)
	if !ok {
		return
	}

	details, err := h.service.Get(c.Request.Context(), requestID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromReturnDetails(details))
}
