package handlers

import (
	"github.com/gin-gonic/gin"

	"spareflow/internal/domain/issue"
	"spareflow/internal/infrastructure/http/v1/dto"
)

// IssueHandler serves the outbound issue lifecycle.
type IssueHandler struct {
	*BaseHandler
	service *issue.Service
}

// NewIssueHandler creates a new issue handler.
func NewIssueHandler(base *BaseHandler, service *issue.Service) *IssueHandler {
	return &IssueHandler{BaseHandler: base, service: service}
}

// Create handles POST /create-issue-request.
func (h *IssueHandler) Create(c *gin.Context) {
	var req dto.CreateIssueRequest
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

// Approve handles POST /approve-issue-request/:id.
func (h *IssueHandler) Approve(c *gin.Context) {
	requestID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.ApproveIssueRequest
	if !h.BindJSON(c, &req) || !h.Actor(c, &req.ApproverID) {
		return
	}

	res, err := h.service.Approve(c.Request.Context(), requestID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromApproveResult(res))
}

// Reject handles POST /reject-issue-request/:id.
func (h *IssueHandler) Reject(c *gin.Context) {
	requestID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.RejectIssueRequest
	if !h.BindJSON(c, &req) || !h.Actor(c, &req.ApproverID) {
		return
	}

	r, err := h.service.Reject(c.Request.Context(), requestID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromRequest(r))
}

// CompleteMovement handles POST /complete-issue-movement/:id.
func (h *IssueHandler) CompleteMovement(c *gin.Context) {
	movementID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.CompleteMovementRequest
	if !h.BindJSON(c, &req) || !h.Actor(c, &req.CompletedBy) {
		return
	}

	m, err := h.service.CompleteMovement(c.Request.Context(), movementID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovement(m))
}

// List handles GET /list-issue-requests.
func (h *IssueHandler) List(c *gin.Context) {
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

// Get handles GET /issue-request-details/:id.
func (h *IssueHandler) Get(c *gin.Context) {
	requestID, ok := h.ParseID(c)
	if !ok {
		return
	}

	details, err := h.service.Get(c.Request.Context(), requestID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromIssueDetails(details))
}
