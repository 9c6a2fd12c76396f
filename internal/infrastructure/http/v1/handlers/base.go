package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spareflow/internal/core/apperror"
	appctx "spareflow/internal/core/context"
	"spareflow/internal/core/id"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers err on the Gin context and aborts the request.
// The JSON body is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseID parses the :id path parameter.
func (h *BaseHandler) ParseID(c *gin.Context) (id.ID, bool) {
	raw := c.Param("id")
	parsed, err := id.Parse(raw)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id").WithDetail("id", raw))
		return id.Nil(), false
	}
	return parsed, true
}

// Actor checks the actor named in a body against the authenticated
// principal. Without a principal the body value is trusted as is. An empty
// actor is filled from the principal.
func (h *BaseHandler) Actor(c *gin.Context, actor *string) bool {
	principal := appctx.GetPrincipal(c.Request.Context())
	if principal == nil {
		return true
	}
	if *actor == "" {
		*actor = principal.Subject
		return true
	}
	if *actor != principal.Subject {
		h.Error(c, apperror.NewForbidden("actor does not match the authenticated subject").
			WithDetail("actor", *actor))
		return false
	}
	return true
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created sends 201 response with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}
