package handlers

import (
	"github.com/gin-gonic/gin"

	"spareflow/internal/domain/inventory"
	"spareflow/internal/infrastructure/http/v1/dto"
)

// InventoryHandler exposes the pools read-only.
type InventoryHandler struct {
	*BaseHandler
	service *inventory.Service
}

func NewInventoryHandler(base *BaseHandler, service *inventory.Service) *InventoryHandler {
	return &InventoryHandler{BaseHandler: base, service: service}
}

// ListPools handles GET /inventory-pools.
func (h *InventoryHandler) ListPools(c *gin.Context) {
	var query dto.PoolQuery
	if !h.BindQuery(c, &query) {
		return
	}
	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	pools, err := h.service.ListPools(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPools(pools))
}
