package handler

import (
	"food-wallet-service/internal/core/ports"
	"food-wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// MenuHandler handles the public dish catalogue.
type MenuHandler struct {
	menuSvc ports.MenuService
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(menuSvc ports.MenuService) *MenuHandler {
	return &MenuHandler{menuSvc: menuSvc}
}

// List handles GET /api/v1/menu.
func (h *MenuHandler) List(c *gin.Context) {
	items, err := h.menuSvc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Get handles GET /api/v1/menu/:id.
func (h *MenuHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	item, err := h.menuSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}
