package handler

import (
	"food-wallet-service/internal/adapter/http/dto"
	"food-wallet-service/internal/core/ports"
	"food-wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CartHandler handles cart endpoints.
type CartHandler struct {
	cartSvc ports.CartService
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(cartSvc ports.CartService) *CartHandler {
	return &CartHandler{cartSvc: cartSvc}
}

// View handles GET /api/v1/cart.
func (h *CartHandler) View(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.cartSvc.View(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// AddItem handles POST /api/v1/cart/items. A menu_item_id adds the catalogue
// dish; otherwise the body is stored as a loose line.
func (h *CartHandler) AddItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	dto.SanitizeStruct(&req)

	if req.MenuItemID != "" {
		line, err := h.cartSvc.AddMenuItem(c.Request.Context(), userID, uuid.MustParse(req.MenuItemID))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Created(c, line)
		return
	}

	line, err := h.cartSvc.AddLine(c.Request.Context(), userID, ports.CartLineInput{
		Name:     req.Name,
		Price:    req.Price,
		Quantity: req.Quantity,
		ImageRef: req.ImageRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, line)
}

// RemoveItem handles DELETE /api/v1/cart/items/:id.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	lineID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.cartSvc.Remove(c.Request.Context(), userID, lineID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": lineID})
}

// Clear handles DELETE /api/v1/cart.
func (h *CartHandler) Clear(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	removed, err := h.cartSvc.Clear(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ClearCartResponse{Removed: removed})
}
