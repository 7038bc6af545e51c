package handler

import (
	"food-wallet-service/internal/adapter/http/dto"
	"food-wallet-service/internal/core/ports"
	"food-wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// FavoriteHandler handles saved restaurants.
type FavoriteHandler struct {
	favoriteSvc ports.FavoriteService
}

// NewFavoriteHandler creates a new FavoriteHandler.
func NewFavoriteHandler(favoriteSvc ports.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favoriteSvc: favoriteSvc}
}

// List handles GET /api/v1/favorites.
func (h *FavoriteHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	favs, err := h.favoriteSvc.List(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, favs)
}

// Add handles POST /api/v1/favorites.
func (h *FavoriteHandler) Add(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.FavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	dto.SanitizeStruct(&req)

	fav, err := h.favoriteSvc.Add(c.Request.Context(), userID, ports.FavoriteInput{
		Name:        req.Name,
		Description: req.Description,
		ImageRef:    req.ImageRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fav)
}

// Remove handles DELETE /api/v1/favorites/:id.
func (h *FavoriteHandler) Remove(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.favoriteSvc.Remove(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": id})
}
