package handler

import (
	"food-wallet-service/internal/adapter/http/dto"
	"food-wallet-service/internal/adapter/http/middleware"
	"food-wallet-service/internal/core/ports"
	"food-wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// ProfileHandler handles the profile screen.
type ProfileHandler struct {
	profileSvc ports.ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileSvc ports.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc}
}

// Get handles GET /api/v1/profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	p, err := h.profileSvc.Get(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// Update handles PUT /api/v1/profile.
func (h *ProfileHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	dto.SanitizeStruct(&req)

	p, err := h.profileSvc.Update(c.Request.Context(), userID, ports.ProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Address:   req.Address,
		DNI:       req.DNI,
		Info:      req.Info,
		ImageURL:  req.ImageURL,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, userID.String())
	response.OK(c, p)
}
