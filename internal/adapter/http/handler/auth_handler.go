package handler

import (
	"time"

	"food-wallet-service/internal/adapter/http/dto"
	"food-wallet-service/internal/adapter/http/middleware"
	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"
	"food-wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authSvc ports.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc ports.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	dto.SanitizeStruct(&req)

	user, err := h.authSvc.Register(c.Request.Context(), ports.RegisterRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxUserID, user.ID)
	c.Set(middleware.CtxAuditResourceID, user.ID.String())
	response.Created(c, toUserResponse(user))
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	dto.SanitizeStruct(&req)

	token, expiry, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		Expiry:    expiry.Unix(),
		ExpiresIn: int64(time.Until(expiry).Round(time.Second).Seconds()),
	})
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	user, err := h.authSvc.Me(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toUserResponse(user))
}

func toUserResponse(u *domain.User) dto.UserResponse {
	return dto.UserResponse{ID: u.ID.String(), Email: u.Email, DisplayName: u.DisplayName}
}
