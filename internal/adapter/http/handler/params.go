package handler

import (
	"food-wallet-service/internal/adapter/http/middleware"
	"food-wallet-service/pkg/apperror"
	"food-wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// currentUser returns the authenticated user, writing a 401 when absent.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	return id, true
}

// pathID parses the :id path parameter, writing a 400 when malformed.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

// idempotencyKey reads the optional Idempotency-Key header.
func idempotencyKey(c *gin.Context) (string, bool) {
	key := c.GetHeader(HeaderIdempotencyKey)
	if len(key) > 128 {
		response.Error(c, apperror.Validation("Idempotency-Key must be at most 128 characters"))
		return "", false
	}
	return key, true
}
