package middleware

import (
	"net/http"
	"strings"
	"time"

	"food-wallet-service/internal/core/ports"
	"food-wallet-service/pkg/apperror"
	"food-wallet-service/pkg/logger"
	"food-wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderRequestID = "X-Request-ID"

	// Context keys
	CtxRequestID = "request_id"
	CtxUserID    = "user_id"
	CtxUserEmail = "user_email"
	CtxTokenID   = "token_id"
)

// JWTAuth creates a middleware that validates bearer tokens and stores the
// caller's user id in the context.
func JWTAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) < 8 || !strings.EqualFold(authHeader[:7], "Bearer ") {
			response.AbortError(c, apperror.ErrInvalidToken())
			return
		}

		claims, err := tokenSvc.Validate(authHeader[7:])
		if err != nil {
			log.Debug().Err(err).Msg("token rejected")
			response.AbortError(c, apperror.ErrInvalidToken())
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUserEmail, claims.Email)
		c.Set(CtxTokenID, claims.TokenID)
		c.Next()
	}
}

// UserID returns the authenticated user id set by JWTAuth.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(CtxUserID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// RequestID propagates the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.New().String()
		}
		c.Set(CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger logs every HTTP request and hands downstream code a logger
// tagged with the request id through the request context.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		scoped := log.With().Str("request_id", c.GetString(CtxRequestID)).Logger()
		c.Request = c.Request.WithContext(logger.Into(c.Request.Context(), scoped))

		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("request_id", c.GetString(CtxRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				response.AbortError(c, apperror.New("SYS_001", "Internal server error", http.StatusInternalServerError))
			}
		}()
		c.Next()
	}
}
