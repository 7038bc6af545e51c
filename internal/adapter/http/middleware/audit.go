package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that logs successful write operations.
// It maps HTTP methods and routes to audit actions.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		action, resourceType := mapPathToAction(route, c.Request.Method)
		if action == "" {
			return
		}

		var userID *uuid.UUID
		if id, ok := UserID(c); ok {
			userID = &id
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"request_id": c.GetString(CtxRequestID),
			"token_id":   c.GetString(CtxTokenID),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			UserID:       userID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.GetString(CtxAuditResourceID),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			StatusCode:   status,
			CreatedAt:    time.Now().UTC(),
		})
	}
}

// CtxAuditResourceID lets a handler name the resource it touched.
const CtxAuditResourceID = "audit_resource_id"

func mapPathToAction(path, method string) (domain.AuditAction, string) {
	switch {
	case path == "/api/v1/auth/register" && method == http.MethodPost:
		return domain.AuditActionRegister, "user"
	case path == "/api/v1/auth/login" && method == http.MethodPost:
		return domain.AuditActionLogin, "session"
	case path == "/api/v1/wallet/recharge" && method == http.MethodPost:
		return domain.AuditActionRecharge, "wallet"
	case path == "/api/v1/checkout" && method == http.MethodPost:
		return domain.AuditActionCheckout, "checkout"
	case path == "/api/v1/profile" && method == http.MethodPut:
		return domain.AuditActionProfileUpdate, "profile"
	case path == "/api/v1/cart" && method == http.MethodDelete:
		return domain.AuditActionCartClear, "cart"
	}
	return "", ""
}
