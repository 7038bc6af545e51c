package middleware

import (
	"math"
	"strconv"
	"time"

	"food-wallet-service/internal/core/ports"
	"food-wallet-service/pkg/apperror"
	"food-wallet-service/pkg/metrics"
	"food-wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule allows Limit requests per caller in any Window-long span.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules keys are the endpoint groups used by the router.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"auth_login":      {Limit: 10, Window: time.Minute},
		"auth_register":   {Limit: 5, Window: time.Hour},
		"menu":            {Limit: 120, Window: time.Minute},
		"api":             {Limit: 120, Window: time.Minute},
		"wallet_recharge": {Limit: 20, Window: time.Minute},
		"checkout":        {Limit: 30, Window: time.Minute},
	}
}

// RateLimiter throttles one endpoint group. When the store is unreachable
// the request goes through and a warning is logged.
func RateLimiter(store ports.RateLimitStore, group string, rule RateLimitRule, m *metrics.Metrics, log zerolog.Logger) gin.HandlerFunc {
	limit := strconv.FormatInt(rule.Limit, 10)
	return func(c *gin.Context) {
		caller := callerKey(c)
		res, err := store.Allow(c.Request.Context(), caller+":"+group, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit store unavailable, admitting request")
			c.Next()
			return
		}

		c.Header("RateLimit-Limit", limit)
		c.Header("RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		if res.Allowed {
			c.Next()
			return
		}

		m.ObserveRateLimited(group)
		log.Info().Str("group", group).Str("caller", caller).Msg("rate limited")
		c.Header("Retry-After", strconv.Itoa(retrySeconds(res.RetryAfter)))
		response.AbortError(c, apperror.ErrRateLimitExceeded())
	}
}

func retrySeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// callerKey prefers the authenticated user over the client address.
func callerKey(c *gin.Context) string {
	if id, ok := UserID(c); ok {
		return "user:" + id.String()
	}
	return "ip:" + c.ClientIP()
}
