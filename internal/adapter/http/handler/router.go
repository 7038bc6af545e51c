package handler

import (
	"food-wallet-service/internal/adapter/http/middleware"
	"food-wallet-service/internal/core/ports"
	"food-wallet-service/pkg/apperror"
	"food-wallet-service/pkg/metrics"
	"food-wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	WalletSvc      ports.WalletService
	CartSvc        ports.CartService
	CheckoutSvc    ports.CheckoutService
	MenuSvc        ports.MenuService
	ProfileSvc     ports.ProfileService
	FavoriteSvc    ports.FavoriteService
	TokenSvc       ports.TokenService
	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	RateLimitRules map[string]middleware.RateLimitRule
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Metrics        *metrics.Metrics   // nil = no /metrics and no request metrics
	MetricsPath    string
	HealthCheckers []ports.HealthChecker
	AllowedOrigins []string
	MaxBodyBytes   int64
	Mode           string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode != "" {
		gin.SetMode(deps.Mode)
	}
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}
	r.Use(middleware.CORS(deps.AllowedOrigins))
	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	r.Use(middleware.MaxBodySize(maxBody))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/health/live", Liveness)

	if deps.Metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(deps.Metrics.Handler()))
	}

	rules := middleware.DefaultRateLimitRules()
	for group, rule := range deps.RateLimitRules {
		rules[group] = rule
	}

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Metrics, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	menuHandler := NewMenuHandler(deps.MenuSvc)
	menu := v1.Group("/menu", rl("menu"))
	{
		menu.GET("", menuHandler.List)
		menu.GET("/:id", menuHandler.Get)
	}

	// --- JWT-authenticated routes ---
	// JWTAuth runs first so limits are counted per user.
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	api := v1.Group("", jwtAuth, rl("api"))

	api.GET("/auth/me", authHandler.Me)

	walletHandler := NewWalletHandler(deps.WalletSvc)
	wallet := api.Group("/wallet")
	{
		wallet.GET("", walletHandler.GetWallet)
		wallet.GET("/overview", walletHandler.Overview)
		wallet.POST("/recharge", rl("wallet_recharge"), walletHandler.Recharge)
		wallet.GET("/history", walletHandler.History)
	}

	cartHandler := NewCartHandler(deps.CartSvc)
	cart := api.Group("/cart")
	{
		cart.GET("", cartHandler.View)
		cart.DELETE("", cartHandler.Clear)
		cart.POST("/items", cartHandler.AddItem)
		cart.DELETE("/items/:id", cartHandler.RemoveItem)
	}

	checkoutHandler := NewCheckoutHandler(deps.CheckoutSvc)
	checkout := api.Group("/checkout")
	{
		checkout.GET("/quote", checkoutHandler.Quote)
		checkout.POST("", rl("checkout"), checkoutHandler.Checkout)
	}

	profileHandler := NewProfileHandler(deps.ProfileSvc)
	profile := api.Group("/profile")
	{
		profile.GET("", profileHandler.Get)
		profile.PUT("", profileHandler.Update)
	}

	favoriteHandler := NewFavoriteHandler(deps.FavoriteSvc)
	favorites := api.Group("/favorites")
	{
		favorites.GET("", favoriteHandler.List)
		favorites.POST("", favoriteHandler.Add)
		favorites.DELETE("/:id", favoriteHandler.Remove)
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, apperror.ErrNotFound("Route"))
	})

	return r
}
