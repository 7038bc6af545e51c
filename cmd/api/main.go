package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"food-wallet-service/config"
	httpHandler "food-wallet-service/internal/adapter/http/handler"
	"food-wallet-service/internal/adapter/http/middleware"
	"food-wallet-service/internal/adapter/messaging"
	pgStorage "food-wallet-service/internal/adapter/storage/postgres"
	redisStorage "food-wallet-service/internal/adapter/storage/redis"
	"food-wallet-service/internal/core/domain"
	"food-wallet-service/internal/core/ports"
	"food-wallet-service/internal/service"
	"food-wallet-service/pkg/logger"
	"food-wallet-service/pkg/metrics"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(os.Getenv("FWS_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Food Wallet Service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := pgStorage.Migrate(cfg.Database.MigrateURL(), log); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	userRepo := pgStorage.NewUserRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	cartRepo := pgStorage.NewCartRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	menuRepo := pgStorage.NewMenuRepo(pool)
	profileRepo := pgStorage.NewProfileRepo(pool)
	favoriteRepo := pgStorage.NewFavoriteRepo(pool)
	outboxRepo := pgStorage.NewOutboxRepo(pool)
	auditRepo := pgStorage.NewAuditRepository(pool)
	transactor := pgStorage.NewTransactor(pool, cfg.Database.LockTimeout)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	menuCache := redisStorage.NewMenuCache(rdb)

	// Initialize core services
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	hashSvc := service.NewArgon2HashService(service.Argon2Params{
		Time:      cfg.Password.Time,
		MemoryKiB: cfg.Password.MemoryKiB,
		Threads:   cfg.Password.Threads,
	})
	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret must be set")
	}
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer, service.WithTokenLeeway(cfg.JWT.Leeway))

	rechargeAmounts, err := domain.ParseRechargeAmounts(cfg.Wallet.RechargeAmounts)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid wallet.recharge_amounts")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// Initialize business services
	authSvc := service.NewAuthService(userRepo, walletRepo, transactor, hashSvc, tokenSvc, cfg.Wallet.Currency, log)
	walletSvc := service.NewWalletService(
		walletRepo,
		ledgerRepo,
		outboxRepo,
		idempotencyRepo,
		idempotencyCache,
		transactor,
		rechargeAmounts,
		cfg.Checkout.IdempotencyTTL,
		log,
	)
	checkoutSvc := service.NewCheckoutService(
		walletRepo,
		cartRepo,
		ledgerRepo,
		outboxRepo,
		idempotencyRepo,
		idempotencyCache,
		transactor,
		m,
		cfg.Checkout.IdempotencyTTL,
		log,
	)
	cartSvc := service.NewCartService(cartRepo, menuRepo)
	menuSvc := service.NewMenuService(menuRepo, menuCache, cfg.Menu.CacheTTL, log)
	profileSvc := service.NewProfileService(profileRepo, encSvc)
	favoriteSvc := service.NewFavoriteService(favoriteRepo)
	auditSvc := service.NewAuditService(auditRepo, cfg.Audit.QueueSize, log)

	checkers := []ports.HealthChecker{
		ports.CheckFunc("postgresql", pool.Ping),
		ports.CheckFunc("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
	}

	// Event publishing: Kafka when enabled, otherwise the log.
	var publisher ports.EventPublisher
	if cfg.Kafka.Enabled {
		kafkaPub := messaging.NewKafkaPublisher(
			messaging.NewWriter(cfg.Kafka),
			service.NewHMACEventSigner(cfg.Kafka.EventSecret, cfg.Kafka.SignatureTolerance),
			cfg.Kafka, log,
		)
		defer kafkaPub.Close() //nolint:errcheck
		publisher = kafkaPub
		checkers = append(checkers, kafkaPub)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka publisher enabled")
	} else {
		publisher = messaging.NewLogPublisher(log)
	}
	relay := service.NewOutboxRelay(outboxRepo, publisher, m, service.OutboxRelayConfig{
		Topic:        cfg.Kafka.Topic,
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
	}, log)
	sweeper := service.NewIdempotencySweeper(
		idempotencyRepo, cfg.Checkout.IdempotencyTTL, cfg.Checkout.IdempotencySweepInterval, log,
	)

	// Rate limiting
	var rateLimitStore ports.RateLimitStore
	var rateLimitRules map[string]middleware.RateLimitRule
	if cfg.RateLimit.Enabled {
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		if cfg.RateLimit.Limit > 0 && cfg.RateLimit.Window > 0 {
			rateLimitRules = map[string]middleware.RateLimitRule{
				"api": {Limit: int64(cfg.RateLimit.Limit), Window: cfg.RateLimit.Window},
			}
		}
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		WalletSvc:      walletSvc,
		CartSvc:        cartSvc,
		CheckoutSvc:    checkoutSvc,
		MenuSvc:        menuSvc,
		ProfileSvc:     profileSvc,
		FavoriteSvc:    favoriteSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		RateLimitRules: rateLimitRules,
		AuditSvc:       auditSvc,
		Metrics:        m,
		MetricsPath:    cfg.Metrics.Path,
		HealthCheckers: checkers,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Mode:           cfg.Server.Mode,
		Logger:         log,
	})

	// Background workers run until shutdown.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		relay.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()
	// The audit worker outlives ctx so requests drained by Shutdown are still recorded.
	auditCtx, stopAudit := context.WithCancel(context.Background())
	defer stopAudit()
	wg.Add(1)
	go func() {
		defer wg.Done()
		auditSvc.Run(auditCtx)
	}()

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	stopAudit()
	wg.Wait()

	log.Info().Msg("Server exited")
}
