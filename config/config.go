package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Password  PasswordConfig  `mapstructure:"password"`
	AES       AESConfig       `mapstructure:"aes"`
	Log       LogConfig       `mapstructure:"log"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Checkout  CheckoutConfig  `mapstructure:"checkout"`
	Menu      MenuConfig      `mapstructure:"menu"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LockTimeout     time.Duration `mapstructure:"lock_timeout"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// MigrateURL returns the DSN in the scheme expected by the migrate pgx/v5 driver.
func (d DatabaseConfig) MigrateURL() string {
	return "pgx5" + strings.TrimPrefix(d.DSN(), "postgres")
}

type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
	Leeway time.Duration `mapstructure:"leeway"`
}

// PasswordConfig sets the argon2id cost of new password hashes.
type PasswordConfig struct {
	Time      uint32 `mapstructure:"time"`
	MemoryKiB uint32 `mapstructure:"memory_kib"`
	Threads   uint8  `mapstructure:"threads"`
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key for AES-256
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

type WalletConfig struct {
	Currency        string   `mapstructure:"currency"`
	RechargeAmounts []string `mapstructure:"recharge_amounts"` // decimal literals
}

type CheckoutConfig struct {
	IdempotencyTTL           time.Duration `mapstructure:"idempotency_ttl"`
	IdempotencySweepInterval time.Duration `mapstructure:"idempotency_sweep_interval"`
}

type MenuConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// AuditConfig bounds the in-memory queue in front of audit_logs.
type AuditConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

type KafkaConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	Brokers            []string      `mapstructure:"brokers"`
	Topic              string        `mapstructure:"topic"`
	EventSecret        string        `mapstructure:"event_secret"` // HMAC key for the X-Signature header
	SignatureTolerance time.Duration `mapstructure:"signature_tolerance"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	BreakerMaxFailures uint32        `mapstructure:"breaker_max_failures"`
	BreakerOpenTimeout time.Duration `mapstructure:"breaker_open_timeout"`
}

type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are skipped; existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: FWS_ (Food Wallet Service).
// Nested keys use underscore: FWS_DATABASE_HOST, FWS_KAFKA_BROKERS, etc.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("FWS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The file is optional, env vars can carry everything.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "food_wallet")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.lock_timeout", "5s")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.dial_timeout", "3s")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "food-wallet-service")
	v.SetDefault("jwt.leeway", "30s")
	v.SetDefault("password.time", 1)
	v.SetDefault("password.memory_kib", 64*1024)
	v.SetDefault("password.threads", 4)
	v.SetDefault("aes.key", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("wallet.currency", "COIN")
	v.SetDefault("wallet.recharge_amounts", []string{"5", "10", "20", "50"})
	v.SetDefault("checkout.idempotency_ttl", "24h")
	v.SetDefault("checkout.idempotency_sweep_interval", "1h")
	v.SetDefault("menu.cache_ttl", "5m")

	v.SetDefault("audit.queue_size", 1024)
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.limit", 120)
	v.SetDefault("ratelimit.window", "1m")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "food-wallet.events")
	v.SetDefault("kafka.event_secret", "")
	v.SetDefault("kafka.signature_tolerance", "5m")
	v.SetDefault("kafka.write_timeout", "5s")
	v.SetDefault("kafka.breaker_max_failures", 5)
	v.SetDefault("kafka.breaker_open_timeout", "30s")

	v.SetDefault("outbox.poll_interval", "2s")
	v.SetDefault("outbox.batch_size", 50)
	v.SetDefault("outbox.max_attempts", 10)

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
