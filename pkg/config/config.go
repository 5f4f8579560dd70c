package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "TICKETCART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "TICKETCART_DB_DSN"
	EnvDBHost = "TICKETCART_DB_HOST"
	EnvDBUser = "TICKETCART_DB_USER"
	EnvDBName = "TICKETCART_DB_NAME"

	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageSQL    = "sql"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Cart         CartConfig
	Checkout     CheckoutConfig
	Backend      BackendConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Cart.Storage = strings.ToLower(strings.TrimSpace(cfg.Cart.Storage))
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	if cfg.Cart.Storage == StorageSQL {
		if err := cfg.DB.EnsureDSN(); err != nil {
			return nil, err
		}
	}
	if cfg.Cart.Storage == StorageRedis && !cfg.Redis.Configured() {
		return nil, fmt.Errorf("redis storage requires TICKETCART_REDIS_URL or TICKETCART_REDIS_ADDR")
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"TICKETCART_APP_ENV" required:"true"`
	Port         string   `envconfig:"TICKETCART_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"TICKETCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"TICKETCART_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"TICKETCART_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type CartConfig struct {
	Storage       string        `envconfig:"TICKETCART_CART_STORAGE" default:"memory"`
	StorageKey    string        `envconfig:"TICKETCART_CART_STORAGE_KEY" default:"eventCart"`
	FileDir       string        `envconfig:"TICKETCART_CART_FILE_DIR" default:"./data/carts"`
	TTL           time.Duration `envconfig:"TICKETCART_CART_TTL" default:"720h"`
	TaxRateRaw    string        `envconfig:"TICKETCART_CART_TAX_RATE" default:"0.1"`
	SweepInterval time.Duration `envconfig:"TICKETCART_CART_SWEEP_INTERVAL" default:"1h"`
}

// TaxRate returns the configured default tax rate as a decimal fraction.
func (c CartConfig) TaxRate() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRateRaw))
	if err != nil {
		return decimal.NewFromFloat(0.1)
	}
	return rate
}

func (c CartConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Storage)) {
	case StorageMemory, StorageFile, StorageRedis, StorageSQL:
	default:
		return fmt.Errorf("unsupported cart storage %q", c.Storage)
	}
	if strings.TrimSpace(c.StorageKey) == "" {
		return fmt.Errorf("cart storage key is required")
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRateRaw))
	if err != nil {
		return fmt.Errorf("parsing cart tax rate: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("cart tax rate must be between 0 and 1")
	}
	return nil
}

type CheckoutConfig struct {
	AdminFee       int64         `envconfig:"TICKETCART_CHECKOUT_ADMIN_FEE" default:"15000"`
	PaymentPath    string        `envconfig:"TICKETCART_CHECKOUT_PAYMENT_PATH" default:"/payment.html"`
	IdempotencyTTL time.Duration `envconfig:"TICKETCART_CHECKOUT_IDEMPOTENCY_TTL" default:"168h"`
}

type BackendConfig struct {
	BaseURL      string        `envconfig:"TICKETCART_BACKEND_BASE_URL" default:"http://localhost:8081/api"`
	Timeout      time.Duration `envconfig:"TICKETCART_BACKEND_TIMEOUT" default:"10s"`
	PromoRetries int           `envconfig:"TICKETCART_BACKEND_PROMO_RETRIES" default:"1"`
	RetryBackoff time.Duration `envconfig:"TICKETCART_BACKEND_RETRY_BACKOFF" default:"200ms"`
}

type DBConfig struct {
	DSN    string `envconfig:"TICKETCART_DB_DSN"`
	Driver string `envconfig:"TICKETCART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TICKETCART_DB_HOST"`
	LegacyPort     int    `envconfig:"TICKETCART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TICKETCART_DB_USER"`
	LegacyPassword string `envconfig:"TICKETCART_DB_PASSWORD"`
	LegacyName     string `envconfig:"TICKETCART_DB_NAME"`
	LegacySSLMode  string `envconfig:"TICKETCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TICKETCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TICKETCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TICKETCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TICKETCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TICKETCART_REDIS_URL"`
	Address      string        `envconfig:"TICKETCART_REDIS_ADDR"`
	Password     string        `envconfig:"TICKETCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"TICKETCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TICKETCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TICKETCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TICKETCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TICKETCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TICKETCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether a Redis endpoint was provided.
func (r RedisConfig) Configured() bool {
	return r.URL != "" || r.Address != ""
}

// JWTConfig holds the shared secret of the ticketing backend's token issuer.
type JWTConfig struct {
	Secret    string `envconfig:"TICKETCART_JWT_SECRET"`
	Algorithm string `envconfig:"TICKETCART_JWT_ALGORITHM" default:"HS512"`
}

// RateLimitConfig throttles promo lookups so codes cannot be guessed by
// brute force. A zero limit disables that counter.
type RateLimitConfig struct {
	PromoWindow       time.Duration `envconfig:"TICKETCART_RATE_LIMIT_PROMO_WINDOW" default:"1m"`
	PromoIPLimit      int           `envconfig:"TICKETCART_RATE_LIMIT_PROMO_IP_LIMIT" default:"30"`
	PromoProfileLimit int           `envconfig:"TICKETCART_RATE_LIMIT_PROMO_PROFILE_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TICKETCART_AUTO_MIGRATE" default:"false"`
}

// EnsureDSN builds DSN from the legacy TICKETCART_DB_* variables when unset.
func (db *DBConfig) EnsureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if strings.EqualFold(db.Driver, DriverSQLite) {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
