package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Orders       OrdersConfig
	Telegram     TelegramConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Orders.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BEAT808_APP_ENV" required:"true"`
	Port         string `envconfig:"BEAT808_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BEAT808_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BEAT808_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BEAT808_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BEAT808_DB_DSN"`
	Driver string `envconfig:"BEAT808_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BEAT808_DB_HOST"`
	LegacyPort     int    `envconfig:"BEAT808_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BEAT808_DB_USER"`
	LegacyPassword string `envconfig:"BEAT808_DB_PASSWORD"`
	LegacyName     string `envconfig:"BEAT808_DB_NAME"`
	LegacySSLMode  string `envconfig:"BEAT808_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BEAT808_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BEAT808_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BEAT808_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BEAT808_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.LegacyHost == "" || d.LegacyUser == "" || d.LegacyName == "" {
		return fmt.Errorf("either %s or host/user/name db settings are required", EnvDBDSN)
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.LegacyUser, d.LegacyPassword),
		Host:   fmt.Sprintf("%s:%d", d.LegacyHost, d.LegacyPort),
		Path:   d.LegacyName,
	}
	q := u.Query()
	q.Set("sslmode", d.LegacySSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"BEAT808_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BEAT808_REDIS_ADDR"`
	Password     string        `envconfig:"BEAT808_REDIS_PASSWORD"`
	DB           int           `envconfig:"BEAT808_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BEAT808_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BEAT808_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BEAT808_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BEAT808_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BEAT808_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BEAT808_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BEAT808_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BEAT808_JWT_EXPIRATION_MINUTES" required:"true"`
}

// OrdersConfig holds the order lifecycle knobs.
type OrdersConfig struct {
	// PendingTTL is how long a pending order waits for seller confirmation
	// before the expiry sweep cancels it.
	PendingTTL time.Duration `envconfig:"BEAT808_ORDER_PENDING_TTL" default:"10m"`
	// SellerCutPercent is the share of the price credited to the seller;
	// the remainder is the platform fee.
	SellerCutPercent int `envconfig:"BEAT808_SELLER_CUT_PERCENT" default:"90"`
}

func (o OrdersConfig) validate() error {
	if o.PendingTTL <= 0 {
		return fmt.Errorf("order pending ttl must be positive")
	}
	if o.SellerCutPercent < 0 || o.SellerCutPercent > 100 {
		return fmt.Errorf("seller cut percent must be between 0 and 100")
	}
	return nil
}

type TelegramConfig struct {
	BotToken string `envconfig:"BEAT808_TELEGRAM_BOT_TOKEN"`
	ChatID   string `envconfig:"BEAT808_TELEGRAM_CHAT_ID"`
	APIBase  string `envconfig:"BEAT808_TELEGRAM_API_BASE" default:"https://api.telegram.org"`
}

// Enabled reports whether the operator channel is configured at all.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

type CronConfig struct {
	Interval time.Duration `envconfig:"BEAT808_CRON_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"BEAT808_CRON_LOCK_TTL" default:"5m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BEAT808_FEATURE_AUTO_MIGRATE" default:"false"`
}
