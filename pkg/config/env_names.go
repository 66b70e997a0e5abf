package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names so
// the prefix only matters for fields without a tag.
const EnvPrefix = "BEAT808"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (tests, docs).
const (
	EnvAppEnv           = "BEAT808_APP_ENV"
	EnvPort             = "BEAT808_APP_PORT"
	EnvDBDSN            = "BEAT808_DB_DSN"
	EnvRedisURL         = "BEAT808_REDIS_URL"
	EnvJWTSecret        = "BEAT808_JWT_SECRET"
	EnvJWTIssuer        = "BEAT808_JWT_ISSUER"
	EnvJWTExpMins       = "BEAT808_JWT_EXPIRATION_MINUTES"
	EnvOrderPendingTTL  = "BEAT808_ORDER_PENDING_TTL"
	EnvSellerCutPercent = "BEAT808_SELLER_CUT_PERCENT"
	EnvTelegramBotToken = "BEAT808_TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID   = "BEAT808_TELEGRAM_CHAT_ID"
)
