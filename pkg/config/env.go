package config

const EnvPrefix = "PDV"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverRedis    = "redis"
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
)

const (
	EnvAppEnv           = "PDV_APP_ENV"
	EnvPort             = "PDV_APP_PORT"
	EnvAPIBaseURL       = "PDV_API_BASE_URL"
	EnvAPITenant        = "PDV_API_TENANT"
	EnvAPIAccessToken   = "PDV_API_ACCESS_TOKEN"
	EnvAPIMaxAttempts   = "PDV_API_MAX_ATTEMPTS"
	EnvStoreDriver      = "PDV_STORE_DRIVER"
	EnvStoreDSN         = "PDV_STORE_DSN"
	EnvRedisURL         = "PDV_REDIS_URL"
	EnvPollBillPeriod   = "PDV_POLL_BILL_INTERVAL"
	EnvFiscalSeries     = "PDV_FISCAL_SERIES"
	EnvTerminalRegister = "PDV_TERMINAL_REGISTER_ID"
)
