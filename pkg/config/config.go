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
	API          APIConfig
	Polling      PollingConfig
	Store        StoreConfig
	Redis        RedisConfig
	DB           DBConfig
	Fiscal       FiscalConfig
	Terminal     TerminalConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	cfg.DB.Driver = cfg.Store.Driver
	cfg.DB.DSN = cfg.Store.DSN
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PDV_APP_ENV" required:"true"`
	Port         string `envconfig:"PDV_APP_PORT" default:"8088"`
	LogLevel     string `envconfig:"PDV_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"PDV_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"PDV_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// APIConfig points the terminal at the ERP REST backend.
type APIConfig struct {
	BaseURL      string        `envconfig:"PDV_API_BASE_URL" required:"true"`
	Tenant       string        `envconfig:"PDV_API_TENANT" required:"true"`
	AccessToken  string        `envconfig:"PDV_API_ACCESS_TOKEN"`
	RefreshToken string        `envconfig:"PDV_API_REFRESH_TOKEN"`
	Timeout      time.Duration `envconfig:"PDV_API_TIMEOUT" default:"10s"`
	MaxAttempts  int           `envconfig:"PDV_API_MAX_ATTEMPTS" default:"3"`
	BackoffBase  time.Duration `envconfig:"PDV_API_BACKOFF_BASE" default:"500ms"`
}

func (a APIConfig) validate() error {
	parsed, err := url.Parse(a.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", EnvAPIBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", EnvAPIBaseURL)
	}
	if a.MaxAttempts < 1 {
		return fmt.Errorf("%s must be at least 1", EnvAPIMaxAttempts)
	}
	return nil
}

type PollingConfig struct {
	GridInterval    time.Duration `envconfig:"PDV_POLL_GRID_INTERVAL" default:"10s"`
	BillInterval    time.Duration `envconfig:"PDV_POLL_BILL_INTERVAL" default:"5s"`
	SessionInterval time.Duration `envconfig:"PDV_POLL_SESSION_INTERVAL" default:"30s"`
	PageSize        int           `envconfig:"PDV_POLL_PAGE_SIZE" default:"100"`
}

// StoreConfig selects where in-progress terminal state is persisted.
type StoreConfig struct {
	Driver    string `envconfig:"PDV_STORE_DRIVER" default:"sqlite"`
	DSN       string `envconfig:"PDV_STORE_DSN" default:"file:pdv-terminal.db"`
	Namespace string `envconfig:"PDV_STORE_NAMESPACE" default:"pdv"`
}

func (s StoreConfig) validate() error {
	switch strings.ToLower(s.Driver) {
	case StoreDriverMemory, StoreDriverRedis, StoreDriverSQLite, StoreDriverPostgres:
		return nil
	}
	return fmt.Errorf("unsupported %s %q", EnvStoreDriver, s.Driver)
}

// UsesSQL reports whether the configured driver goes through gorm.
func (s StoreConfig) UsesSQL() bool {
	driver := strings.ToLower(s.Driver)
	return driver == StoreDriverSQLite || driver == StoreDriverPostgres
}

type RedisConfig struct {
	URL          string        `envconfig:"PDV_REDIS_URL"`
	Address      string        `envconfig:"PDV_REDIS_ADDR"`
	Password     string        `envconfig:"PDV_REDIS_PASSWORD"`
	DB           int           `envconfig:"PDV_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PDV_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"PDV_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"PDV_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PDV_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"PDV_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// DBConfig is derived from StoreConfig for SQL drivers.
type DBConfig struct {
	Driver          string        `ignored:"true"`
	DSN             string        `ignored:"true"`
	MaxOpenConns    int           `envconfig:"PDV_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"PDV_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"PDV_DB_CONN_MAX_LIFETIME" default:"1h"`
}

type FiscalConfig struct {
	Model  string `envconfig:"PDV_FISCAL_MODEL" default:"65"`
	Series int    `envconfig:"PDV_FISCAL_SERIES" default:"1"`
}

type TerminalConfig struct {
	RegisterID string `envconfig:"PDV_TERMINAL_REGISTER_ID"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PDV_AUTO_MIGRATE" default:"true"`
}
