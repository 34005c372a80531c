package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "tillpoint"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv   = "TILLPOINT_APP_ENV"
	EnvPort     = "TILLPOINT_APP_PORT"
	EnvDBDSN    = "TILLPOINT_DB_DSN"
	EnvDBHost   = "TILLPOINT_DB_HOST"
	EnvDBUser   = "TILLPOINT_DB_USER"
	EnvDBName   = "TILLPOINT_DB_NAME"
	EnvRedisURL = "TILLPOINT_REDIS_URL"
	EnvSalesURL = "TILLPOINT_SALES_BASE_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Sales        SalesBackendConfig
	Catalog      CatalogConfig
	Customers    CustomersConfig
	Coupons      CouponsConfig
	TaxRules     TaxRulesConfig
	Quotes       QuotesConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TILLPOINT_APP_ENV" required:"true"`
	Port         string `envconfig:"TILLPOINT_APP_PORT" required:"true"`
	Region       string `envconfig:"TILLPOINT_REGION" default:""`
	LogLevel     string `envconfig:"TILLPOINT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TILLPOINT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TILLPOINT_DB_DSN"`
	Driver string `envconfig:"TILLPOINT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TILLPOINT_DB_HOST"`
	LegacyPort     int    `envconfig:"TILLPOINT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TILLPOINT_DB_USER"`
	LegacyPassword string `envconfig:"TILLPOINT_DB_PASSWORD"`
	LegacyName     string `envconfig:"TILLPOINT_DB_NAME"`
	LegacySSLMode  string `envconfig:"TILLPOINT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TILLPOINT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TILLPOINT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TILLPOINT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TILLPOINT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TILLPOINT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TILLPOINT_REDIS_ADDR"`
	Password     string        `envconfig:"TILLPOINT_REDIS_PASSWORD"`
	DB           int           `envconfig:"TILLPOINT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TILLPOINT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TILLPOINT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TILLPOINT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TILLPOINT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TILLPOINT_REDIS_WRITE_TIMEOUT" default:"5s"`
	CartTTL      time.Duration `envconfig:"TILLPOINT_REDIS_CART_TTL" default:"72h"`
}

// SalesBackendConfig points the sale lifecycle manager at its backing service.
type SalesBackendConfig struct {
	BaseURL string        `envconfig:"TILLPOINT_SALES_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"TILLPOINT_SALES_TIMEOUT" default:"15s"`
}

type CatalogConfig struct {
	BaseURL string        `envconfig:"TILLPOINT_CATALOG_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"TILLPOINT_CATALOG_TIMEOUT" default:"10s"`
}

type CustomersConfig struct {
	BaseURL string        `envconfig:"TILLPOINT_CUSTOMERS_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"TILLPOINT_CUSTOMERS_TIMEOUT" default:"10s"`
}

type CouponsConfig struct {
	BaseURL string        `envconfig:"TILLPOINT_COUPONS_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"TILLPOINT_COUPONS_TIMEOUT" default:"10s"`
}

type TaxRulesConfig struct {
	BaseURL string        `envconfig:"TILLPOINT_TAXRULES_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"TILLPOINT_TAXRULES_TIMEOUT" default:"10s"`
	// RefreshInterval bounds how long resolved rules may be served from memory.
	RefreshInterval time.Duration `envconfig:"TILLPOINT_TAXRULES_REFRESH_INTERVAL" default:"5m"`
}

type QuotesConfig struct {
	TTL time.Duration `envconfig:"TILLPOINT_QUOTE_TTL" default:"168h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TILLPOINT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TILLPOINT_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
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
