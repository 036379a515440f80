package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix scopes every environment variable this service reads.
const EnvPrefix = "AGROCONNECT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names used by tests and tooling.
const (
	EnvAppEnv                 = "AGROCONNECT_APP_ENV"
	EnvPort                   = "AGROCONNECT_APP_PORT"
	EnvDBDSN                  = "AGROCONNECT_DB_DSN"
	EnvRedisURL               = "AGROCONNECT_REDIS_URL"
	EnvJWTSecret              = "AGROCONNECT_JWT_SECRET"
	EnvJWTIssuer              = "AGROCONNECT_JWT_ISSUER"
	EnvJWTExpMins             = "AGROCONNECT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "AGROCONNECT_REFRESH_TOKEN_TTL_MINUTES"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Cart          CartConfig
	Chat          ChatConfig
	Weather       WeatherConfig
	Stripe        StripeConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"AGROCONNECT_APP_ENV" required:"true"`
	Port         string `envconfig:"AGROCONNECT_APP_PORT" default:"8000"`
	LogLevel     string `envconfig:"AGROCONNECT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AGROCONNECT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"AGROCONNECT_DB_DSN"`

	Host     string `envconfig:"AGROCONNECT_DB_HOST"`
	Port     int    `envconfig:"AGROCONNECT_DB_PORT" default:"5432"`
	User     string `envconfig:"AGROCONNECT_DB_USER"`
	Password string `envconfig:"AGROCONNECT_DB_PASSWORD"`
	Name     string `envconfig:"AGROCONNECT_DB_NAME"`
	SSLMode  string `envconfig:"AGROCONNECT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AGROCONNECT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AGROCONNECT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AGROCONNECT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AGROCONNECT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if strings.TrimSpace(d.DSN) != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either AGROCONNECT_DB_DSN or host/user/name settings are required")
	}
	d.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Password),
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"AGROCONNECT_REDIS_URL"`
	Address      string        `envconfig:"AGROCONNECT_REDIS_ADDR"`
	Password     string        `envconfig:"AGROCONNECT_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGROCONNECT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGROCONNECT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGROCONNECT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGROCONNECT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGROCONNECT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGROCONNECT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"AGROCONNECT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"AGROCONNECT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"AGROCONNECT_JWT_EXPIRATION_MINUTES" default:"30"`
	RefreshTokenTTLMinutes int    `envconfig:"AGROCONNECT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"AGROCONNECT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"AGROCONNECT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"AGROCONNECT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"AGROCONNECT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"AGROCONNECT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"AGROCONNECT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"AGROCONNECT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"AGROCONNECT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"AGROCONNECT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"AGROCONNECT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"AGROCONNECT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type CartConfig struct {
	TTL time.Duration `envconfig:"AGROCONNECT_CART_TTL" default:"720h"`
}

type ChatConfig struct {
	DedupWindow       time.Duration `envconfig:"AGROCONNECT_CHAT_DEDUP_WINDOW" default:"5s"`
	ReconnectDelay    time.Duration `envconfig:"AGROCONNECT_CHAT_RECONNECT_DELAY" default:"3s"`
	PresenceTTL       time.Duration `envconfig:"AGROCONNECT_CHAT_PRESENCE_TTL" default:"45s"`
	PresenceKeepAlive time.Duration `envconfig:"AGROCONNECT_CHAT_PRESENCE_KEEPALIVE" default:"30s"`
	WriteTimeout      time.Duration `envconfig:"AGROCONNECT_CHAT_WRITE_TIMEOUT" default:"10s"`
	MaxMessageBytes   int64         `envconfig:"AGROCONNECT_CHAT_MAX_MESSAGE_BYTES" default:"1048576"`
}

type WeatherConfig struct {
	APIKey  string `envconfig:"AGROCONNECT_WEATHER_API_KEY"`
	BaseURL string `envconfig:"AGROCONNECT_WEATHER_BASE_URL"`
}

type StripeConfig struct {
	APIKey string `envconfig:"AGROCONNECT_STRIPE_API_KEY"`
	Secret string `envconfig:"AGROCONNECT_STRIPE_SECRET"`
	Env    string `envconfig:"AGROCONNECT_STRIPE_ENV" default:"test"`
}

// Environment returns the configured Stripe environment name.
func (s StripeConfig) Environment() string {
	return s.Env
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AGROCONNECT_AUTO_MIGRATE" default:"false"`
}
