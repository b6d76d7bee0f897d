package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix  = ""
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	Stripe        StripeConfig
	Sendgrid      SendgridConfig
	Notifications NotificationsConfig
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
	Env          string `envconfig:"COMERCIO_APP_ENV" required:"true"`
	Port         string `envconfig:"COMERCIO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COMERCIO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COMERCIO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"COMERCIO_DB_DSN"`

	Host     string `envconfig:"COMERCIO_DB_HOST"`
	Port     int    `envconfig:"COMERCIO_DB_PORT" default:"5432"`
	User     string `envconfig:"COMERCIO_DB_USER"`
	Password string `envconfig:"COMERCIO_DB_PASSWORD"`
	Name     string `envconfig:"COMERCIO_DB_NAME"`
	SSLMode  string `envconfig:"COMERCIO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COMERCIO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COMERCIO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COMERCIO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COMERCIO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COMERCIO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COMERCIO_REDIS_ADDR"`
	Password     string        `envconfig:"COMERCIO_REDIS_PASSWORD"`
	DB           int           `envconfig:"COMERCIO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COMERCIO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COMERCIO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COMERCIO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COMERCIO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COMERCIO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	APIKey   string `envconfig:"COMERCIO_STRIPE_API_KEY"`
	Secret   string `envconfig:"COMERCIO_STRIPE_WEBHOOK_SECRET"`
	Env      string `envconfig:"COMERCIO_STRIPE_ENV" default:"test"`
	Currency string `envconfig:"COMERCIO_STRIPE_CURRENCY" default:"mxn"`

	WebhookEventTTL time.Duration `envconfig:"COMERCIO_STRIPE_WEBHOOK_EVENT_TTL" default:"72h"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SendgridConfig struct {
	APIKey      string `envconfig:"COMERCIO_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"COMERCIO_SENDGRID_FROM_EMAIL"`
	FromName    string `envconfig:"COMERCIO_SENDGRID_FROM_NAME" default:"Comercio"`
}

type NotificationsConfig struct {
	BroadcastChannel string `envconfig:"COMERCIO_NOTIFY_BROADCAST_CHANNEL" default:"comercio:orders:paid"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"COMERCIO_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		"COMERCIO_DB_HOST": db.Host,
		"COMERCIO_DB_USER": db.User,
		"COMERCIO_DB_NAME": db.Name,
	}
	for _, key := range []string{"COMERCIO_DB_HOST", "COMERCIO_DB_USER", "COMERCIO_DB_NAME"} {
		if values[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either COMERCIO_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
