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
	Checkout     CheckoutConfig
	Gateway      GatewayConfig
	Sweeper      SweeperConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"DTECH_APP_ENV" required:"true"`
	Port         string `envconfig:"DTECH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DTECH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DTECH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DTECH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DTECH_DB_DSN"`
	Driver string `envconfig:"DTECH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DTECH_DB_HOST"`
	LegacyPort     int    `envconfig:"DTECH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DTECH_DB_USER"`
	LegacyPassword string `envconfig:"DTECH_DB_PASSWORD"`
	LegacyName     string `envconfig:"DTECH_DB_NAME"`
	LegacySSLMode  string `envconfig:"DTECH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DTECH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DTECH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DTECH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DTECH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DTECH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DTECH_REDIS_ADDR"`
	Password     string        `envconfig:"DTECH_REDIS_PASSWORD"`
	DB           int           `envconfig:"DTECH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DTECH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DTECH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DTECH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DTECH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DTECH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DTECH_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DTECH_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DTECH_JWT_EXPIRATION_MINUTES" default:"60"`
}

type CheckoutConfig struct {
	ShippingFeeCents   int `envconfig:"DTECH_CHECKOUT_SHIPPING_FEE_CENTS" default:"500"`
	FreeShippingCents  int `envconfig:"DTECH_CHECKOUT_FREE_SHIPPING_CENTS" default:"0"`
	MaxLineQuantity    int `envconfig:"DTECH_CHECKOUT_MAX_LINE_QUANTITY" default:"100"`
	OrderNumberRetries int `envconfig:"DTECH_CHECKOUT_ORDER_NUMBER_RETRIES" default:"3"`
}

type GatewayConfig struct {
	BaseURL   string `envconfig:"DTECH_GATEWAY_BASE_URL" required:"true"`
	Secret    string `envconfig:"DTECH_GATEWAY_SECRET" required:"true"`
	ReturnURL string `envconfig:"DTECH_GATEWAY_RETURN_URL" required:"true"`

	SuccessPage string `envconfig:"DTECH_GATEWAY_SUCCESS_PAGE" default:"/checkout/success"`
	FailurePage string `envconfig:"DTECH_GATEWAY_FAILURE_PAGE" default:"/checkout/failure"`
}

type SweeperConfig struct {
	Interval        time.Duration `envconfig:"DTECH_SWEEPER_INTERVAL" default:"1h"`
	LockTTL         time.Duration `envconfig:"DTECH_SWEEPER_LOCK_TTL" default:"2h"`
	PendingOrderTTL time.Duration `envconfig:"DTECH_SWEEPER_PENDING_ORDER_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DTECH_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DTECH_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"DTECH_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic       string `envconfig:"DTECH_PUBSUB_ORDERS_TOPIC" default:"dtech-order-events"`
	NotificationTopic string `envconfig:"DTECH_PUBSUB_NOTIFICATION_TOPIC" default:"dtech-notification-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"DTECH_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DTECH_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"DTECH_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
