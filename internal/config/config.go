package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type HTTPServer struct {
	Addr            string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

type Database struct {
	Host            string        `yaml:"PG_HOST" env:"PG_HOST" env-default:"localhost"`
	Port            string        `yaml:"PG_PORT" env:"PG_PORT" env-default:"5432"`
	User            string        `yaml:"PG_USER" env:"PG_USER" env-required:"true"`
	Password        string        `yaml:"PG_PASSWORD" env:"PG_PASSWORD" env-required:"true"`
	Name            string        `yaml:"PG_DBNAME" env:"PG_DBNAME" env-required:"true"`
	SSLMode         string        `yaml:"PG_SSLMODE" env:"PG_SSLMODE" env-default:"require"`
	MaxOpenConns    int           `yaml:"MAX_OPEN_CONNS" env:"PG_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int           `yaml:"MAX_IDLE_CONNS" env:"PG_MAX_IDLE_CONNS" env-default:"10"`
	ConnMaxLifetime time.Duration `yaml:"CONN_MAX_LIFETIME" env:"PG_CONN_MAX_LIFETIME" env-default:"30m"`
	ConnMaxIdleTime time.Duration `yaml:"CONN_MAX_IDLE_TIME" env:"PG_CONN_MAX_IDLE_TIME" env-default:"5m"`
	AutoMigrate     bool          `yaml:"AUTO_MIGRATE" env:"PG_AUTO_MIGRATE"`
}

type RedisConnect struct {
	Host     string `yaml:"REDIS_HOST" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"REDIS_PORT" env:"REDIS_PORT" env-default:"6379"`
	Username string `yaml:"REDIS_USER" env:"REDIS_USER" env-required:"true"`
	Password string `yaml:"REDIS_PASSWORD" env:"REDIS_PASSWORD" env-required:"true"`
	DB       int    `yaml:"REDIS_DB" env:"REDIS_DB" env-default:"0"`
}

type RateConfig struct {
	MaxAttempts int64         `yaml:"MAX_ATTEMPTS" env:"MAX_ATTEMPTS" env-default:"5"`
	WindowSize  time.Duration `yaml:"WINDOW_SIZE" env:"WINDOW_SIZE" env-default:"15s"`
}

type Security struct {
	JWTKey          string        `yaml:"JWT_KEY" env:"JWT_KEY" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"ACCESS_TOKEN_TTL" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"REFRESH_TOKEN_TTL" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	CookieSecure    bool          `yaml:"COOKIE_SECURE" env:"COOKIE_SECURE"`
}

type Gateway struct {
	Provider           string        `yaml:"PROVIDER" env:"GATEWAY_PROVIDER" env-default:"razorpay"`
	Timeout            time.Duration `yaml:"TIMEOUT" env:"GATEWAY_TIMEOUT" env-default:"10s"`
	MaxPaymentAttempts int           `yaml:"MAX_PAYMENT_ATTEMPTS" env:"GATEWAY_MAX_PAYMENT_ATTEMPTS" env-default:"3"`
	BreakerFailures    uint32        `yaml:"BREAKER_FAILURES" env:"GATEWAY_BREAKER_FAILURES" env-default:"5"`
	BreakerOpenTimeout time.Duration `yaml:"BREAKER_OPEN_TIMEOUT" env:"GATEWAY_BREAKER_OPEN_TIMEOUT" env-default:"30s"`
}

type Razorpay struct {
	KeyID         string `yaml:"RAZORPAY_KEY_ID" env:"RAZORPAY_KEY_ID" env-default:""`
	KeySecret     string `yaml:"RAZORPAY_KEY_SECRET" env:"RAZORPAY_KEY_SECRET" env-default:""`
	WebhookSecret string `yaml:"RAZORPAY_WEBHOOK_SECRET" env:"RAZORPAY_WEBHOOK_SECRET" env-default:""`
	BaseURL       string `yaml:"RAZORPAY_BASE_URL" env:"RAZORPAY_BASE_URL" env-default:"https://api.razorpay.com/v1"`
}

type Stripe struct {
	APIKey         string `yaml:"STRIPE_API_KEY" env:"STRIPE_API_KEY" env-default:""`
	PublishableKey string `yaml:"STRIPE_PUBLISHABLE_KEY" env:"STRIPE_PUBLISHABLE_KEY" env-default:""`
	WebhookSecret  string `yaml:"STRIPE_WEBHOOK_SECRET" env:"STRIPE_WEBHOOK_SECRET" env-default:""`
}

// Pricing amounts are in minor units of Currency.
type Pricing struct {
	Currency              string `yaml:"CURRENCY" env:"PRICING_CURRENCY" env-default:"INR"`
	TaxRateBasisPoints    int64  `yaml:"TAX_RATE_BPS" env:"PRICING_TAX_RATE_BPS" env-default:"1800"`
	TaxBasis              string `yaml:"TAX_BASIS" env:"PRICING_TAX_BASIS" env-default:"after_discount"`
	FreeShippingThreshold int64  `yaml:"FREE_SHIPPING_THRESHOLD" env:"PRICING_FREE_SHIPPING_THRESHOLD" env-default:"50000"`
	FlatShipping          int64  `yaml:"FLAT_SHIPPING" env:"PRICING_FLAT_SHIPPING" env-default:"4900"`
}

type SendGrid struct {
	APIKey    string `yaml:"API_KEY" env:"SENDGRID_API_KEY" env-default:""`
	FromEmail string `yaml:"FROM_EMAIL" env:"SENDGRID_FROM_EMAIL" env-default:"orders@example.com"`
	FromName  string `yaml:"FROM_NAME" env:"SENDGRID_FROM_NAME" env-default:"Storefront"`
}

type Otel struct {
	Enabled          bool    `yaml:"ENABLED" env:"OTEL_ENABLED" env-default:"false"`
	ServiceName      string  `yaml:"SERVICE_NAME" env:"OTEL_SERVICE_NAME" env-default:"storefront"`
	ExporterEndpoint string  `yaml:"EXPORTER_ENDPOINT" env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"http://localhost:4318/v1/traces"`
	SamplerRatio     float64 `yaml:"SAMPLER_RATIO" env:"OTEL_SAMPLER_RATIO" env-default:"1.0"`
}

type CacheConfig struct {
	Namespace  string        `yaml:"namespace" env:"CACHE_NAMESPACE" env-default:"storefront"`
	DefaultTTL time.Duration `yaml:"default_ttl" env:"CACHE_DEFAULT_TTL" env-default:"5m"`
	CouponTTL  time.Duration `yaml:"coupon_ttl" env:"CACHE_COUPON_TTL" env-default:"1m"`
}

type RefundWorker struct {
	PollInterval time.Duration `yaml:"POLL_INTERVAL" env:"REFUND_POLL_INTERVAL" env-default:"30s"`
	BatchSize    int           `yaml:"BATCH_SIZE" env:"REFUND_BATCH_SIZE" env-default:"20"`
}

type Config struct {
	Env          string `yaml:"env" env:"ENV" env-required:"true"`
	HTTPServer   `yaml:"http_server"`
	Database     Database     `yaml:"database"`
	RedisConnect RedisConnect `yaml:"redis"`
	RateConfig   RateConfig   `yaml:"rateConfig"`
	Security     Security     `yaml:"security"`
	Gateway      Gateway      `yaml:"gateway"`
	Razorpay     Razorpay     `yaml:"razorpay"`
	Stripe       Stripe       `yaml:"stripe"`
	Pricing      Pricing      `yaml:"pricing"`
	SendGrid     SendGrid     `yaml:"sendgrid"`
	Otel         Otel         `yaml:"otel"`
	Cache        CacheConfig  `yaml:"cache"`
	RefundWorker RefundWorker `yaml:"refund_worker"`
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "path to the config file")
		flag.Parse()

		configPath = *flags
	}

	if configPath == "" {
		configPath = "config/local.yaml"
	}

	cfg, err := LoadConfigFromPath(configPath)
	if err != nil {
		log.Fatalf("can not read config: %s", err.Error())
	}

	return cfg
}

func LoadConfigFromPath(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("can not read config file: %w", err)
	}

	return &cfg, nil
}

func (d *Database) GetDSN() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

func (r *RedisConnect) GetDSN() string {
	return fmt.Sprintf("redis://%s:%s@%s:%s", r.Username, r.Password, r.Host, r.Port)
}
