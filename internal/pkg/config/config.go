package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, etc.), security settings
// - default: Values common across all environments (fee rates, timeouts, etc.), standard settings
// -----------------------------------------------------------------------------

type Config struct {
	Server  ServerConfig
	DB      DBConfig
	CORS    CORSConfig
	Log     LogConfig
	JWT     JWTConfig
	Stripe  StripeConfig
	Pricing PricingConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	DBName   string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization,Idempotency-Key"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

type JWTConfig struct {
	Secret   string        `envconfig:"JWT_SECRET" required:"true"`
	Duration time.Duration `envconfig:"JWT_DURATION" default:"24h"`
}

type StripeConfig struct {
	SecretKey     string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	WebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	Currency      string `envconfig:"STRIPE_CURRENCY" default:"usd"`
}

// PricingConfig feeds the pricing engine explicitly instead of ambient globals,
// so tests can vary fee rates per case.
type PricingConfig struct {
	ServiceFeeRate         float64 `envconfig:"PRICING_SERVICE_FEE_RATE" default:"0.10"`
	PlatformFeePercent     float64 `envconfig:"PRICING_PLATFORM_FEE_PERCENT" default:"0.10"`
	ProcessorFeePercent    float64 `envconfig:"PRICING_PROCESSOR_FEE_PERCENT" default:"0.029"`
	ProcessorFixedFeeCents int64   `envconfig:"PRICING_PROCESSOR_FIXED_FEE_CENTS" default:"30"`
	DeliveryFeeCents       int64   `envconfig:"PRICING_DELIVERY_FEE_CENTS" default:"1500"`
	InsuranceBasicCents    int64   `envconfig:"PRICING_INSURANCE_BASIC_CENTS" default:"500"`
	InsurancePremiumCents  int64   `envconfig:"PRICING_INSURANCE_PREMIUM_CENTS" default:"1200"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889",
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433",
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
		},
		Log: LogConfig{
			Level: "error",
		},
		JWT: JWTConfig{
			Secret:   "test-secret",
			Duration: time.Hour,
		},
		Stripe: StripeConfig{
			SecretKey:     "sk_test_dummy",
			WebhookSecret: "whsec_dummy",
			Currency:      "usd",
		},
		Pricing: PricingConfig{
			ServiceFeeRate:         0.10,
			PlatformFeePercent:     0.10,
			ProcessorFeePercent:    0.029,
			ProcessorFixedFeeCents: 30,
			DeliveryFeeCents:       1500,
			InsuranceBasicCents:    500,
			InsurancePremiumCents:  1200,
		},
	}
}
