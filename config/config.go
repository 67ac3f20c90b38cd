package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	API      APIConfig
	Pricing  PricingConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Checkout CheckoutConfig
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Env  string `env:"ENV" envDefault:"development"`
}

// APIConfig points at the remote storefront REST API.
type APIConfig struct {
	BaseURL string        `env:"STOREFRONT_API_URL" envDefault:"http://localhost:5000/api"`
	Timeout time.Duration `env:"STOREFRONT_API_TIMEOUT" envDefault:"15s"`
}

// PricingConfig holds the fallback rates used when the API does not
// publish its own pricing configuration.
type PricingConfig struct {
	GSTRate     string `env:"PRICING_GST_RATE" envDefault:"0.18"`
	DeliveryFee string `env:"PRICING_DELIVERY_FEE" envDefault:"50"`
	FromServer  bool   `env:"PRICING_FROM_SERVER" envDefault:"true"`
}

// DatabaseConfig is optional; an empty URL disables the checkout journal.
type DatabaseConfig struct {
	URL string `env:"DATABASE_URL"`
}

// RedisConfig is optional; an empty Addr disables the distributed checkout lock.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type KafkaConfig struct {
	Brokers       []string `env:"KAFKA_BROKERS" envSeparator:","`
	TopicCheckout string   `env:"KAFKA_TOPIC_CHECKOUT_EVENTS" envDefault:"checkout-events"`
}

type ObservabilityConfig struct {
	JaegerEndpoint string `env:"JAEGER_ENDPOINT"`
}

type CheckoutConfig struct {
	LockTTL        time.Duration `env:"CHECKOUT_LOCK_TTL" envDefault:"30s"`
	IdempotencyTTL time.Duration `env:"CHECKOUT_IDEMPOTENCY_TTL" envDefault:"24h"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	log.Printf("Config loaded: env=%s, port=%s, api=%s", cfg.Server.Env, cfg.Server.Port, cfg.API.BaseURL)
	return cfg, nil
}
