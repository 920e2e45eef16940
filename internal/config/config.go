package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	// RedisURL is optional; sessions fall back to the in-memory store
	RedisURL string `env:"REDIS_URL"`
	// KafkaBrokers is optional; event publishing is disabled when empty
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	JWTSecret string `env:"JWT_SECRET"`

	// collaborators the flow boundary redirects to
	CartURL string `env:"CART_URL" envDefault:"/cart"`
	AuthURL string `env:"AUTH_URL" envDefault:"/login"`

	Pricing    Pricing    `envPrefix:"PRICING_"`
	Checkout   Checkout   `envPrefix:"CHECKOUT_"`
	Placetopay Placetopay `envPrefix:"PLACETOPAY_"`
	Braintree  Braintree  `envPrefix:"BRAINTREE_"`
}

type Placetopay struct {
	BaseAPIURL string `env:"BASE_API_URL"`
	Login      string `env:"LOGIN"`
	SecretKey  string `env:"SECRET_KEY"`
}

type Braintree struct {
	Environment string `env:"ENVIRONMENT" envDefault:"sandbox"`
	MerchantID  string `env:"MERCHANT_ID"`
	PublicKey   string `env:"PUBLIC_KEY"`
	PrivateKey  string `env:"PRIVATE_KEY"`
}

type Pricing struct {
	IVARate                string `env:"IVA_RATE" envDefault:"0.19"`
	FreeShippingThreshold  int64  `env:"FREE_SHIPPING_THRESHOLD" envDefault:"200000"`
	BaseShippingCost       int64  `env:"BASE_SHIPPING_COST" envDefault:"15000"`
	PlatformCommissionRate string `env:"PLATFORM_COMMISSION_RATE" envDefault:"0.12"`
}

type Checkout struct {
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"2h"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
