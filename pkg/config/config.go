package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string     `yaml:"env" env:"ENV" env-default:"local"`
	LogLevel   string     `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	HTTP       HTTP       `yaml:"http"`
	Metrics    Metrics    `yaml:"metrics"`
	Postgres   PG         `yaml:"postgres"`
	Redis      Redis      `yaml:"redis"`
	Kafka      Kafka      `yaml:"kafka"`
	JWT        JWT        `yaml:"jwt"`
	Razorpay   Razorpay   `yaml:"razorpay"`
	Shiprocket Shiprocket `yaml:"shiprocket"`
	SMTP       SMTP       `yaml:"smtp"`
	Checkout   Checkout   `yaml:"checkout"`
	Limiter    Limiter    `yaml:"limiter"`
	Tracing    Tracing    `yaml:"tracing"`
}

type HTTP struct {
	Port         string        `yaml:"port" env:"HTTP_PORT" env-default:":5000"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"10s"`
	BodyLimit    int           `yaml:"body_limit" env-default:"4194304"`
	CORSOrigins  string        `yaml:"cors_origins" env:"CORS_ORIGINS" env-default:"*"`
}

type Metrics struct {
	Port string `yaml:"port" env:"METRICS_PORT" env-default:":9091"`
}

type PG struct {
	URL             string        `yaml:"url" env:"DB_URL"`
	MaxConns        int32         `yaml:"max_conns" env-default:"10"`
	MinConns        int32         `yaml:"min_conns" env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env-default:"1h"`
	PingAttempts    int           `yaml:"ping_attempts" env:"DB_PING_ATTEMPTS" env-default:"5"`
	Migrate         bool          `yaml:"migrate" env:"DB_MIGRATE" env-default:"false"`
	// file:// URL of the migrations directory
	MigrationsURL string `yaml:"migrations_url" env:"DB_MIGRATIONS_URL" env-default:"file://migrations"`
}

type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	CacheTTL time.Duration `yaml:"cache_ttl" env-default:"10m"`
}

type Kafka struct {
	Brokers       []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	OrderTopic    string   `yaml:"order_topic" env-default:"order_events"`
	ConsumerGroup string   `yaml:"consumer_group" env-default:"notifier-group"`
}

type JWT struct {
	Secret   string        `yaml:"secret" env:"JWT_SECRET"`
	TokenTTL time.Duration `yaml:"token_ttl" env:"JWT_TTL" env-default:"168h"`
}

type Razorpay struct {
	BaseURL       string        `yaml:"base_url" env:"RAZORPAY_BASE_URL" env-default:"https://api.razorpay.com"`
	KeyID         string        `yaml:"key_id" env:"RAZORPAY_KEY_ID"`
	KeySecret     string        `yaml:"key_secret" env:"RAZORPAY_KEY_SECRET"`
	WebhookSecret string        `yaml:"webhook_secret" env:"RAZORPAY_WEBHOOK_SECRET"`
	Timeout       time.Duration `yaml:"timeout" env-default:"10s"`
}

type Shiprocket struct {
	BaseURL        string        `yaml:"base_url" env:"SHIPROCKET_BASE_URL" env-default:"https://apiv2.shiprocket.in"`
	Email          string        `yaml:"email" env:"SHIPROCKET_EMAIL"`
	Password       string        `yaml:"password" env:"SHIPROCKET_PASSWORD"`
	PickupLocation string        `yaml:"pickup_location" env:"SHIPROCKET_PICKUP_LOCATION" env-default:"Primary"`
	WebhookToken   string        `yaml:"webhook_token" env:"SHIPROCKET_WEBHOOK_TOKEN"`
	Timeout        time.Duration `yaml:"timeout" env-default:"15s"`
}

type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User     string `yaml:"user" env:"SMTP_USER"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM"`
	StoreURL string `yaml:"store_url" env:"STORE_URL" env-default:"http://localhost:3000"`
}

type Checkout struct {
	TaxRatePercent        float64 `yaml:"tax_rate_percent" env-default:"0"`
	ShippingFee           int64   `yaml:"shipping_fee" env-default:"0"`
	FreeShippingThreshold int64   `yaml:"free_shipping_threshold" env-default:"0"`
	Currency              string  `yaml:"currency" env-default:"INR"`
}

type Limiter struct {
	Max        int           `yaml:"max" env-default:"60"`
	Expiration time.Duration `yaml:"expiration" env-default:"1m"`
}

type Tracing struct {
	Endpoint string `yaml:"endpoint" env:"OTLP_ENDPOINT" env-default:"localhost:4318"`
	// fraction of new root traces kept; children follow their parent
	SampleRatio float64 `yaml:"sample_ratio" env:"OTLP_SAMPLE_RATIO" env-default:"1"`
}

const defaultConfigPath = "./config/local.yaml"

// Path returns $CONFIG_PATH, or the local config when it is unset.
func Path() string {
	if p := strings.TrimSpace(os.Getenv("CONFIG_PATH")); p != "" {
		return p
	}
	return defaultConfigPath
}

func MustLoad() *Config {
	configPath := Path()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("error reading config: %v", err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
