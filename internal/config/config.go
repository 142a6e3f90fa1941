package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ----------------------------
	// Queue
	// ----------------------------
	QueueMaxAttempts int           `envconfig:"QUEUE_MAX_ATTEMPTS" default:"3"`
	QueueRetryDelay  time.Duration `envconfig:"QUEUE_RETRY_DELAY" default:"5s"`

	// ----------------------------
	// Worker ticks
	// ----------------------------
	IngestTick   time.Duration `envconfig:"INGEST_TICK" default:"5s"`
	CampaignTick time.Duration `envconfig:"CAMPAIGN_TICK" default:"10s"`
	DeliveryTick time.Duration `envconfig:"DELIVERY_TICK" default:"3s"`
	ReceiptTick  time.Duration `envconfig:"RECEIPT_TICK" default:"2s"`

	// ----------------------------
	// Receipt batching
	// ----------------------------
	ReceiptBatchSize int           `envconfig:"RECEIPT_BATCH_SIZE" default:"10"`
	ReceiptBatchAge  time.Duration `envconfig:"RECEIPT_BATCH_AGE" default:"5s"`

	// ----------------------------
	// Delivery gateway
	// ----------------------------
	GatewayTimeout   time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"30s"`
	RateLimit        int           `envconfig:"RATE_LIMIT" default:"10"`
	VendorMode       string        `envconfig:"VENDOR_MODE" default:"simulated"`
	VendorAcceptRate float64       `envconfig:"VENDOR_ACCEPT_RATE" default:"0.9"`

	// ----------------------------
	// SMTP vendor
	// ----------------------------
	SMTPHost string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPFrom string `envconfig:"SMTP_FROM" default:"noreply@campaignpulse.io"`

	// ----------------------------
	// HTTP API
	// ----------------------------
	APIPort string `envconfig:"API_PORT" default:"8080"`

	// ----------------------------
	// Metrics
	// ----------------------------
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`

	// ----------------------------
	// Database (in-memory only when empty)
	// ----------------------------
	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
}

func Load() (*Config, error) {
	// Missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	var cfg Config
	err := envconfig.Process("", &cfg)
	return &cfg, err
}
