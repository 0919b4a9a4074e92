package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type App struct {
	// DB
	PGTourDSN string `envconfig:"PG_TOUR_DSN" required:"true"`
	// HTTP
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	// JWT
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	// Payments
	StripeSecretKey     string  `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	StripeWebhookSecret string  `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	Currency            string  `envconfig:"CURRENCY" default:"eur"`
	PlatformRate        float64 `envconfig:"PLATFORM_RATE" default:"0.10"`
	// Reservations
	ReservationTTL time.Duration `envconfig:"RESERVATION_TTL" default:"15m"`
	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"60s"`
	// RabbitMQ for notification events; empty URL disables publishing
	RabbitURL      string `envconfig:"RABBIT_URL"`
	NotifyExchange string `envconfig:"NOTIFY_EXCHANGE" default:"order.exchange"`
	NotifyQueue    string `envconfig:"NOTIFY_QUEUE" default:"notification.order.q"`
	// Tracing
	EnableTracing bool `envconfig:"ENABLE_TRACING" default:"false"`
}

func Load() (App, error) {
	var c App
	err := envconfig.Process("", &c)
	return c, err
}
