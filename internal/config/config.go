package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all environment-driven settings for the relay.
type Config struct {
	Port         string `envconfig:"PORT" default:"3000"`
	DBDSN        string `envconfig:"DB_DSN" default:""`
	AMQPURL      string `envconfig:"AMQP_URL" default:""`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"chat_events"`

	// RetentionWindow is how long messages live before the sweeper removes
	// them; SweepInterval is how often the sweeper runs.
	RetentionWindow time.Duration `envconfig:"RETENTION_WINDOW" default:"48h"`
	SweepInterval   time.Duration `envconfig:"SWEEP_INTERVAL" default:"30m"`

	// HistoryLimit caps the join snapshot size.
	HistoryLimit int `envconfig:"HISTORY_LIMIT" default:"100"`

	Environment       string `envconfig:"ENVIRONMENT" default:"development"`
	EnableDebugRoutes bool   `envconfig:"ENABLE_DEBUG_ROUTES" default:"false"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
