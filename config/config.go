// Package config loads runtime configuration from the environment.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime knob. Values come from FREIGHT_* environment
// variables (a .env file is loaded by the entrypoint before this runs).
type Config struct {
	Addr         string        `envconfig:"ADDR" default:":8080"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`

	DBPath string `envconfig:"DB_PATH" default:"freight.db"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://localhost:8080"`

	// AuditBookingMarking turns on audit entries for the booking-invoiced
	// marking, which the system historically left unaudited.
	AuditBookingMarking bool `envconfig:"AUDIT_BOOKING_MARKING" default:"false"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`
	LogOutput string `envconfig:"LOG_OUTPUT" default:"stdout"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("FREIGHT", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
