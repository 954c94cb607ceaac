package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config contains formflow runtime parameters.
type Config struct {
	Log       Log       `envPrefix:"LOG_"`
	Locale    string    `env:"LOCALE" envDefault:"pt-BR" validate:"required,bcp47_language_tag"`
	Lookup    Lookup    `envPrefix:"LOOKUP_"`
	Sink      Sink      `envPrefix:"SINK_"`
	Directory Directory `envPrefix:"DIRECTORY_"`
}

// Log contains logging parameters.
type Log struct {
	Level  string `env:"LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Format string `env:"FORMAT" envDefault:"text" validate:"oneof=text json"`
}

// Lookup contains postal code service parameters.
type Lookup struct {
	BaseURL string        `env:"BASE_URL" envDefault:"https://viacep.com.br/ws" validate:"required,url"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s" validate:"gt=0"`
}

// Sink contains submission parameters. An empty URL prints payloads instead
// of posting them.
type Sink struct {
	URL string `env:"URL" validate:"omitempty,url"`
}

// Directory contains the development directory server parameters.
type Directory struct {
	Addr    string        `env:"ADDR" envDefault:":8089" validate:"required"`
	Latency time.Duration `env:"LATENCY" envDefault:"0s" validate:"gte=0"`
}

const prefix = "FORMFLOW_"

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewConfig loads configuration from FORMFLOW_* environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: prefix}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
