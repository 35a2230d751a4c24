package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into cfg, which must be a pointer to a
// struct using `env` tags:
//
//	type Config struct {
//	    Port   int    `env:"HTTP_PORT" envDefault:"8080"`
//	    APIKey string `env:"CATALOG_API_KEY"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
