package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Prefix is prepended to every environment variable name declared in a
// config struct tag.
const Prefix = "STORYDECK_"

// ParseEnv loads configuration from STORYDECK_-prefixed environment
// variables.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: Prefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
