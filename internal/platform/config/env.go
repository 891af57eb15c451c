// Package config loads service configuration from the environment and
// provides the fatal-exit helper shared by the CLI entry points.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv populates target from the environment variables named by its
// `env` struct tags, applying `envDefault` values for unset variables.
func ParseEnv(target any) error {
	if target == nil {
		return errors.New("config target is required")
	}
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
