// Package config loads process configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every env tag, so a field tagged HTTP_ADDR reads
// HEALING_HOME_HTTP_ADDR.
const EnvPrefix = "HEALING_HOME_"

// ParseEnv loads prefixed environment variables into target.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
