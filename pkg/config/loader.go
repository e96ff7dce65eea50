package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Validator is implemented by config structs that check cross-field rules
// after the environment has been parsed.
type Validator interface {
	Validate() error
}

// Load parses environment variables into the provided struct using `env`
// tags. When cfg implements Validator its Validate method runs afterwards.
//
// Example:
//
//	type Config struct {
//	    Port  int    `env:"SEARCH_HTTP_PORT" envDefault:"5000"`
//	    Index string `env:"ELASTICSEARCH_INDEX" envDefault:"products"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
	}
	return nil
}
