package config

import (
	"fmt"

	"genspec/internal/logging"
)

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Validate rejects unknown levels and formats.
func (c LoggingConfig) Validate() error {
	if _, err := logging.ParseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case logging.FormatJSON, logging.FormatText:
		return nil
	}
	return fmt.Errorf("invalid log format %q (valid: %s, %s)", c.Format, logging.FormatJSON, logging.FormatText)
}
