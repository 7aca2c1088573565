package config

import "fmt"

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
}

var validLogFormats = map[string]bool{
	"json": true, "text": true, "console": true,
}

// Validate checks that the loaded configuration is internally consistent.
func (c *ProcessConfig) Validate() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging format: %q", c.Logging.Format)
	}
	if c.Logging.EnableFile && c.Logging.FilePath == "" {
		return fmt.Errorf("logging file path is required when ENABLE_FILE is set")
	}
	return nil
}
