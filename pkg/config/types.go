// Package config loads the process-level configuration for a celerity-core
// host and exposes the discovery surface for external configuration store
// backends. The core never talks to a store itself (see pkg/config.Store);
// it only knows how to find out which one a host should use.
package config

// ProcessConfig holds the configuration read from the process environment.
// It is intentionally small: celerity-core does not own a scheduler,
// a database, or any wire protocol, so there is nothing here beyond the
// logging knobs a host needs to boot. The config-backend discovery fields
// (CELERITY_CONFIG_STORE_ID and friends) are read separately by
// discovery.go's Discover, since they describe an external store the core
// never talks to itself.
type ProcessConfig struct {
	Logging LoggingConfig `envconfig:"LOGGING"`
}

// LoggingConfig controls the process-wide logger built by pkg/logging.
type LoggingConfig struct {
	Level      string `envconfig:"LEVEL" default:"info"`
	Format     string `envconfig:"FORMAT" default:"json"`
	Output     string `envconfig:"OUTPUT" default:"stdout"`
	EnableFile bool   `envconfig:"ENABLE_FILE" default:"false"`
	FilePath   string `envconfig:"FILE_PATH" default:""`
}
