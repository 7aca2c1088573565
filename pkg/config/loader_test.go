package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearLoaderEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"CELERITY_LOGGING_LEVEL",
		"CELERITY_LOGGING_FORMAT",
		"CELERITY_LOGGING_OUTPUT",
		"CELERITY_LOGGING_ENABLE_FILE",
		"CELERITY_LOGGING_FILE_PATH",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearLoaderEnv(t)

		cfg, err := Load("CELERITY")
		require.NoError(t, err)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "json", cfg.Logging.Format)
		assert.Equal(t, "stdout", cfg.Logging.Output)
		assert.False(t, cfg.Logging.EnableFile)
	})

	t.Run("overrides from environment", func(t *testing.T) {
		clearLoaderEnv(t)
		os.Setenv("CELERITY_LOGGING_LEVEL", "debug")
		os.Setenv("CELERITY_LOGGING_FORMAT", "console")

		cfg, err := Load("CELERITY")
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "console", cfg.Logging.Format)
	})

	t.Run("invalid level fails validation", func(t *testing.T) {
		clearLoaderEnv(t)
		os.Setenv("CELERITY_LOGGING_LEVEL", "verbose")

		_, err := Load("CELERITY")
		require.Error(t, err)
	})

	t.Run("enable file without path fails validation", func(t *testing.T) {
		clearLoaderEnv(t)
		os.Setenv("CELERITY_LOGGING_ENABLE_FILE", "true")

		_, err := Load("CELERITY")
		require.Error(t, err)
	})
}
