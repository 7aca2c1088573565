package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StoreConfig is what a host learns from the environment about which
// config-store backend to talk to, before it ever calls Store.Fetch.
type StoreConfig struct {
	// StoreID identifies the store instance (e.g. an SSM parameter path or
	// a Secrets Manager secret id). Per-namespace overrides win over this.
	StoreID string

	// StoreKind names the backend implementation a host should construct
	// (e.g. "ssm", "secretsmanager", "env"). Empty means "host decides".
	StoreKind string

	// RefreshInterval is how often the host should re-fetch. NoRefresh (0)
	// means never refresh; it is only ever returned when the environment
	// variable is present and explicitly "0".
	RefreshInterval time.Duration

	// RefreshIntervalIsDefault is true when CELERITY_CONFIG_REFRESH_INTERVAL_MS
	// was absent and RefreshInterval was filled in with the 30s default.
	// Cloud-extension-cached backends use this to mean "never refresh"
	// instead of the generic default -- that decision belongs to the host,
	// this flag just tells it which case it is in.
	RefreshIntervalIsDefault bool

	// Runtime is CELERITY_RUNTIME (e.g. "lambda", "local").
	Runtime string

	// Platform is CELERITY_PLATFORM (e.g. "aws", "azure", "local").
	Platform string
}

// NamespaceStoreID returns the store id override for a named configuration
// namespace, read from CELERITY_CONFIG_<NAMESPACE>_STORE_ID, falling back
// to StoreID when no override is present.
func (sc StoreConfig) NamespaceStoreID(namespace string) string {
	key := fmt.Sprintf("CELERITY_CONFIG_%s_STORE_ID", strings.ToUpper(namespace))
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return sc.StoreID
}

// Discover reads the config-backend discovery surface from the process
// environment. It performs no I/O beyond environment lookups -- the actual
// store backend is an external collaborator (pkg/config.Store).
func Discover() (StoreConfig, error) {
	sc := StoreConfig{
		StoreID:   os.Getenv("CELERITY_CONFIG_STORE_ID"),
		StoreKind: os.Getenv("CELERITY_CONFIG_STORE_KIND"),
		Runtime:   os.Getenv("CELERITY_RUNTIME"),
		Platform:  os.Getenv("CELERITY_PLATFORM"),
	}

	raw, present := os.LookupEnv("CELERITY_CONFIG_REFRESH_INTERVAL_MS")
	switch {
	case !present:
		sc.RefreshInterval = defaultRefreshInterval
		sc.RefreshIntervalIsDefault = true
	default:
		ms, err := strconv.Atoi(raw)
		if err != nil {
			return StoreConfig{}, fmt.Errorf("invalid CELERITY_CONFIG_REFRESH_INTERVAL_MS %q: %w", raw, err)
		}
		if ms < 0 {
			return StoreConfig{}, fmt.Errorf("CELERITY_CONFIG_REFRESH_INTERVAL_MS must be >= 0, got %d", ms)
		}
		sc.RefreshInterval = time.Duration(ms) * time.Millisecond
	}

	return sc, nil
}
