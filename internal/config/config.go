package config

import (
	"os"
	"time"
)

// Config holds all application configuration
type Config struct {
	// APIBaseURL is the root of the remote Bakra backend.
	APIBaseURL string
	// HTTPTimeout bounds every remote call.
	HTTPTimeout time.Duration
	// PollInterval is how often the alerts view re-reads pending requests
	// while it is the active view.
	PollInterval time.Duration
	// PollJitter is added (0..PollJitter) to each poll tick so that several
	// clients do not line up against the backend.
	PollJitter time.Duration
	// SettleDelay is the wait after a successful debt resolution before the
	// cache is refreshed. The backend settles balances asynchronously, so an
	// immediate read can still return pre-payment values. Tunable, not a
	// guarantee.
	SettleDelay time.Duration
	// SuccessMessageTTL is how long transient success messages stay visible.
	SuccessMessageTTL time.Duration
	// Port is the dev server listen port.
	Port string
	// DevSettleLag makes the dev server apply mutations late, mimicking the
	// hosted backend's asynchronous settlement. Zero applies immediately.
	DevSettleLag time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		APIBaseURL:        getEnv("BAKRA_API_URL", "http://localhost:8080"),
		HTTPTimeout:       getDuration("BAKRA_HTTP_TIMEOUT", 10*time.Second),
		PollInterval:      getDuration("BAKRA_POLL_INTERVAL", 3*time.Second),
		PollJitter:        getDuration("BAKRA_POLL_JITTER", 500*time.Millisecond),
		SettleDelay:       getDuration("BAKRA_SETTLE_DELAY", 1500*time.Millisecond),
		SuccessMessageTTL: getDuration("BAKRA_SUCCESS_TTL", 3*time.Second),
		Port:              getEnv("PORT", "8080"),
		DevSettleLag:      getDuration("BAKRA_DEV_SETTLE_LAG", 0),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getDuration retrieves a duration environment variable or returns a default
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
