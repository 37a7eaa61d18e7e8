package cache

import "time"

// Default configuration values. DefaultTTL matches the staleness window the
// member directory tolerates; DefaultRevalidateAfter is the short opt-in
// freshness window used by revalidating reads.
const (
	DefaultTTL             = 10 * time.Minute
	DefaultRevalidateAfter = time.Minute
)

// Config holds the tunables for a Cache.
type Config struct {
	// TTL is the hard expiry for cached entries. An entry older than TTL is
	// refetched on the next Get and removed by the next sweep.
	// Must be greater than 0.
	TTL time.Duration

	// RevalidateAfter is the soft staleness window applied only when a
	// caller passes revalidate=true to Get: entries older than this are
	// refetched even though they are still inside the TTL.
	// Must be greater than 0 and no larger than TTL.
	RevalidateAfter time.Duration

	// Now overrides the clock used for timestamps, expiry checks and sweep
	// scheduling. Nil means time.Now.
	Now func() time.Time
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		TTL:             DefaultTTL,
		RevalidateAfter: DefaultRevalidateAfter,
	}
}

// Validate checks whether the configuration values are valid.
// Returns an error if any configuration parameter is invalid.
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.RevalidateAfter <= 0 {
		return &ConfigError{Field: "RevalidateAfter", Message: "must be greater than 0"}
	}

	if c.RevalidateAfter > c.TTL {
		return &ConfigError{Field: "RevalidateAfter", Message: "must not exceed TTL"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
