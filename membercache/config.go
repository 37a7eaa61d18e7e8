package membercache

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/avid-im/go-member-cache/cache"
)

// Default configuration values.
const (
	DefaultTTL             = cache.DefaultTTL
	DefaultRevalidateAfter = cache.DefaultRevalidateAfter
	DefaultQueryInterval   = time.Minute
	DefaultPageSize        = 100
)

// Config holds the tunables for a MemberCache.
type Config struct {
	// TTL is the hard expiry for cached members, applied to every domain's
	// cache.
	TTL time.Duration

	// RevalidateAfter is the soft staleness window used by revalidating
	// reads (GetMembers with revalidate=true).
	RevalidateAfter time.Duration

	// QueryInterval bounds how long a recorded member-list query keeps
	// satisfying identical queries from memory before the engine goes back
	// to the store.
	QueryInterval time.Duration

	// PageSize is the ceiling for every remote page, including the seed
	// fetch that populates a domain cache on first access. Requested limits
	// above it are clamped.
	PageSize int
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		TTL:             DefaultTTL,
		RevalidateAfter: DefaultRevalidateAfter,
		QueryInterval:   DefaultQueryInterval,
		PageSize:        DefaultPageSize,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.RevalidateAfter, validation.Required, validation.Min(time.Second), validation.Max(c.TTL)),
		validation.Field(&c.QueryInterval, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.PageSize, validation.Required, validation.Min(1), validation.Max(1000)),
	)
}
