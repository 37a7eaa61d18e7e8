package di

import (
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/avid-im/go-member-cache/internal/bunstore"
	"github.com/avid-im/go-member-cache/membercache"
)

// Config holds everything a Container needs to assemble a member cache.
type Config struct {
	// Cache configures the member cache itself.
	Cache membercache.Config

	// Logger is used by every assembled component. When nil, Development
	// selects between a zap development logger and a no-op one.
	Logger *zap.Logger

	// Development builds a human-readable console logger when no Logger is
	// provided. Meant for examples and local runs.
	Development bool
}

// DefaultConfig returns a Config with the default cache tuning and no
// logging.
func DefaultConfig() Config {
	return Config{Cache: membercache.DefaultConfig()}
}

// resolveLogger picks the logger the container components share.
func (c Config) resolveLogger() (*zap.Logger, error) {
	if c.Logger != nil {
		return c.Logger, nil
	}
	if c.Development {
		return zap.NewDevelopment()
	}
	return zap.NewNop(), nil
}

// Container wires a MemberCache together with its store and logger. It
// manages singleton instances so that every caller shares the same domain
// caches.
type Container struct {
	store  membercache.Store
	cache  *membercache.MemberCache
	logger *zap.Logger
	config Config
}

// NewContainer creates a container around an existing store implementation.
func NewContainer(store membercache.Store, config Config) (*Container, error) {
	logger, err := config.resolveLogger()
	if err != nil {
		return nil, err
	}
	config.Logger = logger

	memberCache, err := membercache.New(store, config.Cache, logger)
	if err != nil {
		return nil, err
	}

	return &Container{
		store:  store,
		cache:  memberCache,
		logger: logger,
		config: config,
	}, nil
}

// NewContainerWithDefaults creates a container around store using default
// configuration. This is a convenience constructor for typical use cases
// where custom configuration is not required.
func NewContainerWithDefaults(store membercache.Store) (*Container, error) {
	return NewContainer(store, DefaultConfig())
}

// NewBunContainer creates a container whose store persists membership
// through the given bun database handle.
func NewBunContainer(db *bun.DB, config Config) (*Container, error) {
	logger, err := config.resolveLogger()
	if err != nil {
		return nil, err
	}
	config.Logger = logger

	return NewContainer(bunstore.New(db, logger), config)
}

// MemberCache returns the singleton member cache instance.
func (c *Container) MemberCache() *membercache.MemberCache {
	return c.cache
}

// Store returns the store the member cache reads from. This allows access to
// the storage layer for seeding and administration.
func (c *Container) Store() membercache.Store {
	return c.store
}

// Logger returns the logger shared by the container's components.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() Config {
	return c.config
}
