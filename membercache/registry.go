package membercache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/avid-im/go-member-cache/cache"
)

// queryRecord remembers the most recent remote execution of one query
// signature. total is the match count reported by that execution, -1 when
// the execution did not count (unpaginated queries never do).
type queryRecord struct {
	ranAt time.Time
	total int
}

// domainCache is one domain's slice of the subsystem: the TTL cache holding
// its members plus the ledger of recently executed list queries. The mutex
// guards the ledger only; the member cache synchronizes itself.
type domainCache struct {
	members *cache.Cache[string, Member]

	mu      sync.Mutex
	queries map[string]queryRecord
}

// MemberCache caches the member directories of any number of domains. Each
// domain gets its own TTL cache, created lazily on first access and seeded
// with the first page of members, plus a query ledger that decides whether a
// member-list query runs remotely or against the cached population.
//
// A MemberCache is an explicit dependency: construct one at process start
// and hand it to consumers. It is safe for concurrent use.
type MemberCache struct {
	store  Store
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	domains  *xsync.MapOf[string, *domainCache]
	createMu sync.Mutex
}

// New constructs a MemberCache backed by store. A nil logger disables
// logging.
func New(store Store, cfg Config, logger *zap.Logger) (*MemberCache, error) {
	if store == nil {
		return nil, errors.New("membercache: store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("membercache: invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MemberCache{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		domains: xsync.NewMapOf[string, *domainCache](),
	}, nil
}

// DomainCount reports how many domain caches currently exist.
func (mc *MemberCache) DomainCount() int {
	return mc.domains.Size()
}

// domain returns domainID's cache, creating and seeding it on first access.
//
// Lookups of an existing domain are lock-free map reads. Creation takes one
// mutex shared across all domains and holds it through the seed fetch, so at
// most one initialization runs per domain and a burst of first accesses
// performs a single remote query; concurrent first accesses to other domains
// queue behind it, which is accepted for a path that runs once per domain.
// Nothing is published when the seed fetch fails, leaving the next caller to
// retry.
func (mc *MemberCache) domain(ctx context.Context, domainID string) (*domainCache, error) {
	if dc, ok := mc.domains.Load(domainID); ok {
		return dc, nil
	}

	mc.createMu.Lock()
	defer mc.createMu.Unlock()

	if dc, ok := mc.domains.Load(domainID); ok {
		return dc, nil
	}

	members, err := cache.New[string, Member](mc.memberFetcher(domainID), cache.Config{
		TTL:             mc.cfg.TTL,
		RevalidateAfter: mc.cfg.RevalidateAfter,
		Now:             mc.now,
	}, mc.logger)
	if err != nil {
		return nil, err
	}

	seed, _, err := mc.store.QueryDomainMembers(ctx, domainID, MemberQuery{
		Limit: mc.cfg.PageSize,
	})
	if err != nil {
		return nil, err
	}
	if err := members.Add(memberIDs(seed), seed); err != nil {
		return nil, err
	}

	dc := &domainCache{
		members: members,
		queries: map[string]queryRecord{
			querySignature(ListOptions{}, mc.cfg.PageSize): {ranAt: mc.now(), total: -1},
		},
	}
	mc.domains.Store(domainID, dc)

	mc.logger.Info("created domain member cache",
		zap.String("domain", domainID),
		zap.Int("seeded", len(seed)))
	return dc, nil
}

// lookup returns domainID's cache without creating it. Call sites that must
// not trigger a lazy initialization (the synchronous façade, Invalidate) go
// through here.
func (mc *MemberCache) lookup(domainID string) (*domainCache, bool) {
	return mc.domains.Load(domainID)
}

// memberFetcher scopes the TTL cache's batch fetch to one domain.
func (mc *MemberCache) memberFetcher(domainID string) cache.BatchFetchFunc[string, Member] {
	return func(ctx context.Context, ids []string) ([]Member, error) {
		return mc.store.FetchDomainMembers(ctx, domainID, ids)
	}
}
