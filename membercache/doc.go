// Package membercache maintains per-domain caches of domain members with
// query-aware freshness tracking.
//
// # Overview
//
// Each domain gets its own member cache, created lazily on first access and
// seeded with the first page of the domain's member list. Member entries
// expire on a TTL; list queries are tracked in a per-domain ledger so that a
// query repeated within the freshness window is answered from the cached
// population instead of the store.
//
// # Key Features
//
//   - **Lazy per-domain caches**: One cache per domain, created on first use
//     and seeded from the store under a single creation lock
//   - **Batched member reads**: GetMembers fetches all missing members in one
//     store call and coalesces concurrent fetches for the same member
//   - **Query ledger**: Canonical signatures decide per query whether to hit
//     the store or filter the cached population in-process
//   - **Synchronous reads**: GetMemberSync returns the cached value without
//     ever blocking, optionally refreshing it in the background
//   - **Targeted invalidation**: Invalidate expires one member while keeping
//     the stale value readable until it is refetched or swept
//
// # Basic Usage
//
// Create a MemberCache around a Store implementation:
//
//	mc, err := membercache.New(store, membercache.DefaultConfig(), logger)
//	if err != nil {
//		return err
//	}
//
//	// Filtered, paged listing; hits the store at most once per
//	// Config.QueryInterval for each distinct query.
//	page, err := mc.ListMembers(ctx, "domains:atelier", membercache.ListOptions{
//		Search: "an",
//		Limit:  membercache.IntPtr(20),
//		Page:   membercache.IntPtr(0),
//	})
//
//	// Single and batched member reads.
//	member, err := mc.GetMember(ctx, "domains:atelier", "profiles:u17")
//	members, err := mc.GetMembers(ctx, "domains:atelier", ids, false)
//
//	// Non-blocking read for rendering paths.
//	member, ok := mc.GetMemberSync("domains:atelier", "profiles:u17", true)
//
// # Identifier Namespaces
//
// Domains, members and roles carry namespace prefixes ("domains:",
// "profiles:", "roles:"). Operations returning errors reject ids outside
// their namespace with ErrInvalidID; GetMemberSync treats them as absent.
//
// # Freshness Model
//
// Member entries and query executions age independently. A member read
// refetches entries older than Config.TTL; ListMembers reruns a query
// remotely when its last recorded execution is older than
// Config.QueryInterval. Remote executions fold their results into the member
// cache, so list traffic keeps frequently listed members warm.
//
// # Error Handling
//
// Store errors propagate unchanged from ListMembers, GetMember and
// GetMembers. GetMemberSync never returns an error: background refresh
// failures are logged at debug level and dropped.
//
// # See Also
//
// The cache package provides the underlying TTL batch cache. The pkg/di
// package wires a MemberCache with its store and logger.
package membercache
