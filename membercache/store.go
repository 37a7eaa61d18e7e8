package membercache

import "context"

// MemberQuery is the remote form of a member-list query, produced by the
// query engine after normalizing ListOptions.
type MemberQuery struct {
	// Search is the already lower-cased alias substring; empty matches all.
	Search string

	// IncludeRole keeps only members carrying the role. The engine resolves
	// filter priority before calling, so at most one of IncludeRole and
	// ExcludeRole is set.
	IncludeRole string

	// ExcludeRole drops members carrying the role.
	ExcludeRole string

	// Limit and Offset window the result after the canonical sort: admin
	// status descending, then alias ascending. A zero Limit means no window.
	Limit  int
	Offset int

	// WithCount requests the total number of matches ignoring the window.
	WithCount bool
}

// Store is the remote member directory the cache mirrors. Implementations
// are expected to be expensive to call and must be safe for concurrent use.
//
// Session and authorization material travels inside ctx (see WithSession);
// the cache layers pass it through untouched. Errors are returned to callers
// unchanged: the cache adds no retries and never masks a remote failure with
// stale data.
type Store interface {
	// FetchDomainMembers returns one member per requested id, in request
	// order. An id with no corresponding member is an error, not a gap: the
	// caching layer relies on positional alignment between ids and results.
	FetchDomainMembers(ctx context.Context, domainID string, memberIDs []string) ([]Member, error)

	// QueryDomainMembers runs one combined filter/sort/window query against
	// the directory. The returned total is the full match count when
	// q.WithCount is set, -1 otherwise.
	QueryDomainMembers(ctx context.Context, domainID string, q MemberQuery) ([]Member, int, error)
}
