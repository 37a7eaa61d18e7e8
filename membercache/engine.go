package membercache

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// MemberList is one page of a member-list query.
type MemberList struct {
	Members []Member

	// Total is the full match count from the most recent counted remote
	// execution of this query, -1 when no counted execution has happened.
	// Pages served from the cached population report the last remote total
	// even when membership has drifted since.
	Total int
}

// ListMembers returns a filtered, sorted, paged view of a domain's members.
//
// Each distinct set of options maps to a query signature. When the signature
// has no ledger entry yet, or its last remote execution is older than
// Config.QueryInterval, the query runs against the store: results are folded
// into the domain cache and the execution is recorded. Otherwise the query
// is answered from the cached member population with the same predicate
// applied in-process.
//
// The two paths do not sort identically: the store orders admins first and
// then by alias, while the cached path orders by alias alone and leaves
// search results unordered. Callers that need the admin-first ordering get
// it on remote executions only.
func (mc *MemberCache) ListMembers(ctx context.Context, domainID string, opts ListOptions) (MemberList, error) {
	if err := checkDomainID(domainID); err != nil {
		return MemberList{}, err
	}
	if err := opts.Validate(); err != nil {
		return MemberList{}, fmt.Errorf("membercache: invalid list options: %w", err)
	}

	dc, err := mc.domain(ctx, domainID)
	if err != nil {
		return MemberList{}, err
	}

	sig := querySignature(opts, mc.cfg.PageSize)

	// Two identical queries racing before either records its execution may
	// both run remotely; the ledger only guarantees the freshness window
	// between recorded executions.
	dc.mu.Lock()
	rec, known := dc.queries[sig]
	dc.mu.Unlock()

	if known && mc.now().Sub(rec.ranAt) <= mc.cfg.QueryInterval {
		return mc.listLocal(dc, opts, rec), nil
	}
	return mc.listRemote(ctx, domainID, dc, opts, sig)
}

// listRemote executes the query against the store, folds the page into the
// domain cache and records the execution in the ledger. Store errors
// propagate unchanged and leave the ledger untouched.
func (mc *MemberCache) listRemote(ctx context.Context, domainID string, dc *domainCache, opts ListOptions, sig string) (MemberList, error) {
	limit := opts.effectiveLimit(mc.cfg.PageSize)
	q := MemberQuery{
		Search:      strings.ToLower(opts.Search),
		IncludeRole: opts.IncludeRole,
		ExcludeRole: opts.ExcludeRole,
		Limit:       limit,
		Offset:      opts.pageIndex() * limit,
		WithCount:   opts.paginated(),
	}
	if q.IncludeRole != "" {
		q.ExcludeRole = ""
	}

	members, total, err := mc.store.QueryDomainMembers(ctx, domainID, q)
	if err != nil {
		return MemberList{}, err
	}
	if err := dc.members.Add(memberIDs(members), members); err != nil {
		return MemberList{}, err
	}

	dc.mu.Lock()
	dc.queries[sig] = queryRecord{ranAt: mc.now(), total: total}
	dc.mu.Unlock()

	mc.logger.Debug("executed member query remotely",
		zap.String("domain", domainID),
		zap.String("signature", sig),
		zap.Int("results", len(members)))

	return MemberList{Members: members, Total: total}, nil
}

// listLocal answers the query from the cached member population, including
// stale entries, and reports the last remotely counted total.
func (mc *MemberCache) listLocal(dc *domainCache, opts ListOptions, rec queryRecord) MemberList {
	matched := filterMembers(dc.members.Values(), opts)
	if opts.Search == "" {
		sortByAlias(matched)
	}

	limit := opts.effectiveLimit(mc.cfg.PageSize)
	start := opts.pageIndex() * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	return MemberList{Members: matched[start:end], Total: rec.total}
}

// filterMembers applies the list predicate in-process: case-insensitive
// substring match on the alias, then role inclusion with priority over
// exclusion.
func filterMembers(members []Member, opts ListOptions) []Member {
	search := strings.ToLower(opts.Search)

	out := make([]Member, 0, len(members))
	for _, m := range members {
		if search != "" && !strings.Contains(strings.ToLower(m.Alias), search) {
			continue
		}
		if opts.IncludeRole != "" {
			if !m.HasRole(opts.IncludeRole) {
				continue
			}
		} else if opts.ExcludeRole != "" && m.HasRole(opts.ExcludeRole) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// sortByAlias orders members case-insensitively by alias, with the id as a
// deterministic tie-break.
func sortByAlias(members []Member) {
	sort.Slice(members, func(i, j int) bool {
		a, b := strings.ToLower(members[i].Alias), strings.ToLower(members[j].Alias)
		if a == b {
			return members[i].ID < members[j].ID
		}
		return a < b
	})
}
