package membercache

import (
	"context"
)

// GetMember returns a single domain member, fetching it from the store when
// it is absent from or expired in the domain cache.
func (mc *MemberCache) GetMember(ctx context.Context, domainID, memberID string) (Member, error) {
	if err := checkDomainID(domainID); err != nil {
		return Member{}, err
	}
	if err := checkMemberID(memberID); err != nil {
		return Member{}, err
	}

	dc, err := mc.domain(ctx, domainID)
	if err != nil {
		return Member{}, err
	}
	return dc.members.GetOne(ctx, memberID, false)
}

// GetMembers returns the members for memberIDs in matching positions. Missing
// or expired entries are fetched from the store in a single batch; concurrent
// calls for overlapping ids share fetches. With revalidate set, entries past
// the revalidation window are refetched even though they have not expired.
func (mc *MemberCache) GetMembers(ctx context.Context, domainID string, memberIDs []string, revalidate bool) ([]Member, error) {
	if err := checkDomainID(domainID); err != nil {
		return nil, err
	}
	for _, id := range memberIDs {
		if err := checkMemberID(id); err != nil {
			return nil, err
		}
	}

	dc, err := mc.domain(ctx, domainID)
	if err != nil {
		return nil, err
	}
	return dc.members.Get(ctx, memberIDs, revalidate)
}

// Invalidate marks one member's cache entry as expired, forcing the next read
// to refetch it. The stale value stays visible to PeekMember and
// GetMemberSync until then. Unknown domains and members are ignored; a
// domain is never created just to invalidate an entry in it.
func (mc *MemberCache) Invalidate(domainID, memberID string) {
	dc, ok := mc.lookup(domainID)
	if !ok {
		return
	}
	dc.members.Invalidate(memberID)
}

// PeekMember returns the cached member without touching the store, even when
// the entry has expired. It reports false when the member has never been
// cached, has been swept, or the domain cache does not exist.
func (mc *MemberCache) PeekMember(domainID, memberID string) (Member, bool) {
	dc, ok := mc.lookup(domainID)
	if !ok {
		return Member{}, false
	}
	return dc.members.Peek(memberID)
}
