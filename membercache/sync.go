package membercache

import (
	"context"

	"go.uber.org/zap"
)

// GetMemberSync returns whatever the cache currently holds for the member
// without ever blocking on the store. It reports false when nothing is
// cached yet, including when the domain cache itself does not exist.
//
// With refresh set, a background fetch is kicked off first so a later call
// can observe a fresher value; the fetch runs detached from any caller
// context and its errors are logged and swallowed. Stale and invalidated
// entries stay visible here until a refetch replaces them or a sweep
// removes them. Malformed ids read as absent.
func (mc *MemberCache) GetMemberSync(domainID, memberID string, refresh bool) (Member, bool) {
	if checkDomainID(domainID) != nil || checkMemberID(memberID) != nil {
		return Member{}, false
	}

	dc, ok := mc.lookup(domainID)
	if !ok {
		return Member{}, false
	}

	if refresh {
		go func() {
			if _, err := dc.members.GetOne(context.Background(), memberID, false); err != nil {
				mc.logger.Debug("background member refresh failed",
					zap.String("domain", domainID),
					zap.String("member", memberID),
					zap.Error(err))
			}
		}()
	}

	return dc.members.Peek(memberID)
}
