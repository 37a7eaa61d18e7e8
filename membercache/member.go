package membercache

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Id namespaces. Every identifier this package touches is of the form
// "<namespace>:<rest>"; the namespace tells entities apart and malformed ids
// are rejected at the API boundary instead of being passed to the store.
const (
	DomainIDPrefix = "domains:"
	MemberIDPrefix = "profiles:"
	RoleIDPrefix   = "roles:"
)

// ErrInvalidID reports an identifier outside the expected namespace. It
// signals a bug in the caller, not a remote failure.
var ErrInvalidID = errors.New("membercache: invalid id")

// Member is one entry of a domain's member directory. Members are identified
// by their profile id; the remaining fields are denormalized from the remote
// directory so list views can render without further lookups. Member is a
// plain value and safe to copy.
type Member struct {
	ID       string    `json:"id"`
	Alias    string    `json:"alias"`
	IsAdmin  bool      `json:"is_admin"`
	IsOwner  bool      `json:"is_owner"`
	RoleIDs  []string  `json:"role_ids,omitempty"`
	Picture  string    `json:"picture,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

// HasRole reports whether the member carries the given role id.
func (m Member) HasRole(roleID string) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// ValidDomainID reports whether id is a well-formed domain id.
func ValidDomainID(id string) bool { return validID(id, DomainIDPrefix) }

// ValidMemberID reports whether id is a well-formed member (profile) id.
func ValidMemberID(id string) bool { return validID(id, MemberIDPrefix) }

// ValidRoleID reports whether id is a well-formed role id.
func ValidRoleID(id string) bool { return validID(id, RoleIDPrefix) }

func validID(id, prefix string) bool {
	return strings.HasPrefix(id, prefix) && len(id) > len(prefix)
}

func checkDomainID(id string) error {
	if !ValidDomainID(id) {
		return fmt.Errorf("%w: domain id %q must be in the %q namespace", ErrInvalidID, id, DomainIDPrefix)
	}
	return nil
}

func checkMemberID(id string) error {
	if !ValidMemberID(id) {
		return fmt.Errorf("%w: member id %q must be in the %q namespace", ErrInvalidID, id, MemberIDPrefix)
	}
	return nil
}

// memberIDs projects members onto their ids, preserving order.
func memberIDs(members []Member) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids
}
