package membercache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/avid-im/go-member-cache/pkg/testsupport"
)

// atelier is the domain most tests in this package run against.
const atelier = "domains:atelier"

// fakeClock is a manually advanced time source shared by a test's caches.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var _ Store = (*fakeStore)(nil)

// fakeStore is an in-memory Store. Its query path implements the remote
// contract in the most direct way possible (filter everything, admins first
// then alias, slice, count only when asked), so tests can use it both as a
// double and as a reference to compare cache answers against.
type fakeStore struct {
	mu         sync.RWMutex
	members    map[string][]Member
	fetchCalls [][]string
	queryCalls []MemberQuery
	sessions   []string
	fetchErr   error
	queryErr   error
	fetchGate  chan struct{}
	queryGate  chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{members: make(map[string][]Member)}
}

func (s *fakeStore) seed(domainID string, members []Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[domainID] = append([]Member(nil), members...)
}

func (s *fakeStore) FetchDomainMembers(ctx context.Context, domainID string, ids []string) ([]Member, error) {
	s.mu.RLock()
	gate := s.fetchGate
	s.mu.RUnlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	s.fetchCalls = append(s.fetchCalls, append([]string(nil), ids...))
	s.sessions = append(s.sessions, SessionFromContext(ctx))
	err := s.fetchErr
	domain := append([]Member(nil), s.members[domainID]...)
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	out := make([]Member, len(ids))
	for i, id := range ids {
		found := false
		for _, m := range domain {
			if m.ID == id {
				out[i] = m
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("member %s not found in %s", id, domainID)
		}
	}
	return out, nil
}

func (s *fakeStore) QueryDomainMembers(ctx context.Context, domainID string, q MemberQuery) ([]Member, int, error) {
	s.mu.RLock()
	gate := s.queryGate
	s.mu.RUnlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	s.queryCalls = append(s.queryCalls, q)
	s.sessions = append(s.sessions, SessionFromContext(ctx))
	err := s.queryErr
	domain := append([]Member(nil), s.members[domainID]...)
	s.mu.Unlock()

	if err != nil {
		return nil, 0, err
	}

	matched := make([]Member, 0, len(domain))
	for _, m := range domain {
		if q.Search != "" && !strings.Contains(strings.ToLower(m.Alias), strings.ToLower(q.Search)) {
			continue
		}
		if q.IncludeRole != "" && !m.HasRole(q.IncludeRole) {
			continue
		}
		if q.ExcludeRole != "" && m.HasRole(q.ExcludeRole) {
			continue
		}
		matched = append(matched, m)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].IsAdmin != matched[j].IsAdmin {
			return matched[i].IsAdmin
		}
		a, b := strings.ToLower(matched[i].Alias), strings.ToLower(matched[j].Alias)
		if a == b {
			return matched[i].ID < matched[j].ID
		}
		return a < b
	})

	total := -1
	if q.WithCount {
		total = len(matched)
	}

	if q.Offset > len(matched) {
		matched = matched[:0]
	} else {
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, total, nil
}

func (s *fakeStore) fetchCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fetchCalls)
}

func (s *fakeStore) queryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.queryCalls)
}

func (s *fakeStore) lastQuery(t *testing.T) MemberQuery {
	t.Helper()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.queryCalls) == 0 {
		t.Fatalf("Expected at least one store query")
	}
	return s.queryCalls[len(s.queryCalls)-1]
}

func (s *fakeStore) lastFetch(t *testing.T) []string {
	t.Helper()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.fetchCalls) == 0 {
		t.Fatalf("Expected at least one store fetch")
	}
	return s.fetchCalls[len(s.fetchCalls)-1]
}

func (s *fakeStore) seenSessions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.sessions...)
}

func (s *fakeStore) setFetchErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErr = err
}

func (s *fakeStore) setQueryErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryErr = err
}

// blockFetches makes FetchDomainMembers block until the returned release
// function is called. The release function is safe to call more than once.
func (s *fakeStore) blockFetches() func() {
	gate := make(chan struct{})
	s.mu.Lock()
	s.fetchGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// blockQueries is blockFetches for QueryDomainMembers.
func (s *fakeStore) blockQueries() func() {
	gate := make(chan struct{})
	s.mu.Lock()
	s.queryGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// loadMembers loads the shared member fixture.
func loadMembers(t *testing.T) []Member {
	t.Helper()

	var members []Member
	testsupport.LoadFixtureJSON(t, testsupport.FixturePath("members.json"), &members)
	if len(members) == 0 {
		t.Fatalf("Fixture members.json is empty")
	}
	return members
}

// newTestMemberCache builds a MemberCache over store with the fake clock
// wired into the registry and, transitively, every domain cache it creates.
func newTestMemberCache(t *testing.T, store Store, cfg Config, clock *fakeClock) *MemberCache {
	t.Helper()

	mc, err := New(store, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create member cache: %v", err)
	}
	if clock != nil {
		mc.now = clock.Now
	}
	return mc
}
