package membercache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewRequiresStore(t *testing.T) {
	_, err := New(nil, DefaultConfig(), nil)
	if err == nil {
		t.Fatalf("Expected error for nil store, got nil")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(newFakeStore(), Config{}, nil)
	if err == nil {
		t.Fatalf("Expected error for zero config, got nil")
	}
}

func TestNewDefaultsLogger(t *testing.T) {
	mc, err := New(newFakeStore(), DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Failed to create member cache with nil logger: %v", err)
	}
	if mc == nil {
		t.Fatalf("Expected a member cache, got nil")
	}
}

func TestDomainCreatedLazilyAndSeeded(t *testing.T) {
	store := newFakeStore()
	store.seed(atelier, loadMembers(t))
	mc := newTestMemberCache(t, store, DefaultConfig(), newFakeClock())

	if got := mc.DomainCount(); got != 0 {
		t.Fatalf("Expected no domain caches before first access, got %d", got)
	}

	member, err := mc.GetMember(context.Background(), atelier, "profiles:u04")
	if err != nil {
		t.Fatalf("Failed to get member: %v", err)
	}
	if member.Alias != "Andre" {
		t.Errorf("Expected alias Andre, got %q", member.Alias)
	}

	if got := mc.DomainCount(); got != 1 {
		t.Errorf("Expected one domain cache after first access, got %d", got)
	}

	// The first page seeded the cache, so the member read needed no
	// individual fetch.
	if got := store.fetchCount(); got != 0 {
		t.Errorf("Expected no member fetches for a seeded member, got %d", got)
	}
	if got := store.queryCount(); got != 1 {
		t.Fatalf("Expected exactly one seed query, got %d", got)
	}

	seed := store.lastQuery(t)
	if seed.Limit != DefaultPageSize {
		t.Errorf("Expected seed limit %d, got %d", DefaultPageSize, seed.Limit)
	}
	if seed.Offset != 0 || seed.Search != "" || seed.IncludeRole != "" || seed.ExcludeRole != "" {
		t.Errorf("Expected an unfiltered first-page seed query, got %+v", seed)
	}
	if seed.WithCount {
		t.Errorf("Expected seed query to skip counting")
	}
}

func TestEachDomainGetsOwnCache(t *testing.T) {
	store := newFakeStore()
	members := loadMembers(t)
	store.seed(atelier, members)
	store.seed("domains:workshop", members[:5])
	mc := newTestMemberCache(t, store, DefaultConfig(), newFakeClock())

	if _, err := mc.GetMember(context.Background(), atelier, "profiles:u01"); err != nil {
		t.Fatalf("Failed to get member from first domain: %v", err)
	}
	if _, err := mc.GetMember(context.Background(), "domains:workshop", "profiles:u02"); err != nil {
		t.Fatalf("Failed to get member from second domain: %v", err)
	}

	if got := mc.DomainCount(); got != 2 {
		t.Errorf("Expected two domain caches, got %d", got)
	}
	if got := store.queryCount(); got != 2 {
		t.Errorf("Expected one seed query per domain, got %d", got)
	}
}

func TestConcurrentAccessCreatesOneCache(t *testing.T) {
	store := newFakeStore()
	store.seed(atelier, loadMembers(t))
	release := store.blockQueries()
	defer release()

	mc := newTestMemberCache(t, store, DefaultConfig(), newFakeClock())

	const goroutines = 50
	var wg sync.WaitGroup
	errs := make([]error, goroutines)

	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			_, errs[idx] = mc.GetMember(context.Background(), atelier, "profiles:u01")
		}(i)
	}

	close(start)
	// Let the callers pile up on the creation path while the seed query is
	// still blocked, then release it.
	time.Sleep(50 * time.Millisecond)
	release()
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Failed concurrent get %d: %v", i, err)
		}
	}
	if got := mc.DomainCount(); got != 1 {
		t.Errorf("Expected a single domain cache, got %d", got)
	}
	if got := store.queryCount(); got != 1 {
		t.Errorf("Expected a single seed query across all callers, got %d", got)
	}
}

func TestSeedFailureLeavesNothingBehind(t *testing.T) {
	store := newFakeStore()
	store.seed(atelier, loadMembers(t))
	mc := newTestMemberCache(t, store, DefaultConfig(), newFakeClock())

	storeErr := errors.New("directory unavailable")
	store.setQueryErr(storeErr)

	_, err := mc.GetMember(context.Background(), atelier, "profiles:u01")
	if !errors.Is(err, storeErr) {
		t.Fatalf("Expected seed failure to propagate, got %v", err)
	}
	if got := mc.DomainCount(); got != 0 {
		t.Fatalf("Expected no domain cache after failed seed, got %d", got)
	}

	// The next caller retries from scratch.
	store.setQueryErr(nil)
	if _, err := mc.GetMember(context.Background(), atelier, "profiles:u01"); err != nil {
		t.Fatalf("Failed to get member after store recovered: %v", err)
	}
	if got := mc.DomainCount(); got != 1 {
		t.Errorf("Expected domain cache after retry, got %d", got)
	}
	if got := store.queryCount(); got != 2 {
		t.Errorf("Expected failed and successful seed queries, got %d", got)
	}
}

func TestSessionReachesSeedQuery(t *testing.T) {
	store := newFakeStore()
	store.seed(atelier, loadMembers(t))
	mc := newTestMemberCache(t, store, DefaultConfig(), newFakeClock())

	ctx := WithSession(context.Background(), "token-abc")
	if _, err := mc.GetMember(ctx, atelier, "profiles:u01"); err != nil {
		t.Fatalf("Failed to get member: %v", err)
	}

	sessions := store.seenSessions()
	if len(sessions) != 1 || sessions[0] != "token-abc" {
		t.Errorf("Expected seed query to observe session token, got %v", sessions)
	}
}
