// Package cache provides a generic in-memory TTL cache with batched,
// coalesced fetching.
//
// # Overview
//
// Cache[K, V] sits between callers that need values cheaply and a fetch
// function that is expensive to call:
//
//   - Get serves live entries from memory and loads every missing or expired
//     key through one batch fetch call per Get.
//   - Concurrent requests for the same missing key coalesce onto a single
//     in-flight fetch instead of stampeding the source.
//   - Add writes values back under parallel key/value sequences, resetting
//     entry timestamps.
//   - Invalidate marks a single entry stale without discarding its value, so
//     Peek can keep serving it to callers that tolerate staleness.
//
// # Expiry Model
//
// Every entry records the time it was last written. An entry is live while
// its age is within Config.TTL; a Get that encounters an expired entry
// refetches it. Callers that want fresher data than the TTL guarantees pass
// revalidate=true, which shrinks the acceptable age to
// Config.RevalidateAfter for that call only.
//
// There are no background timers. Expired entries are removed by sweeps that
// run inline on Add and Get once enough time (twice the TTL) has passed
// since the previous sweep, so cleanup cost is amortized over normal
// traffic and an idle cache does no work at all.
//
// # Basic Usage
//
//	fetch := func(ctx context.Context, ids []string) ([]Profile, error) {
//		return client.FetchProfiles(ctx, ids)
//	}
//
//	c, err := cache.New[string, Profile](fetch, cache.DefaultConfig(), logger)
//	if err != nil {
//		return err
//	}
//
//	profiles, err := c.Get(ctx, []string{"profiles:a", "profiles:b"}, false)
//
// # Error Handling
//
// Fetch errors are returned to the caller unchanged; nothing is cached for
// the failed keys and no retry is attempted. A fetch that resolves with the
// wrong number of values is a bug in the fetcher and is reported as
// ErrFetchCount. Mismatched Add sequences are reported as
// ErrKeyValueMismatch.
//
// # Known Limitations
//
// Write-back is last-writer-wins: a fetch that is still in flight when Add
// stores a newer value will overwrite that value once it resolves. Callers
// that coalesce onto another caller's fetch share its outcome, including a
// failure caused by the first caller's context.
package cache
