package corpus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"pcrm/api/internal/duplicate"
)

type fakeFetcher struct {
	calls int
	items []duplicate.Candidate
	err   error
}

func (f *fakeFetcher) RecentDescriptions(_ context.Context, _ string, excludeID string, limit int) ([]duplicate.Candidate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if limit <= 0 {
		limit = duplicate.CorpusLimit
	}
	limit = min(limit, duplicate.MaxFetch)
	out := make([]duplicate.Candidate, 0, len(f.items))
	for _, item := range f.items {
		if item.ID == excludeID {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, item)
	}
	return out, nil
}

type funcFetcher func(ctx context.Context, tenantID, excludeID string, limit int) ([]duplicate.Candidate, error)

func (f funcFetcher) RecentDescriptions(ctx context.Context, tenantID, excludeID string, limit int) ([]duplicate.Candidate, error) {
	return f(ctx, tenantID, excludeID, limit)
}

func setupTestCache(t *testing.T, next duplicate.CorpusFetcher) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	cache, err := NewRedisCache("redis://"+s.Addr(), time.Minute, next)
	if err != nil {
		t.Fatalf("NewRedisCache failed: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache, s
}

func TestRecentDescriptionsCachesPerTenant(t *testing.T) {
	next := &fakeFetcher{items: []duplicate.Candidate{
		{ID: "c3", Description: "water leak near school"},
		{ID: "c2", Description: "streetlight broken"},
		{ID: "c1", Description: "garbage pile on corner"},
	}}
	cache, s := setupTestCache(t, next)
	ctx := context.Background()

	first, err := cache.RecentDescriptions(ctx, "t1", "", 10)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("len(first) = %d, want 3", len(first))
	}
	if !s.Exists("corpus:t1") {
		t.Fatal("expected corpus:t1 to be cached")
	}

	second, err := cache.RecentDescriptions(ctx, "t1", "c3", 10)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if next.calls != 1 {
		t.Fatalf("next.calls = %d, want 1", next.calls)
	}
	if len(second) != 2 || second[0].ID != "c2" {
		t.Fatalf("second = %+v, want c2,c1", second)
	}
}

func TestRecentDescriptionsRespectsLimit(t *testing.T) {
	items := make([]duplicate.Candidate, 0, 250)
	for i := range 250 {
		items = append(items, duplicate.Candidate{ID: fmt.Sprintf("c%d", i), Description: "road damaged badly"})
	}
	next := &fakeFetcher{items: items}
	cache, _ := setupTestCache(t, next)

	got, err := cache.RecentDescriptions(context.Background(), "t1", "c0", 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != duplicate.CorpusLimit {
		t.Fatalf("len(got) = %d, want %d", len(got), duplicate.CorpusLimit)
	}
	if got[0].ID != "c1" {
		t.Fatalf("got[0].ID = %s, want c1", got[0].ID)
	}
}

func TestExcludingNewestKeepsFullCorpus(t *testing.T) {
	items := make([]duplicate.Candidate, 0, 300)
	for i := range 300 {
		items = append(items, duplicate.Candidate{ID: fmt.Sprintf("c%d", i), Description: "drain overflowing again"})
	}
	next := &fakeFetcher{items: items}
	cache, _ := setupTestCache(t, next)
	ctx := context.Background()

	direct, err := next.RecentDescriptions(ctx, "t1", "c0", duplicate.CorpusLimit)
	if err != nil {
		t.Fatalf("direct read: %v", err)
	}
	cached, err := cache.RecentDescriptions(ctx, "t1", "c0", duplicate.CorpusLimit)
	if err != nil {
		t.Fatalf("cached read: %v", err)
	}
	if len(cached) != len(direct) || len(cached) != duplicate.CorpusLimit {
		t.Fatalf("len(cached) = %d, len(direct) = %d, want %d", len(cached), len(direct), duplicate.CorpusLimit)
	}
	if cached[len(cached)-1].ID != direct[len(direct)-1].ID {
		t.Fatalf("last cached = %s, want %s", cached[len(cached)-1].ID, direct[len(direct)-1].ID)
	}
}

func TestCanceledCallerDoesNotFailSharedLoad(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	loadErr := make(chan error, 2)
	var once sync.Once
	next := funcFetcher(func(ctx context.Context, _, _ string, _ int) ([]duplicate.Candidate, error) {
		once.Do(func() { close(started) })
		<-release
		loadErr <- ctx.Err()
		return []duplicate.Candidate{{ID: "c1", Description: "pothole main road"}}, nil
	})
	cache, s := setupTestCache(t, next)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := cache.RecentDescriptions(ctx, "t1", "", 5)
		first <- err
	}()
	<-started
	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("first caller err = %v, want context.Canceled", err)
	}

	close(release)
	if err := <-loadErr; err != nil {
		t.Fatalf("load ctx err = %v, want nil", err)
	}
	got, err := cache.RecentDescriptions(context.Background(), "t1", "", 5)
	if err != nil {
		t.Fatalf("second caller: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got = %+v, want 1 item", got)
	}
	if !s.Exists("corpus:t1") {
		t.Fatal("expected shared load to be cached")
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	next := &fakeFetcher{items: []duplicate.Candidate{{ID: "c1", Description: "pothole main road"}}}
	cache, _ := setupTestCache(t, next)
	ctx := context.Background()

	if _, err := cache.RecentDescriptions(ctx, "t1", "", 5); err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := cache.Invalidate(ctx, "t1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := cache.RecentDescriptions(ctx, "t1", "", 5); err != nil {
		t.Fatalf("read after invalidate: %v", err)
	}
	if next.calls != 2 {
		t.Fatalf("next.calls = %d, want 2", next.calls)
	}
}

func TestTTLExpiresEntry(t *testing.T) {
	next := &fakeFetcher{items: []duplicate.Candidate{{ID: "c1", Description: "pothole main road"}}}
	cache, s := setupTestCache(t, next)
	ctx := context.Background()

	if _, err := cache.RecentDescriptions(ctx, "t1", "", 5); err != nil {
		t.Fatalf("read: %v", err)
	}
	s.FastForward(2 * time.Minute)
	if s.Exists("corpus:t1") {
		t.Fatal("expected corpus:t1 to expire")
	}
}

func TestFetcherErrorIsNotCached(t *testing.T) {
	next := &fakeFetcher{err: errors.New("db down")}
	cache, s := setupTestCache(t, next)

	if _, err := cache.RecentDescriptions(context.Background(), "t1", "", 5); err == nil {
		t.Fatal("expected fetcher error")
	}
	if s.Exists("corpus:t1") {
		t.Fatal("failed load must not be cached")
	}
}

func TestRedisFailureFallsThrough(t *testing.T) {
	next := &fakeFetcher{items: []duplicate.Candidate{{ID: "c1", Description: "pothole main road"}}}
	cache, s := setupTestCache(t, next)
	s.Close()

	got, err := cache.RecentDescriptions(context.Background(), "t1", "", 5)
	if err != nil {
		t.Fatalf("read with redis down: %v", err)
	}
	if len(got) != 1 || next.calls != 1 {
		t.Fatalf("got = %+v, calls = %d", got, next.calls)
	}
}

func TestCorruptEntryFallsThrough(t *testing.T) {
	next := &fakeFetcher{items: []duplicate.Candidate{{ID: "c1", Description: "pothole main road"}}}
	cache, s := setupTestCache(t, next)
	if err := s.Set("corpus:t1", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := cache.RecentDescriptions(context.Background(), "t1", "", 5)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got = %+v", got)
	}
}

func TestNewRedisCacheRejectsBadURL(t *testing.T) {
	if _, err := NewRedisCache("://nope", time.Minute, &fakeFetcher{}); err == nil {
		t.Fatal("expected parse error")
	}
}
