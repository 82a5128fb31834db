package duplicate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pcrm/api/internal/nlp"
)

type fakeFetcher struct {
	corpus []Candidate
	err    error
	calls  int
	got    struct {
		tenantID  string
		excludeID string
		limit     int
	}
}

func (f *fakeFetcher) RecentDescriptions(_ context.Context, tenantID, excludeID string, limit int) ([]Candidate, error) {
	f.calls++
	f.got.tenantID = tenantID
	f.got.excludeID = excludeID
	f.got.limit = limit
	return f.corpus, f.err
}

func TestDetectVerbatimMatch(t *testing.T) {
	text := "Garbage has not been collected from Lake Road for ten days"
	fetcher := &fakeFetcher{corpus: []Candidate{
		{ID: "c-3", Description: "Streetlight near the temple is broken"},
		{ID: "c-2", Description: text},
		{ID: "c-1", Description: "Garbage pile near the bus stand"},
	}}

	got, err := New(fetcher).Detect(context.Background(), Request{Description: text, TenantID: "t-1"})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got < PerfectMatch {
		t.Fatalf("Detect() = %v, want >= %v", got, PerfectMatch)
	}
	if fetcher.calls != 1 || fetcher.got.tenantID != "t-1" || fetcher.got.limit != CorpusLimit {
		t.Fatalf("unexpected fetch: calls=%d %+v", fetcher.calls, fetcher.got)
	}
}

func TestMaxSimilarityStopsAtPerfectMatch(t *testing.T) {
	text := "sewage overflowing onto main street"
	corpus := []Candidate{
		{ID: "a", Description: "water supply disrupted in ward"},
		{ID: "b", Description: text},
		{ID: "c", Description: "sewage overflowing onto main street again"},
		{ID: "d", Description: "sewage overflowing"},
	}
	pulled := 0
	seq := func(yield func(Candidate) bool) {
		for _, c := range corpus {
			pulled++
			if !yield(c) {
				return
			}
		}
	}

	got := MaxSimilarity(nlp.NewVector(nlp.Preprocess(text)), seq, "")
	if got != 1 {
		t.Fatalf("MaxSimilarity() = %v, want 1", got)
	}
	if pulled != 2 {
		t.Fatalf("scanned %d candidates, want early exit after 2", pulled)
	}
}

func TestMaxSimilarityCapsCorpus(t *testing.T) {
	pulled := 0
	seq := func(yield func(Candidate) bool) {
		for i := 0; i < 500; i++ {
			pulled++
			if !yield(Candidate{ID: fmt.Sprint(i), Description: "unrelated noise words"}) {
				return
			}
		}
	}
	MaxSimilarity(nlp.NewVector([]string{"pothole", "road"}), seq, "")
	if pulled > CorpusLimit+1 {
		t.Fatalf("scanned %d candidates, want at most %d", pulled, CorpusLimit+1)
	}
}

func TestDetectShortDescriptionSkipsFetch(t *testing.T) {
	fetcher := &fakeFetcher{}
	for _, text := range []string{"", "leak", "the a is of", "no water"} {
		got, err := New(fetcher).Detect(context.Background(), Request{Description: text, TenantID: "t-1"})
		if err != nil || got != 0 {
			t.Fatalf("Detect(%q) = %v, %v", text, got, err)
		}
	}
	if fetcher.calls != 0 {
		t.Fatalf("fetch calls = %d, want 0", fetcher.calls)
	}
}

func TestDetectEmptyCorpus(t *testing.T) {
	got, err := New(&fakeFetcher{}).Detect(context.Background(), Request{Description: "broken water pipeline near school", TenantID: "t-1"})
	if err != nil || got != 0 {
		t.Fatalf("Detect() = %v, %v; want 0, nil", got, err)
	}
}

func TestDetectWrapsFetcherError(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := New(&fakeFetcher{err: boom}).Detect(context.Background(), Request{Description: "broken water pipeline near school", TenantID: "t-1"})
	if !errors.Is(err, ErrCorpusUnavailable) {
		t.Fatalf("expected ErrCorpusUnavailable, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}

	_, err = New(nil).Detect(context.Background(), Request{Description: "broken water pipeline near school"})
	if !errors.Is(err, ErrCorpusUnavailable) {
		t.Fatalf("nil fetcher: expected ErrCorpusUnavailable, got %v", err)
	}
}

func TestDetectExcludesSelf(t *testing.T) {
	text := "broken water pipeline near school"
	fetcher := &fakeFetcher{corpus: []Candidate{
		{ID: "self", Description: text},
		{ID: "other", Description: "road repair pending for months"},
	}}
	got, err := New(fetcher).Detect(context.Background(), Request{Description: text, TenantID: "t-1", ExcludeID: "self"})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got != 0 {
		t.Fatalf("Detect() = %v, want 0 with self excluded", got)
	}
	if fetcher.got.excludeID != "self" {
		t.Fatalf("excludeID = %q, want self", fetcher.got.excludeID)
	}
}

func TestDetectPartialOverlap(t *testing.T) {
	fetcher := &fakeFetcher{corpus: []Candidate{
		{ID: "1", Description: "water pipeline broken"},
		{ID: "2", Description: "ok"},
	}}
	got, err := New(fetcher).Detect(context.Background(), Request{Description: "water pipeline leaking", TenantID: "t"})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	// Two shared terms of three in each vector.
	if got != 0.6667 {
		t.Fatalf("Detect() = %v, want 0.6667", got)
	}
}

func TestDetectBoundedForManyCorpora(t *testing.T) {
	corpus := make([]Candidate, 0, 250)
	for i := range 250 {
		corpus = append(corpus, Candidate{ID: fmt.Sprint(i), Description: fmt.Sprintf("drain blocked ward %c street", 'a'+rune(i%26))})
	}
	got, err := New(&fakeFetcher{corpus: corpus}).Detect(context.Background(), Request{Description: "drain blocked near the market street", TenantID: "t"})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got < 0 || got > 1 {
		t.Fatalf("Detect() = %v out of range", got)
	}
}
