// Package duplicate scores how closely a complaint description matches the
// recent complaints of the same tenant.
package duplicate

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"

	"pcrm/api/internal/nlp"
)

const (
	// CorpusLimit caps how many recent complaints are compared.
	CorpusLimit = 200
	// MaxFetch is the most rows a fetcher returns. The extra row lets a
	// cached corpus stay full after excluding one complaint.
	MaxFetch = CorpusLimit + 1
	// PerfectMatch ends the scan early.
	PerfectMatch = 0.99
	minTokens    = 2
)

// ErrCorpusUnavailable wraps any failure of the corpus fetcher.
var ErrCorpusUnavailable = errors.New("duplicate corpus unavailable")

// Candidate is one complaint from the comparison corpus.
type Candidate struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// CorpusFetcher returns up to limit non-deleted complaints of a tenant,
// newest first, leaving out excludeID when it is non-empty.
type CorpusFetcher interface {
	RecentDescriptions(ctx context.Context, tenantID, excludeID string, limit int) ([]Candidate, error)
}

// CorpusFetcherFunc adapts a function to CorpusFetcher.
type CorpusFetcherFunc func(ctx context.Context, tenantID, excludeID string, limit int) ([]Candidate, error)

func (f CorpusFetcherFunc) RecentDescriptions(ctx context.Context, tenantID, excludeID string, limit int) ([]Candidate, error) {
	return f(ctx, tenantID, excludeID, limit)
}

// Request identifies the text to check and where to look.
type Request struct {
	Description string
	TenantID    string
	// ExcludeID is the complaint itself when re-analyzing.
	ExcludeID string
}

// Detector compares descriptions against a tenant corpus.
type Detector struct {
	fetcher CorpusFetcher
}

func New(fetcher CorpusFetcher) *Detector {
	return &Detector{fetcher: fetcher}
}

// Detect returns the highest cosine similarity in [0, 1] between the
// request and the corpus. It performs exactly one fetch, and none when the
// description carries too little signal to compare.
func (d *Detector) Detect(ctx context.Context, req Request) (float64, error) {
	tokens := nlp.Preprocess(req.Description)
	if len(tokens) < minTokens {
		return 0, nil
	}
	vec := nlp.NewVector(tokens)
	if len(vec) == 0 {
		return 0, nil
	}
	if d.fetcher == nil {
		return 0, fmt.Errorf("%w: no fetcher configured", ErrCorpusUnavailable)
	}

	corpus, err := d.fetcher.RecentDescriptions(ctx, req.TenantID, req.ExcludeID, CorpusLimit)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCorpusUnavailable, err)
	}
	return MaxSimilarity(vec, slices.Values(corpus), req.ExcludeID), nil
}

// MaxSimilarity scans corpus for the best match to vec. Candidates with
// fewer than two meaningful tokens are skipped.
func MaxSimilarity(vec nlp.Vector, corpus iter.Seq[Candidate], excludeID string) float64 {
	best := 0.0
	scanned := 0
	for candidate := range corpus {
		if scanned >= CorpusLimit {
			break
		}
		scanned++
		if excludeID != "" && candidate.ID == excludeID {
			continue
		}
		tokens := nlp.Preprocess(candidate.Description)
		if len(tokens) < minTokens {
			continue
		}
		sim := nlp.Cosine(vec, nlp.NewVector(tokens))
		if sim > best {
			best = sim
		}
		if best >= PerfectMatch {
			break
		}
	}
	return round4(math.Max(0, math.Min(1, best)))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
