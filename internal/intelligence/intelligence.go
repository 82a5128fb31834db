// Package intelligence combines sentiment, priority and duplicate scoring
// for a complaint. Analyze never fails: callers always get a usable result,
// with nil scores standing for "pending analysis".
package intelligence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"pcrm/api/internal/duplicate"
	"pcrm/api/internal/priority"
	"pcrm/api/internal/sentiment"
)

// DefaultDuplicateTimeout bounds the corpus fetch when no timeout is given.
const DefaultDuplicateTimeout = 3 * time.Second

// Input describes a complaint creation or re-analysis event.
type Input struct {
	Description string
	Category    string
	TenantID    string
	// ExcludeID is set when re-analyzing an existing complaint.
	ExcludeID string
}

// Result is the merged analysis. AIScore is the confidence behind
// SuggestedPriority.
type Result struct {
	SentimentScore    *float64 `json:"sentimentScore"`
	DuplicateScore    *float64 `json:"duplicateScore"`
	SuggestedPriority string   `json:"suggestedPriority"`
	AIScore           *float64 `json:"aiScore"`
}

// Fallback is the result returned when analysis could not run.
func Fallback() Result {
	return Result{SuggestedPriority: priority.Medium.String()}
}

// Pending reports whether no score was produced.
func (r Result) Pending() bool {
	return r.SentimentScore == nil && r.DuplicateScore == nil && r.AIScore == nil
}

// Complete reports whether every phase produced a score. Incomplete
// results are retried by re-analysis.
func (r Result) Complete() bool {
	return r.SentimentScore != nil && r.DuplicateScore != nil && r.AIScore != nil
}

// Detector is the duplicate scoring dependency.
type Detector interface {
	Detect(ctx context.Context, req duplicate.Request) (float64, error)
}

type Orchestrator struct {
	detector Detector
	timeout  time.Duration
}

// New returns an Orchestrator. detector may be nil, in which case duplicate
// scores are always nil.
func New(detector Detector, duplicateTimeout time.Duration) *Orchestrator {
	if duplicateTimeout <= 0 {
		duplicateTimeout = DefaultDuplicateTimeout
	}
	return &Orchestrator{detector: detector, timeout: duplicateTimeout}
}

// Analyze scores in. Any failure collapses into Fallback.
func (o *Orchestrator) Analyze(ctx context.Context, in Input) Result {
	result, err := o.analyze(ctx, in)
	if err != nil {
		log.Printf("intelligence: analysis failed for tenant %s: %v", in.TenantID, err)
		return Fallback()
	}
	return result
}

func (o *Orchestrator) analyze(ctx context.Context, in Input) (Result, error) {
	var (
		sentimentScore float64
		prediction     priority.Prediction
		duplicateScore *float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return guard("scoring", func() error {
			sentimentScore = sentiment.Score(in.Description)
			prediction = priority.Predict(in.Description, in.Category)
			return nil
		})
	})
	g.Go(func() error {
		if o.detector == nil {
			return nil
		}
		score, err := o.detectDuplicate(gctx, duplicate.Request{
			Description: in.Description,
			TenantID:    in.TenantID,
			ExcludeID:   in.ExcludeID,
		})
		if err != nil {
			// Duplicate detection degrades to "unavailable" and never
			// fails the analysis.
			log.Printf("intelligence: duplicate score unavailable for tenant %s: %v", in.TenantID, err)
			return nil
		}
		duplicateScore = &score
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	confidence := prediction.Confidence
	return Result{
		SentimentScore:    &sentimentScore,
		DuplicateScore:    duplicateScore,
		SuggestedPriority: prediction.Tier.String(),
		AIScore:           &confidence,
	}, nil
}

// detectDuplicate runs the detector under the orchestrator timeout and
// stops waiting when ctx ends even if the detector does not.
func (o *Orchestrator) detectDuplicate(ctx context.Context, req duplicate.Request) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	type outcome struct {
		score float64
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		var out outcome
		out.err = guard("duplicate", func() error {
			var err error
			out.score, err = o.detector.Detect(ctx, req)
			return err
		})
		done <- out
	}()

	select {
	case out := <-done:
		return out.score, out.err
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: %w", duplicate.ErrCorpusUnavailable, ctx.Err())
	}
}

var errPanic = errors.New("panic during analysis")

func guard(phase string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", errPanic, phase, r)
		}
	}()
	return fn()
}
