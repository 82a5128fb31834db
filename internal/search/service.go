package search

import (
	"context"
	"log"
	"sync"

	"pcrm/api/internal/duplicate"
)

type primaryIndex interface {
	Searcher
	duplicate.CorpusFetcher
	IndexComplaint(rec ComplaintRecord) error
	IndexComplaints(recs []ComplaintRecord) error
	DeleteComplaint(id string) error
}

type recordLoader interface {
	LoadAllRecords(ctx context.Context) ([]ComplaintRecord, error)
}

// Service is the facade that tries Meilisearch first and falls back to
// Postgres for both text search and the recent-corpus read.
type Service struct {
	primary  primaryIndex
	fallback Searcher
	corpus   duplicate.CorpusFetcher
	loader   recordLoader
	pending  sync.WaitGroup
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured; corpus serves RecentDescriptions when Meilisearch can't.
func NewService(meili *Meili, pgfts *PgFTS, corpus duplicate.CorpusFetcher) *Service {
	s := &Service{corpus: corpus}
	if meili != nil {
		s.primary = meili
	}
	if pgfts != nil {
		s.fallback = pgfts
		s.loader = pgfts
	}
	return s
}

func (s *Service) primaryHealthy() bool {
	return s.primary != nil && s.primary.Healthy()
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.primaryHealthy() {
		results, total, err := s.primary.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// RecentDescriptions implements duplicate.CorpusFetcher.
func (s *Service) RecentDescriptions(ctx context.Context, tenantID, excludeID string, limit int) ([]duplicate.Candidate, error) {
	if s.primaryHealthy() {
		items, err := s.primary.RecentDescriptions(ctx, tenantID, excludeID, limit)
		if err == nil {
			return items, nil
		}
		log.Printf("search: meilisearch corpus error, falling back to postgres: %v", err)
	}
	if s.corpus == nil {
		return nil, duplicate.ErrCorpusUnavailable
	}
	return s.corpus.RecentDescriptions(ctx, tenantID, excludeID, limit)
}

// IndexComplaint indexes a complaint (fire-and-forget to Meilisearch).
func (s *Service) IndexComplaint(rec ComplaintRecord) {
	if !s.primaryHealthy() {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.primary.IndexComplaint(rec); err != nil {
			log.Printf("search: index complaint %s: %v", rec.ID, err)
		}
	}()
}

// DeleteComplaint removes a complaint from the search index (fire-and-forget).
func (s *Service) DeleteComplaint(id string) {
	if !s.primaryHealthy() {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.primary.DeleteComplaint(id); err != nil {
			log.Printf("search: delete complaint %s: %v", id, err)
		}
	}()
}

// Wait blocks until in-flight index writes finish.
func (s *Service) Wait() {
	s.pending.Wait()
}

// ReindexAllFromPG pushes every complaint from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if !s.primaryHealthy() || s.loader == nil {
		return
	}
	records, err := s.loader.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if err := s.primary.IndexComplaints(records); err != nil {
		log.Printf("search: reindex complaints: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
