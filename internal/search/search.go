// Package search indexes complaints in Meilisearch and serves text search
// and recent-corpus reads, falling back to Postgres when Meilisearch is
// unavailable.
package search

import "context"

// Result is a single search hit returned to the caller.
type Result struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Snippet  string `json:"snippet"`
}

// Query describes a search request. TenantID is mandatory.
type Query struct {
	Text     string
	TenantID string
	Status   string // empty = any status
	Limit    int
	Offset   int
}

// Response is the envelope returned to search callers.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over complaints.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push complaints into a search index.
type Indexer interface {
	IndexComplaint(rec ComplaintRecord)
	DeleteComplaint(id string)
}

// ComplaintRecord is the data we index for a complaint. CreatedAt is unix
// milliseconds so the index can sort on it.
type ComplaintRecord struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	Deleted     bool   `json:"deleted"`
	CreatedAt   int64  `json:"createdAt"`
}
