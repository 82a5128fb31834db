package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"

	"pcrm/api/internal/duplicate"
)

const idxComplaints = "pcrm_complaints"

// Meili implements Searcher and the recent-corpus read via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the complaint index.
// An unreachable server leaves the client unhealthy until the health loop
// sees it recover.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxComplaints,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxComplaints, err)
	}

	index := m.client.Index(idxComplaints)
	filterable := []interface{}{"id", "tenantId", "status", "deleted"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxComplaints, err)
	}
	sortable := []string{"createdAt"}
	if _, err := index.UpdateSortableAttributes(&sortable); err != nil {
		log.Printf("search: update sortable attrs for %s: %v", idxComplaints, err)
	}
	searchable := []string{"description", "category"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxComplaints, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search runs a text query scoped to one tenant.
func (m *Meili) Search(_ context.Context, q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	resp, err := m.client.Index(idxComplaints).Search(q.Text, searchRequest(q))
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, hitToResult(hit))
	}
	return results, int(resp.EstimatedTotalHits), nil
}

// RecentDescriptions implements duplicate.CorpusFetcher from the index.
func (m *Meili) RecentDescriptions(_ context.Context, tenantID, excludeID string, limit int) ([]duplicate.Candidate, error) {
	if !m.healthy.Load() {
		return nil, fmt.Errorf("meilisearch unhealthy")
	}

	resp, err := m.client.Index(idxComplaints).Search("", recentRequest(tenantID, excludeID, limit))
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch recent corpus: %w", err)
	}

	items := make([]duplicate.Candidate, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		items = append(items, duplicate.Candidate{
			ID:          decodeString(hit, "id"),
			Description: decodeString(hit, "description"),
		})
	}
	return items, nil
}

func searchRequest(q Query) *meili.SearchRequest {
	limit := int64(q.Limit)
	if limit <= 0 {
		limit = 20
	}
	filters := []string{
		fmt.Sprintf("tenantId = %q", q.TenantID),
		"deleted = false",
	}
	if q.Status != "" {
		filters = append(filters, fmt.Sprintf("status = %q", q.Status))
	}
	return &meili.SearchRequest{
		Limit:                 limit,
		Offset:                int64(q.Offset),
		Filter:                filters,
		AttributesToHighlight: []string{"description"},
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	}
}

func recentRequest(tenantID, excludeID string, limit int) *meili.SearchRequest {
	if limit <= 0 {
		limit = duplicate.CorpusLimit
	}
	limit = min(limit, duplicate.MaxFetch)
	filters := []string{
		fmt.Sprintf("tenantId = %q", tenantID),
		"deleted = false",
	}
	if excludeID != "" {
		filters = append(filters, fmt.Sprintf("id != %q", excludeID))
	}
	return &meili.SearchRequest{
		Limit:  int64(limit),
		Filter: filters,
		Sort:   []string{"createdAt:desc"},
	}
}

func hitToResult(hit meili.Hit) Result {
	return Result{
		ID:       decodeString(hit, "id"),
		Category: decodeString(hit, "category"),
		Status:   decodeString(hit, "status"),
		Snippet:  firstNonBlank(decodeFormattedString(hit, "description"), decodeString(hit, "description")),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]json.RawMessage
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(formatted[key], &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexComplaint adds or updates a complaint in the search index.
func (m *Meili) IndexComplaint(rec ComplaintRecord) error {
	_, err := m.client.Index(idxComplaints).AddDocuments([]ComplaintRecord{rec}, nil)
	return err
}

// IndexComplaints bulk-indexes complaints.
func (m *Meili) IndexComplaints(recs []ComplaintRecord) error {
	if len(recs) == 0 {
		return nil
	}
	_, err := m.client.Index(idxComplaints).AddDocuments(recs, nil)
	return err
}

// DeleteComplaint removes a complaint from the search index.
func (m *Meili) DeleteComplaint(id string) error {
	_, err := m.client.Index(idxComplaints).DeleteDocument(id, nil)
	return err
}
