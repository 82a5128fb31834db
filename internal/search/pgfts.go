package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher with PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; without Postgres nothing else works either.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search ranks a tenant's complaints with plainto_tsquery and ts_rank and
// uses ts_headline for snippets.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := max(q.Offset, 0)

	where := "c.tenant_id = $2 AND c.deleted_at IS NULL AND to_tsvector('english', c.description) @@ plainto_tsquery('english', $1)"
	args := []any{q.Text, q.TenantID}
	if q.Status != "" {
		where += fmt.Sprintf(" AND c.status = $%d", len(args)+1)
		args = append(args, q.Status)
	}

	var total int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM complaints c WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT c.id, c.category, c.status,
			ts_headline('english', c.description, plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30,StartSel=<mark>,StopSel=</mark>')
		FROM complaints c
		WHERE %s
		ORDER BY ts_rank(to_tsvector('english', c.description), plainto_tsquery('english', $1)) DESC, c.created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts search: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0, limit)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Category, &r.Status, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgfts rows: %w", err)
	}
	return results, total, nil
}

// LoadAllRecords reads every complaint as an index record, for reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ComplaintRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, tenant_id, description, category, status, deleted_at IS NOT NULL,
			(EXTRACT(EPOCH FROM created_at) * 1000)::BIGINT
		FROM complaints
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("load complaint records: %w", err)
	}
	defer rows.Close()

	records := make([]ComplaintRecord, 0)
	for rows.Next() {
		var rec ComplaintRecord
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.Description, &rec.Category, &rec.Status, &rec.Deleted, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan complaint record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate complaint records: %w", err)
	}
	return records, nil
}
