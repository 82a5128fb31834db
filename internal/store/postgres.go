package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pcrm/api/internal/duplicate"
)

// ErrStatusConflict is returned when a complaint's status changed between
// read and update.
var ErrStatusConflict = errors.New("complaint status changed concurrently")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RecentDescriptions implements duplicate.CorpusFetcher: the newest
// non-deleted complaints of a tenant.
func (s *PostgresStore) RecentDescriptions(ctx context.Context, tenantID, excludeID string, limit int) ([]duplicate.Candidate, error) {
	if limit <= 0 {
		limit = duplicate.CorpusLimit
	}
	limit = min(limit, duplicate.MaxFetch)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description
		FROM complaints
		WHERE tenant_id = $1
			AND deleted_at IS NULL
			AND ($2 = '' OR id <> $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, tenantID, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent descriptions: %w", err)
	}
	defer rows.Close()

	items := make([]duplicate.Candidate, 0, limit)
	for rows.Next() {
		var item duplicate.Candidate
		if err := rows.Scan(&item.ID, &item.Description); err != nil {
			return nil, fmt.Errorf("scan recent description: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent descriptions: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertComplaint(ctx context.Context, c Complaint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO complaints (id, tenant_id, department_id, description, category, status, priority, sla_hours, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, COALESCE($9, NOW()), COALESCE($9, NOW()))
	`, c.ID, c.TenantID, c.DepartmentID, c.Description, c.Category, c.Status, c.Priority, c.SLAHours, nullTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert complaint: %w", err)
	}
	return nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

const complaintColumns = `
	id, tenant_id, COALESCE(department_id, ''), description, category, status, priority, sla_hours,
	sentiment_score, duplicate_score, suggested_priority, ai_score, analyzed_at,
	created_at, updated_at, deleted_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComplaint(row rowScanner) (Complaint, error) {
	var c Complaint
	err := row.Scan(
		&c.ID, &c.TenantID, &c.DepartmentID, &c.Description, &c.Category, &c.Status, &c.Priority, &c.SLAHours,
		&c.Analysis.SentimentScore, &c.Analysis.DuplicateScore, &c.Analysis.SuggestedPriority, &c.Analysis.AIScore, &c.Analysis.AnalyzedAt,
		&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	)
	c.Analysis.Complete = c.Analysis.AnalyzedAt != nil
	return c, err
}

// GetComplaint returns sql.ErrNoRows for unknown or deleted complaints.
func (s *PostgresStore) GetComplaint(ctx context.Context, complaintID string) (Complaint, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id=$1 AND deleted_at IS NULL`, complaintID)
	c, err := scanComplaint(row)
	if err != nil {
		return Complaint{}, err
	}
	return c, nil
}

// SaveAnalysis overwrites the scores of a complaint. analyzed_at is only
// set for complete analyses.
func (s *PostgresStore) SaveAnalysis(ctx context.Context, complaintID string, rec AnalysisRecord) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE complaints
		SET sentiment_score = $2,
			duplicate_score = $3,
			suggested_priority = $4,
			ai_score = $5,
			analyzed_at = CASE WHEN $6 THEN NOW() ELSE NULL END,
			updated_at = NOW()
		WHERE id = $1
	`, complaintID, rec.SentimentScore, rec.DuplicateScore, rec.SuggestedPriority, rec.AIScore, rec.Complete)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListPendingAnalysis returns complaints without a complete analysis,
// oldest first.
func (s *PostgresStore) ListPendingAnalysis(ctx context.Context, limit int) ([]Complaint, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+complaintColumns+`
		FROM complaints
		WHERE analyzed_at IS NULL AND deleted_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending analysis: %w", err)
	}
	defer rows.Close()

	items := make([]Complaint, 0)
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate complaints: %w", err)
	}
	return items, nil
}

// UpdateStatus moves a complaint from change.FromStatus to change.ToStatus
// and appends the history entry in the same transaction. It returns
// ErrStatusConflict when the stored status is no longer FromStatus.
func (s *PostgresStore) UpdateStatus(ctx context.Context, change StatusChange) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status tx: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE complaints
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2 AND deleted_at IS NULL
	`, change.ComplaintID, change.FromStatus, change.ToStatus)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update status rows: %w", err)
	}
	if n == 0 {
		_ = tx.Rollback()
		return ErrStatusConflict
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO complaint_status_history (id, complaint_id, from_status, to_status, actor_id, actor_role, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, change.ID, change.ComplaintID, change.FromStatus, change.ToStatus, change.ActorID, change.ActorRole, change.Note); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("append status history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status tx: %w", err)
	}
	return nil
}

// ListStatusHistory returns the history of a complaint, oldest first.
func (s *PostgresStore) ListStatusHistory(ctx context.Context, complaintID string) ([]StatusChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, complaint_id, from_status, to_status, actor_id, actor_role, note, created_at
		FROM complaint_status_history
		WHERE complaint_id = $1
		ORDER BY created_at ASC, id ASC
	`, complaintID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	items := make([]StatusChange, 0)
	for rows.Next() {
		var item StatusChange
		if err := rows.Scan(&item.ID, &item.ComplaintID, &item.FromStatus, &item.ToStatus, &item.ActorID, &item.ActorRole, &item.Note, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status history: %w", err)
	}
	return items, nil
}

// SoftDeleteComplaint hides a complaint from reads and the duplicate corpus.
func (s *PostgresStore) SoftDeleteComplaint(ctx context.Context, complaintID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE complaints SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, complaintID)
	if err != nil {
		return fmt.Errorf("soft delete complaint: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
