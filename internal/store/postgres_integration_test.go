package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

func openTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	databaseURL := os.Getenv("PCRM_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("PCRM_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := Open(ctx, databaseURL)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewPostgresStore(db)
}

func insertTestComplaint(t *testing.T, s *PostgresStore, tenantID, description string) Complaint {
	t.Helper()
	c := Complaint{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Description: description,
		Category:    "Water Supply",
		Status:      "OPEN",
		Priority:    "MEDIUM",
		SLAHours:    48,
	}
	if err := s.InsertComplaint(context.Background(), c); err != nil {
		t.Fatalf("insert complaint: %v", err)
	}
	return c
}

func TestRecentDescriptionsScopesTenantAndExcludes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tenant := "tenant-" + uuid.NewString()

	first := insertTestComplaint(t, s, tenant, "water pipeline burst near market")
	second := insertTestComplaint(t, s, tenant, "streetlight broken on main road")
	insertTestComplaint(t, s, "other-"+uuid.NewString(), "water pipeline burst near market")

	items, err := s.RecentDescriptions(ctx, tenant, second.ID, 10)
	if err != nil {
		t.Fatalf("recent descriptions: %v", err)
	}
	if len(items) != 1 || items[0].ID != first.ID {
		t.Fatalf("items = %+v, want only %s", items, first.ID)
	}
}

func TestSaveAnalysisMarksCompleteOnly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c := insertTestComplaint(t, s, "tenant-"+uuid.NewString(), "sewage overflow in lane four")

	sentiment := -0.5
	priority := "HIGH"
	if err := s.SaveAnalysis(ctx, c.ID, AnalysisRecord{SentimentScore: &sentiment, SuggestedPriority: &priority}); err != nil {
		t.Fatalf("save partial analysis: %v", err)
	}
	got, err := s.GetComplaint(ctx, c.ID)
	if err != nil {
		t.Fatalf("get complaint: %v", err)
	}
	if got.Analysis.Complete || got.Analysis.DuplicateScore != nil {
		t.Fatalf("partial analysis stored as %+v", got.Analysis)
	}

	dup := 0.25
	if err := s.SaveAnalysis(ctx, c.ID, AnalysisRecord{SentimentScore: &sentiment, DuplicateScore: &dup, SuggestedPriority: &priority, Complete: true}); err != nil {
		t.Fatalf("save complete analysis: %v", err)
	}
	got, err = s.GetComplaint(ctx, c.ID)
	if err != nil {
		t.Fatalf("get complaint: %v", err)
	}
	if !got.Analysis.Complete || got.Analysis.AnalyzedAt == nil {
		t.Fatalf("complete analysis stored as %+v", got.Analysis)
	}
}

func TestUpdateStatusDetectsConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c := insertTestComplaint(t, s, "tenant-"+uuid.NewString(), "garbage not collected for a week")

	change := StatusChange{ID: uuid.NewString(), ComplaintID: c.ID, FromStatus: "OPEN", ToStatus: "ASSIGNED", ActorID: "u1", ActorRole: "DEPARTMENT_HEAD"}
	if err := s.UpdateStatus(ctx, change); err != nil {
		t.Fatalf("update status: %v", err)
	}

	stale := change
	stale.ID = uuid.NewString()
	stale.ToStatus = "ESCALATED"
	if err := s.UpdateStatus(ctx, stale); !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("stale update err = %v, want ErrStatusConflict", err)
	}

	history, err := s.ListStatusHistory(ctx, c.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 1 || history[0].ToStatus != "ASSIGNED" {
		t.Fatalf("history = %+v", history)
	}
}

func TestStatusHistoryIsAppendOnly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c := insertTestComplaint(t, s, "tenant-"+uuid.NewString(), "broken pavement outside clinic")

	change := StatusChange{ID: uuid.NewString(), ComplaintID: c.ID, FromStatus: "OPEN", ToStatus: "ASSIGNED"}
	if err := s.UpdateStatus(ctx, change); err != nil {
		t.Fatalf("update status: %v", err)
	}

	for _, stmt := range []string{
		`UPDATE complaint_status_history SET note = 'edited' WHERE id = $1`,
		`DELETE FROM complaint_status_history WHERE id = $1`,
	} {
		_, err := s.DB().ExecContext(ctx, stmt, change.ID)
		var pgErr *pgconn.PgError
		if !errors.As(err, &pgErr) {
			t.Fatalf("%q err = %v, want PostgreSQL error", stmt, err)
		}
		if pgErr.SQLState() != "55000" {
			t.Fatalf("SQLSTATE = %s, want 55000", pgErr.SQLState())
		}
	}
}
