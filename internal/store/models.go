package store

import "time"

type Complaint struct {
	ID           string
	TenantID     string
	DepartmentID string
	Description  string
	Category     string
	Status       string
	Priority     string
	SLAHours     int
	Analysis     AnalysisRecord
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// AnalysisRecord holds the intelligence scores of a complaint. Nil fields
// are stored as NULL and shown as pending analysis.
type AnalysisRecord struct {
	SentimentScore    *float64
	DuplicateScore    *float64
	SuggestedPriority *string
	AIScore           *float64
	// Complete marks the analysis as final; incomplete rows are picked up
	// again by ListPendingAnalysis.
	Complete   bool
	AnalyzedAt *time.Time
}

// StatusChange is one entry of the append-only status history.
type StatusChange struct {
	ID          string
	ComplaintID string
	FromStatus  string
	ToStatus    string
	ActorID     string
	ActorRole   string
	Note        string
	CreatedAt   time.Time
}
