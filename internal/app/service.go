package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"pcrm/api/internal/config"
	"pcrm/api/internal/corpus"
	"pcrm/api/internal/events"
	"pcrm/api/internal/intelligence"
	"pcrm/api/internal/lifecycle"
	"pcrm/api/internal/priority"
	"pcrm/api/internal/rbac"
	"pcrm/api/internal/search"
	"pcrm/api/internal/sla"
	"pcrm/api/internal/store"
)

// Actor is the authenticated staff member behind a call.
type Actor struct {
	ID   string
	Role rbac.Role
}

type CreateComplaintInput struct {
	TenantID     string `json:"tenantId"`
	DepartmentID string `json:"departmentId"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	SLAHours     int    `json:"slaHours"`
}

type dataStore interface {
	InsertComplaint(context.Context, store.Complaint) error
	GetComplaint(context.Context, string) (store.Complaint, error)
	SaveAnalysis(context.Context, string, store.AnalysisRecord) error
	ListPendingAnalysis(context.Context, int) ([]store.Complaint, error)
	UpdateStatus(context.Context, store.StatusChange) error
	ListStatusHistory(context.Context, string) ([]store.StatusChange, error)
	SoftDeleteComplaint(context.Context, string) error
	Ping(context.Context) error
}

type analyzer interface {
	Analyze(context.Context, intelligence.Input) intelligence.Result
}

type corpusCache interface {
	Invalidate(context.Context, string) error
	Ping(context.Context) error
}

type searchIndex interface {
	search.Indexer
	Search(context.Context, search.Query) search.Response
}

// Deps are the collaborators of Service. Corpus, Search and Events are
// optional.
type Deps struct {
	Store    *store.PostgresStore
	Analyzer *intelligence.Orchestrator
	Corpus   *corpus.RedisCache
	Search   *search.Service
	Events   events.Publisher
}

type Service struct {
	cfg      config.Config
	store    dataStore
	analyzer analyzer
	corpus   corpusCache
	index    searchIndex
	events   events.Publisher
	sla      sla.Calculator
	newID    func() string
	now      func() time.Time
}

// New panics without a store. A nil Analyzer falls back to an orchestrator
// that scores without duplicate detection.
func New(cfg config.Config, deps Deps) *Service {
	if deps.Store == nil {
		panic("app: New requires a store")
	}
	s := &Service{
		cfg:    cfg,
		store:  deps.Store,
		events: deps.Events,
		sla:    sla.New(),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	if deps.Analyzer != nil {
		s.analyzer = deps.Analyzer
	} else {
		s.analyzer = intelligence.New(nil, cfg.AnalysisTimeout)
	}
	if deps.Corpus != nil {
		s.corpus = deps.Corpus
	}
	if deps.Search != nil {
		s.index = deps.Search
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	return s
}

// CreateComplaint stores a new OPEN complaint and analyzes it. Analysis
// never fails the call; a partial result is stored as pending.
func (s *Service) CreateComplaint(ctx context.Context, actor Actor, in CreateComplaintInput) (store.Complaint, intelligence.Result, error) {
	if !rbac.Can(actor.Role, rbac.ActionCreate) {
		return store.Complaint{}, intelligence.Result{}, domainError(http.StatusForbidden, CodeForbidden, "role cannot create complaints", nil)
	}
	in.TenantID = strings.TrimSpace(in.TenantID)
	in.Description = strings.TrimSpace(in.Description)
	if in.TenantID == "" {
		return store.Complaint{}, intelligence.Result{}, domainError(http.StatusUnprocessableEntity, CodeValidation, "tenantId is required", nil)
	}
	if in.Description == "" {
		return store.Complaint{}, intelligence.Result{}, domainError(http.StatusUnprocessableEntity, CodeValidation, "description is required", nil)
	}
	if in.SLAHours < 0 {
		return store.Complaint{}, intelligence.Result{}, domainError(http.StatusUnprocessableEntity, CodeValidation, "slaHours must be positive", nil)
	}
	if in.SLAHours == 0 {
		in.SLAHours = s.cfg.DefaultSLAHours
	}

	complaint := store.Complaint{
		ID:           s.newID(),
		TenantID:     in.TenantID,
		DepartmentID: strings.TrimSpace(in.DepartmentID),
		Description:  in.Description,
		Category:     strings.TrimSpace(in.Category),
		Status:       string(lifecycle.StatusOpen),
		Priority:     priority.Medium.String(),
		SLAHours:     in.SLAHours,
		CreatedAt:    s.now().UTC(),
	}
	complaint.UpdatedAt = complaint.CreatedAt
	if err := s.store.InsertComplaint(ctx, complaint); err != nil {
		return store.Complaint{}, intelligence.Result{}, err
	}
	s.invalidateCorpus(ctx, complaint.TenantID)

	result, err := s.AnalyzeComplaint(ctx, complaint)
	if err != nil {
		return store.Complaint{}, intelligence.Result{}, err
	}
	complaint.Analysis = analysisRecord(result)
	return complaint, result, nil
}

// AnalyzeComplaint runs the intelligence pipeline for a stored complaint,
// persists the scores and announces them.
func (s *Service) AnalyzeComplaint(ctx context.Context, complaint store.Complaint) (intelligence.Result, error) {
	result := s.analyzer.Analyze(ctx, intelligence.Input{
		Description: complaint.Description,
		Category:    complaint.Category,
		TenantID:    complaint.TenantID,
		ExcludeID:   complaint.ID,
	})

	if err := s.store.SaveAnalysis(ctx, complaint.ID, analysisRecord(result)); err != nil {
		return intelligence.Result{}, fmt.Errorf("persist analysis for %s: %w", complaint.ID, err)
	}

	if err := s.events.PublishAnalysis(ctx, events.AnalysisEvent{
		ComplaintID: complaint.ID,
		TenantID:    complaint.TenantID,
		Result:      result,
	}); err != nil {
		log.Printf("app: publish analysis for %s: %v", complaint.ID, err)
	}
	s.indexComplaint(complaint)
	return result, nil
}

// Reanalyze recomputes the scores of an existing complaint.
func (s *Service) Reanalyze(ctx context.Context, complaintID string) (intelligence.Result, error) {
	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return intelligence.Result{}, err
	}
	return s.AnalyzeComplaint(ctx, complaint)
}

// ReanalyzePending retries complaints whose analysis is missing or partial.
// It returns how many were re-analyzed and keeps going past single failures.
func (s *Service) ReanalyzePending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = s.cfg.ReanalyzeBatch
	}
	pending, err := s.store.ListPendingAnalysis(ctx, limit)
	if err != nil {
		return 0, err
	}

	done := 0
	var errs []error
	for _, complaint := range pending {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := s.AnalyzeComplaint(ctx, complaint); err != nil {
			errs = append(errs, err)
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

// ChangeStatus moves a complaint along the lifecycle on behalf of actor and
// appends the change to the status history.
func (s *Service) ChangeStatus(ctx context.Context, actor Actor, complaintID, to, note string) (store.Complaint, error) {
	target, err := lifecycle.Parse(to)
	if err != nil {
		return store.Complaint{}, domainError(http.StatusUnprocessableEntity, CodeValidation, err.Error(), nil)
	}
	if !rbac.Can(actor.Role, rbac.ActionUpdateStatus) {
		return store.Complaint{}, domainError(http.StatusForbidden, CodeForbidden, "role cannot update complaint status", nil)
	}

	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return store.Complaint{}, err
	}
	from := lifecycle.Status(complaint.Status)

	if !rbac.CanTransition(actor.Role, target) {
		return store.Complaint{}, domainError(http.StatusForbidden, CodeForbiddenTransition,
			fmt.Sprintf("role %s cannot move complaints to %s", actor.Role, target),
			map[string]any{"allowed": rbac.AllowedTransitions(actor.Role, from)})
	}
	if err := lifecycle.AssertValidTransition(from, target); err != nil {
		var transitionErr *lifecycle.TransitionError
		if errors.As(err, &transitionErr) {
			return store.Complaint{}, domainError(http.StatusConflict, CodeInvalidTransition, transitionErr.Error(),
				map[string]any{"from": transitionErr.From, "to": transitionErr.To, "allowed": transitionErr.Allowed})
		}
		return store.Complaint{}, err
	}

	change := store.StatusChange{
		ID:          s.newID(),
		ComplaintID: complaint.ID,
		FromStatus:  string(from),
		ToStatus:    string(target),
		ActorID:     actor.ID,
		ActorRole:   string(actor.Role),
		Note:        strings.TrimSpace(note),
	}
	if err := s.store.UpdateStatus(ctx, change); err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			return store.Complaint{}, domainError(http.StatusConflict, CodeStatusConflict, "complaint status changed, reload and retry", nil)
		}
		return store.Complaint{}, err
	}
	complaint.Status = string(target)

	if err := s.events.PublishStatusChange(ctx, events.StatusEvent{
		ComplaintID: complaint.ID,
		TenantID:    complaint.TenantID,
		From:        change.FromStatus,
		To:          change.ToStatus,
		ActorID:     change.ActorID,
		ActorRole:   change.ActorRole,
		Note:        change.Note,
	}); err != nil {
		log.Printf("app: publish status change for %s: %v", complaint.ID, err)
	}
	s.indexComplaint(complaint)
	return complaint, nil
}

// NextStatuses lists the statuses actor may move the complaint to.
func (s *Service) NextStatuses(ctx context.Context, actor Actor, complaintID string) ([]lifecycle.Status, error) {
	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	return rbac.AllowedTransitions(actor.Role, lifecycle.Status(complaint.Status)), nil
}

func (s *Service) StatusHistory(ctx context.Context, complaintID string) ([]store.StatusChange, error) {
	if _, err := s.getComplaint(ctx, complaintID); err != nil {
		return nil, err
	}
	return s.store.ListStatusHistory(ctx, complaintID)
}

// SLA summarizes the deadline of a complaint against the current time.
func (s *Service) SLA(ctx context.Context, complaintID string) (sla.Summary, error) {
	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return sla.Summary{}, err
	}
	summary, err := s.sla.Summary(complaint.CreatedAt, complaint.SLAHours)
	if errors.Is(err, sla.ErrInvalidHours) {
		return sla.Summary{}, domainError(http.StatusUnprocessableEntity, CodeValidation, err.Error(), nil)
	}
	return summary, err
}

func (s *Service) SearchComplaints(ctx context.Context, actor Actor, q search.Query) (search.Response, error) {
	if !rbac.Can(actor.Role, rbac.ActionRead) {
		return search.Response{}, domainError(http.StatusForbidden, CodeForbidden, "role cannot read complaints", nil)
	}
	if strings.TrimSpace(q.TenantID) == "" {
		return search.Response{}, domainError(http.StatusUnprocessableEntity, CodeValidation, "tenantId is required", nil)
	}
	if s.index == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}, nil
	}
	return s.index.Search(ctx, q), nil
}

// DeleteComplaint soft-deletes a complaint and drops it from the corpus
// and the search index.
func (s *Service) DeleteComplaint(ctx context.Context, actor Actor, complaintID string) error {
	if !rbac.Can(actor.Role, rbac.ActionDelete) {
		return domainError(http.StatusForbidden, CodeForbidden, "role cannot delete complaints", nil)
	}
	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return err
	}
	if err := s.store.SoftDeleteComplaint(ctx, complaint.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(complaint.ID)
		}
		return err
	}
	s.invalidateCorpus(ctx, complaint.TenantID)
	if s.index != nil {
		s.index.DeleteComplaint(complaint.ID)
	}
	return nil
}

// Health reports reachability of the store and the optional corpus cache.
func (s *Service) Health(ctx context.Context) map[string]bool {
	status := map[string]bool{"database": s.store.Ping(ctx) == nil}
	if s.corpus != nil {
		status["redis"] = s.corpus.Ping(ctx) == nil
	}
	return status
}

func (s *Service) getComplaint(ctx context.Context, complaintID string) (store.Complaint, error) {
	complaint, err := s.store.GetComplaint(ctx, complaintID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Complaint{}, notFound(complaintID)
	}
	if err != nil {
		return store.Complaint{}, fmt.Errorf("load complaint %s: %w", complaintID, err)
	}
	return complaint, nil
}

func (s *Service) invalidateCorpus(ctx context.Context, tenantID string) {
	if s.corpus == nil {
		return
	}
	if err := s.corpus.Invalidate(ctx, tenantID); err != nil {
		log.Printf("app: invalidate corpus for tenant %s: %v", tenantID, err)
	}
}

func (s *Service) indexComplaint(c store.Complaint) {
	if s.index == nil {
		return
	}
	s.index.IndexComplaint(search.ComplaintRecord{
		ID:          c.ID,
		TenantID:    c.TenantID,
		Description: c.Description,
		Category:    c.Category,
		Status:      c.Status,
		Deleted:     c.DeletedAt != nil,
		CreatedAt:   c.CreatedAt.UnixMilli(),
	})
}

func analysisRecord(r intelligence.Result) store.AnalysisRecord {
	rec := store.AnalysisRecord{
		SentimentScore: r.SentimentScore,
		DuplicateScore: r.DuplicateScore,
		AIScore:        r.AIScore,
		Complete:       r.Complete(),
	}
	if r.SuggestedPriority != "" {
		suggested := r.SuggestedPriority
		rec.SuggestedPriority = &suggested
	}
	return rec
}

func notFound(complaintID string) *DomainError {
	return domainError(http.StatusNotFound, CodeNotFound, "complaint not found", map[string]any{"id": complaintID})
}
