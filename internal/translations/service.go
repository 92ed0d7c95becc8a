package translations

import (
	"context"
	"strings"
	"time"

	"github.com/bushradio/newsdesk/internal/audit"
	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/bushradio/newsdesk/internal/logging"
	"github.com/bushradio/newsdesk/internal/roles"
	"github.com/bushradio/newsdesk/internal/stories"
	"github.com/bushradio/newsdesk/internal/workflow"
	"github.com/bushradio/newsdesk/pkg/interfaces"
	"github.com/goliatone/go-slug"
	"github.com/google/uuid"
)

const entityTypeAssignment = "translation_assignment"

// StageAdvancer requests stage transitions on the original story. Implemented
// by the stories service; declared here so the sub-workflow can fire the
// derived approved to translated edge without owning stage semantics.
type StageAdvancer interface {
	RequestTransition(ctx context.Context, req stories.TransitionRequest) (*stories.Story, error)
}

// Service drives the per-language translation sub-workflow.
type Service interface {
	Assign(ctx context.Context, req AssignRequest) (*Assignment, error)
	StartWork(ctx context.Context, req StartWorkRequest) (*Assignment, error)
	SubmitForReview(ctx context.Context, req SubmitRequest) (*Assignment, error)
	Review(ctx context.Context, req ReviewRequest) (*Assignment, error)
	Get(ctx context.Context, id uuid.UUID) (*Assignment, error)
	ListForStory(ctx context.Context, originalID uuid.UUID) ([]*Assignment, error)
	// HasActiveAssignments satisfies the story deletion guard: true while any
	// assignment has not reached its terminal approved status.
	HasActiveAssignments(ctx context.Context, originalID uuid.UUID) (bool, error)
}

// AssignRequest opens one sub-workflow instance for a target language.
type AssignRequest struct {
	OriginalID   uuid.UUID
	Language     domain.Language
	TranslatorID uuid.UUID
	ActorID      uuid.UUID
	ActorRole    domain.Role
}

// StartWorkRequest begins or resumes translation work. Title and Body update
// the translated draft; empty values leave the stored draft untouched.
type StartWorkRequest struct {
	AssignmentID uuid.UUID
	ActorID      uuid.UUID
	ActorRole    domain.Role
	Title        string
	Body         string
}

// SubmitRequest hands the finished draft to a reviewer.
type SubmitRequest struct {
	AssignmentID uuid.UUID
	ReviewerID   uuid.UUID
	ActorID      uuid.UUID
}

// ReviewRequest closes a review round. Notes are required on rejection.
type ReviewRequest struct {
	AssignmentID uuid.UUID
	ActorID      uuid.UUID
	ActorRole    domain.Role
	Outcome      domain.ReviewOutcome
	Notes        string
}

// ServiceOption configures the service at construction time.
type ServiceOption func(*service)

// WithClock overrides the clock used to stamp records.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithIDGenerator overrides the identifier generator.
func WithIDGenerator(generator func() uuid.UUID) ServiceOption {
	return func(s *service) {
		if generator != nil {
			s.id = generator
		}
	}
}

// WithLogger attaches a logger to the service.
func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type service struct {
	repo     Repository
	items    stories.Repository
	advancer StageAdvancer
	auditor  audit.Recorder
	logger   interfaces.Logger
	now      func() time.Time
	id       func() uuid.UUID
}

// NewService constructs the translation sub-workflow service.
func NewService(repo Repository, items stories.Repository, advancer StageAdvancer, auditor audit.Recorder, opts ...ServiceOption) Service {
	svc := &service{
		repo:     repo,
		items:    items,
		advancer: advancer,
		auditor:  auditor,
		logger:   logging.NoOp(),
		now:      time.Now,
		id:       uuid.New,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Assign opens the unique sub-workflow instance for one (original, language) pair.
func (s *service) Assign(ctx context.Context, req AssignRequest) (*Assignment, error) {
	if err := roles.Require(req.ActorRole, roles.ActionTranslationAssign); err != nil {
		return nil, err
	}
	if req.TranslatorID == uuid.Nil {
		return nil, ErrTranslatorRequired
	}
	if strings.TrimSpace(string(req.Language)) == "" {
		return nil, ErrLanguageRequired
	}

	original, err := s.items.GetByID(ctx, req.OriginalID)
	if err != nil {
		return nil, err
	}
	if original.IsTranslation {
		return nil, stories.ErrOriginalInvalid
	}
	if original.Language == req.Language {
		return nil, ErrSameLanguage
	}
	if _, err := s.repo.GetByOriginalAndLanguage(ctx, req.OriginalID, req.Language); err == nil {
		return nil, ErrLanguageAssigned
	}

	now := s.now()
	assignment, err := s.repo.Create(ctx, &Assignment{
		ID:             s.id(),
		OriginalID:     req.OriginalID,
		TargetLanguage: req.Language,
		AssignedToID:   req.TranslatorID,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, assignment, "translation_assigned", req.ActorID, "", string(StatusPending), map[string]any{
		"language":   string(req.Language),
		"translator": req.TranslatorID.String(),
	})
	s.logger.Info("translation.assigned",
		"assignment_id", assignment.ID.String(),
		"original_id", req.OriginalID.String(),
		"language", string(req.Language),
	)
	return assignment, nil
}

// StartWork moves an assignment into in_progress and saves the translated
// draft. Safe to call repeatedly while the translator iterates; startedAt is
// stamped on first entry only.
func (s *service) StartWork(ctx context.Context, req StartWorkRequest) (*Assignment, error) {
	assignment, err := s.repo.GetByID(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	if req.ActorID != assignment.AssignedToID {
		return nil, ErrNotAssignee
	}

	switch assignment.Status {
	case StatusPending, StatusInProgress, StatusRejected:
	case StatusNeedsReview:
		// Submitted drafts are read-only to the translator until reviewed.
		return nil, ErrAlreadySubmitted
	default:
		return nil, &InvalidStatusError{AssignmentID: assignment.ID, Current: assignment.Status, Required: StatusInProgress}
	}

	original, err := s.items.GetByID(ctx, assignment.OriginalID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if assignment.TranslatedID == nil {
		translated, err := s.createTranslatedItem(ctx, assignment, original, req, now)
		if err != nil {
			return nil, err
		}
		assignment.TranslatedID = &translated.ID
	} else if req.Title != "" || req.Body != "" {
		if err := s.updateTranslatedItem(ctx, *assignment.TranslatedID, req, now); err != nil {
			return nil, err
		}
	}

	from := assignment.Status
	assignment.Status = StatusInProgress
	if assignment.StartedAt == nil {
		started := now
		assignment.StartedAt = &started
	}
	assignment.UpdatedAt = now

	updated, err := s.repo.Update(ctx, assignment)
	if err != nil {
		return nil, err
	}

	if from != StatusInProgress {
		s.record(ctx, updated, "translation_started", req.ActorID, string(from), string(StatusInProgress), nil)
	}
	return updated, nil
}

// SubmitForReview hands the draft to a reviewer. Submitting twice without a
// rejection in between is an error, not a no-op.
func (s *service) SubmitForReview(ctx context.Context, req SubmitRequest) (*Assignment, error) {
	assignment, err := s.repo.GetByID(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	if req.ActorID != assignment.AssignedToID {
		return nil, ErrNotAssignee
	}
	if req.ReviewerID == uuid.Nil {
		return nil, ErrReviewerRequired
	}
	if assignment.Status == StatusNeedsReview {
		return nil, ErrAlreadySubmitted
	}
	if assignment.Status != StatusInProgress {
		return nil, &InvalidStatusError{AssignmentID: assignment.ID, Current: assignment.Status, Required: StatusInProgress}
	}

	if assignment.TranslatedID == nil {
		return nil, ErrDraftIncomplete
	}
	translated, err := s.items.GetByID(ctx, *assignment.TranslatedID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(translated.Title) == "" || strings.TrimSpace(translated.Body) == "" {
		return nil, ErrDraftIncomplete
	}

	now := s.now()
	reviewer := req.ReviewerID
	assignment.ReviewerID = &reviewer
	assignment.Status = StatusNeedsReview
	submitted := now
	assignment.SubmittedAt = &submitted
	assignment.UpdatedAt = now

	updated, err := s.repo.Update(ctx, assignment)
	if err != nil {
		return nil, err
	}

	s.record(ctx, updated, "translation_submitted", req.ActorID, string(StatusInProgress), string(StatusNeedsReview), map[string]any{
		"reviewer": reviewer.String(),
	})
	return updated, nil
}

// Review closes one review round. Approval may fire the derived stage
// transition on the original once every sibling assignment is approved.
func (s *service) Review(ctx context.Context, req ReviewRequest) (*Assignment, error) {
	assignment, err := s.repo.GetByID(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.Status != StatusNeedsReview {
		return nil, &InvalidStatusError{AssignmentID: assignment.ID, Current: assignment.Status, Required: StatusNeedsReview}
	}
	if !s.mayReview(assignment, req.ActorID, req.ActorRole) {
		return nil, ErrNotReviewer
	}

	now := s.now()
	reviewed := now
	assignment.ReviewedAt = &reviewed
	assignment.UpdatedAt = now

	switch req.Outcome {
	case domain.OutcomeApprove:
		assignment.Status = StatusApproved
		approved := now
		assignment.ApprovedAt = &approved
	case domain.OutcomeRevise:
		if strings.TrimSpace(req.Notes) == "" {
			return nil, ErrReasonRequired
		}
		assignment.Status = StatusRejected
		rejected := now
		assignment.RejectedAt = &rejected
		assignment.RejectionReason = req.Notes
	default:
		return nil, ErrUnknownOutcome
	}

	updated, err := s.repo.Update(ctx, assignment)
	if err != nil {
		return nil, err
	}

	s.record(ctx, updated, "translation_reviewed", req.ActorID, string(StatusNeedsReview), string(updated.Status), map[string]any{
		"outcome": string(req.Outcome),
		"notes":   req.Notes,
	})

	if updated.Status == StatusApproved {
		if err := s.advanceWhenComplete(ctx, updated.OriginalID, req.ActorID, req.ActorRole); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListForStory(ctx context.Context, originalID uuid.UUID) ([]*Assignment, error) {
	return s.repo.ListByOriginal(ctx, originalID)
}

func (s *service) HasActiveAssignments(ctx context.Context, originalID uuid.UUID) (bool, error) {
	assignments, err := s.repo.ListByOriginal(ctx, originalID)
	if err != nil {
		return false, err
	}
	for _, assignment := range assignments {
		if !assignment.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

// advanceWhenComplete fires the derived approved to translated edge once
// every assignment for the original is approved. The edge is engine-internal
// and cannot be invoked by an actor directly.
func (s *service) advanceWhenComplete(ctx context.Context, originalID, actorID uuid.UUID, actorRole domain.Role) error {
	assignments, err := s.repo.ListByOriginal(ctx, originalID)
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		return nil
	}
	for _, assignment := range assignments {
		if assignment.Status != StatusApproved {
			return nil
		}
	}

	original, err := s.items.GetByID(ctx, originalID)
	if err != nil {
		return err
	}
	if original.Stage != domain.StageApproved {
		return nil
	}

	if s.advancer == nil {
		return nil
	}
	_, err = s.advancer.RequestTransition(ctx, stories.TransitionRequest{
		StoryID:    originalID,
		Transition: workflow.TransitionMarkTranslated,
		ActorID:    actorID,
		ActorRole:  actorRole,
		System:     true,
	})
	if err != nil {
		return err
	}
	s.logger.Info("translation.group_complete", "original_id", originalID.String())
	return nil
}

func (s *service) mayReview(assignment *Assignment, actorID uuid.UUID, actorRole domain.Role) bool {
	if assignment.ReviewerID != nil && *assignment.ReviewerID == actorID {
		return true
	}
	return roles.Allowed(actorRole, roles.ActionTranslationReview)
}

func (s *service) createTranslatedItem(ctx context.Context, assignment *Assignment, original *stories.Story, req StartWorkRequest, now time.Time) (*stories.Story, error) {
	title := req.Title
	if title == "" {
		title = original.Title
	}

	translatedSlug, err := slug.Normalize(original.Slug + "-" + string(assignment.TargetLanguage))
	if err != nil {
		return nil, err
	}

	// Category and audio stay references to the original's records; the
	// translated item never owns its own audio set.
	return s.items.Create(ctx, &stories.Story{
		ID:            s.id(),
		Slug:          translatedSlug,
		Title:         title,
		Body:          req.Body,
		Stage:         domain.StageDraft,
		Language:      assignment.TargetLanguage,
		IsTranslation: true,
		OriginalID:    &assignment.OriginalID,
		CategoryID:    original.CategoryID,
		AudioRefs:     append([]string(nil), original.AudioRefs...),
		AuthorID:      assignment.AssignedToID,
		AuthorRole:    req.ActorRole,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

func (s *service) updateTranslatedItem(ctx context.Context, translatedID uuid.UUID, req StartWorkRequest, now time.Time) error {
	translated, err := s.items.GetByID(ctx, translatedID)
	if err != nil {
		return err
	}
	if req.Title != "" {
		translated.Title = req.Title
	}
	if req.Body != "" {
		translated.Body = req.Body
	}
	translated.UpdatedAt = now
	_, err = s.items.Update(ctx, translated)
	return err
}

func (s *service) record(ctx context.Context, assignment *Assignment, action string, actorID uuid.UUID, from, to string, metadata map[string]any) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Record(ctx, audit.Event{
		EntityType: entityTypeAssignment,
		EntityID:   assignment.ID.String(),
		Action:     action,
		ActorID:    actorID,
		FromStage:  from,
		ToStage:    to,
		OccurredAt: s.now(),
		Metadata:   metadata,
	})
}
