package stories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bushradio/newsdesk/internal/audit"
	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/bushradio/newsdesk/internal/logging"
	"github.com/bushradio/newsdesk/internal/roles"
	"github.com/bushradio/newsdesk/internal/workflow"
	"github.com/bushradio/newsdesk/pkg/interfaces"
	"github.com/goliatone/go-slug"
	"github.com/google/uuid"
)

// ErrTranslationWorkflow rejects direct stage transitions on translations:
// those advance through the translation sub-workflow only.
var ErrTranslationWorkflow = errors.New("stories: translations advance through the translation workflow")

// Service exposes story lifecycle use-cases.
type Service interface {
	Create(ctx context.Context, req CreateStoryRequest) (*Story, error)
	Get(ctx context.Context, id uuid.UUID) (*Story, error)
	GetBySlug(ctx context.Context, slug string) (*Story, error)
	List(ctx context.Context) ([]*Story, error)
	RequestTransition(ctx context.Context, req TransitionRequest) (*Story, error)
	Delete(ctx context.Context, req DeleteStoryRequest) error
}

// CreateStoryRequest captures the information required to create a story.
type CreateStoryRequest struct {
	Slug       string
	Title      string
	Body       string
	Language   domain.Language
	AuthorID   uuid.UUID
	AuthorRole domain.Role
	CategoryID *uuid.UUID
	AudioRefs  []string
}

// TransitionRequest asks the state machine to advance a story one edge.
type TransitionRequest struct {
	StoryID    uuid.UUID
	Transition string
	ActorID    uuid.UUID
	ActorRole  domain.Role
	// System marks engine-internal invocations (the derived
	// approved -> translated edge); external callers leave it unset.
	System         bool
	AssignReviewer *uuid.UUID
	AssignApprover *uuid.UUID
	Metadata       map[string]any
}

// DeleteStoryRequest captures a story deletion.
type DeleteStoryRequest struct {
	StoryID   uuid.UUID
	ActorID   uuid.UUID
	ActorRole domain.Role
}

// TaskOpener is notified after a story is created or advances a stage so the
// orchestrator can open the step's task. Implemented by the tasks service.
type TaskOpener interface {
	StoryCreated(ctx context.Context, story *Story) error
	StoryAdvanced(ctx context.Context, story *Story, actorID uuid.UUID) error
}

// AssignmentGuard reports whether a story still has non-terminal translation
// assignments; deletion is refused while any exist.
type AssignmentGuard interface {
	HasActiveAssignments(ctx context.Context, storyID uuid.UUID) (bool, error)
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

// IDGenerator produces identifiers for new records.
type IDGenerator func() uuid.UUID

// WithIDGenerator overrides the identifier generator.
func WithIDGenerator(generator IDGenerator) ServiceOption {
	return func(s *service) {
		if generator != nil {
			s.id = generator
		}
	}
}

// WithTaskOpener wires the orchestrator hooks invoked after story creation
// and after each stage transition.
func WithTaskOpener(opener TaskOpener) ServiceOption {
	return func(s *service) {
		s.taskOpener = opener
	}
}

// WithAssignmentGuard wires the deletion guard over translation assignments.
func WithAssignmentGuard(guard AssignmentGuard) ServiceOption {
	return func(s *service) {
		s.guard = guard
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
	repo       Repository
	engine     *workflow.Engine
	auditor    audit.Recorder
	taskOpener TaskOpener
	guard      AssignmentGuard
	logger     interfaces.Logger
	now        func() time.Time
	id         IDGenerator
}

// NewService constructs the story service.
func NewService(repo Repository, engine *workflow.Engine, auditor audit.Recorder, opts ...ServiceOption) Service {
	svc := &service{
		repo:    repo,
		engine:  engine,
		auditor: auditor,
		logger:  logging.NoOp(),
		now:     time.Now,
		id:      uuid.New,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Create registers a new draft story and opens its authoring task.
func (s *service) Create(ctx context.Context, req CreateStoryRequest) (*Story, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if req.AuthorID == uuid.Nil {
		return nil, ErrAuthorRequired
	}
	if strings.TrimSpace(string(req.Language)) == "" {
		return nil, ErrLanguageRequired
	}

	storySlug, err := s.resolveSlug(ctx, req.Slug, title)
	if err != nil {
		return nil, err
	}

	now := s.now()
	record := &Story{
		ID:         s.id(),
		Slug:       storySlug,
		Title:      title,
		Body:       req.Body,
		Stage:      domain.StageDraft,
		Language:   domain.ParseLanguage(string(req.Language)),
		AuthorID:   req.AuthorID,
		AuthorRole: req.AuthorRole,
		CategoryID: req.CategoryID,
		AudioRefs:  req.AudioRefs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}

	if s.taskOpener != nil {
		if err := s.taskOpener.StoryCreated(ctx, created); err != nil {
			// Creation and its authoring task move together; undo the story.
			_ = s.repo.Delete(ctx, created.ID)
			return nil, err
		}
	}

	s.record(ctx, audit.Event{
		EntityType: workflow.EntityTypeStory,
		EntityID:   created.ID.String(),
		Action:     "story_created",
		ActorID:    req.AuthorID,
		ToStage:    string(domain.StageDraft),
		OccurredAt: now,
		Metadata:   map[string]any{"slug": created.Slug, "language": string(created.Language)},
	})
	s.logger.Info("story.created", "story_id", created.ID.String(), "slug", created.Slug)

	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Story, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetBySlug(ctx context.Context, value string) (*Story, error) {
	return s.repo.GetBySlug(ctx, value)
}

func (s *service) List(ctx context.Context) ([]*Story, error) {
	return s.repo.List(ctx)
}

// RequestTransition validates and persists one stage transition. The stage
// write is conditioned on the stage the transition was computed from, so a
// concurrent winner leaves the loser with StaleStageError and no effect.
func (s *service) RequestTransition(ctx context.Context, req TransitionRequest) (*Story, error) {
	story, err := s.repo.GetByID(ctx, req.StoryID)
	if err != nil {
		return nil, err
	}
	if story.IsTranslation && !req.System {
		return nil, ErrTranslationWorkflow
	}

	result, err := s.engine.Transition(ctx, workflow.TransitionInput{
		ItemID:       story.ID,
		EntityType:   workflow.EntityTypeStory,
		CurrentStage: story.Stage,
		Transition:   req.Transition,
		ActorID:      req.ActorID,
		ActorRole:    req.ActorRole,
		System:       req.System,
		Metadata:     req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStage(ctx, StageUpdate{
		StoryID:        story.ID,
		From:           result.FromStage,
		To:             result.ToStage,
		At:             result.CompletedAt,
		AssignReviewer: req.AssignReviewer,
		AssignApprover: req.AssignApprover,
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Event{
		EntityType: workflow.EntityTypeStory,
		EntityID:   story.ID.String(),
		Action:     "stage_transition",
		ActorID:    req.ActorID,
		FromStage:  string(result.FromStage),
		ToStage:    string(result.ToStage),
		OccurredAt: result.CompletedAt,
		Metadata:   map[string]any{"transition": result.Transition},
	})
	s.logger.Info("story.transition",
		"story_id", story.ID.String(),
		"transition", result.Transition,
		"from", string(result.FromStage),
		"to", string(result.ToStage),
	)

	// Notify the orchestrator on every transition, system-driven edges
	// included, so the next step's task opens even when no task completion
	// caused the move. Translations carry their own assignment workflow.
	if s.taskOpener != nil && !updated.IsTranslation {
		if err := s.taskOpener.StoryAdvanced(ctx, updated, req.ActorID); err != nil {
			s.logger.Warn("story.task_hook_failed", "story_id", story.ID.String(), "error", err)
		}
	}

	return updated, nil
}

// Delete removes a story, refusing while translation work is still in flight.
func (s *service) Delete(ctx context.Context, req DeleteStoryRequest) error {
	story, err := s.repo.GetByID(ctx, req.StoryID)
	if err != nil {
		return err
	}

	if req.ActorID != story.AuthorID {
		if err := roles.Require(req.ActorRole, roles.ActionStoryDelete); err != nil {
			return err
		}
	}

	if s.guard != nil && !story.IsTranslation {
		active, err := s.guard.HasActiveAssignments(ctx, story.ID)
		if err != nil {
			return err
		}
		if active {
			return ErrActiveAssignments
		}
	}

	if err := s.repo.Delete(ctx, story.ID); err != nil {
		return err
	}

	s.record(ctx, audit.Event{
		EntityType: workflow.EntityTypeStory,
		EntityID:   story.ID.String(),
		Action:     "story_deleted",
		ActorID:    req.ActorID,
		FromStage:  string(story.Stage),
		OccurredAt: s.now(),
	})
	return nil
}

func (s *service) resolveSlug(ctx context.Context, requested, title string) (string, error) {
	source := strings.TrimSpace(requested)
	if source == "" {
		source = title
	}
	normalized, err := slug.Normalize(source)
	if err != nil || normalized == "" {
		return "", ErrSlugInvalid
	}

	if _, err := s.repo.GetBySlug(ctx, normalized); err == nil {
		return "", ErrSlugExists
	} else {
		var notFound *NotFoundError
		if !errors.As(err, &notFound) {
			return "", err
		}
	}
	return normalized, nil
}

func (s *service) record(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	_ = s.auditor.Record(ctx, event)
}
