package publish

import (
	"context"
	"errors"
	"time"

	"github.com/bushradio/newsdesk/internal/audit"
	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/bushradio/newsdesk/internal/logging"
	"github.com/bushradio/newsdesk/internal/roles"
	"github.com/bushradio/newsdesk/internal/stories"
	"github.com/bushradio/newsdesk/internal/tasks"
	"github.com/bushradio/newsdesk/internal/translations"
	"github.com/bushradio/newsdesk/pkg/interfaces"
	"github.com/google/uuid"
)

var (
	ErrNotReady         = errors.New("publish: group is not ready for release")
	ErrAlreadyPublished = errors.New("publish: original is already published")
	ErrNotOriginal      = errors.New("publish: group publish targets originals only")
)

// AssignmentReader exposes the translation assignments of an original story.
// Implemented by the translations service.
type AssignmentReader interface {
	ListForStory(ctx context.Context, originalID uuid.UUID) ([]*translations.Assignment, error)
}

// TaskCanceller retires open tasks a direct publish supersedes. Implemented
// by the task orchestrator.
type TaskCanceller interface {
	CancelOpenForContent(ctx context.Context, contentID uuid.UUID, taskType tasks.Type, actorID uuid.UUID) error
}

// Request asks for the atomic release of an original and its translations.
type Request struct {
	OriginalID uuid.UUID
	ActorID    uuid.UUID
	ActorRole  domain.Role
}

// Result reports what one group publish released.
type Result struct {
	OriginalID  uuid.UUID
	MemberIDs   []uuid.UUID
	PublishedAt time.Time
}

// Coordinator decides when an original and all its translations are
// simultaneously releasable and performs the multi-record publish.
type Coordinator interface {
	IsGroupReady(ctx context.Context, originalID uuid.UUID) (bool, error)
	PublishGroup(ctx context.Context, req Request) (*Result, error)
}

// Option configures the coordinator at construction time.
type Option func(*coordinator)

// WithClock overrides the clock used for the shared publishedAt stamp.
func WithClock(clock func() time.Time) Option {
	return func(c *coordinator) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithTaskCanceller wires the hook that retires superseded publish tasks.
func WithTaskCanceller(canceller TaskCanceller) Option {
	return func(c *coordinator) {
		c.canceller = canceller
	}
}

// WithLogger attaches a logger to the coordinator.
func WithLogger(logger interfaces.Logger) Option {
	return func(c *coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

type coordinator struct {
	items       stories.Repository
	assignments AssignmentReader
	canceller   TaskCanceller
	auditor     audit.Recorder
	logger      interfaces.Logger
	now         func() time.Time
}

// NewCoordinator constructs the group publish coordinator.
func NewCoordinator(items stories.Repository, assignments AssignmentReader, auditor audit.Recorder, opts ...Option) Coordinator {
	c := &coordinator{
		items:       items,
		assignments: assignments,
		auditor:     auditor,
		logger:      logging.NoOp(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsGroupReady reports whether the original and every translation can be
// released together: stage translated with all assignments approved, or
// stage approved with no assignments at all (nothing to wait for).
func (c *coordinator) IsGroupReady(ctx context.Context, originalID uuid.UUID) (bool, error) {
	original, err := c.items.GetByID(ctx, originalID)
	if err != nil {
		return false, err
	}
	if original.IsTranslation {
		return false, ErrNotOriginal
	}

	group, err := c.assignments.ListForStory(ctx, originalID)
	if err != nil {
		return false, err
	}

	switch original.Stage {
	case domain.StageTranslated:
		for _, assignment := range group {
			if assignment.Status != translations.StatusApproved {
				return false, nil
			}
		}
		return true, nil
	case domain.StageApproved:
		return len(group) == 0, nil
	default:
		return false, nil
	}
}

// PublishGroup atomically releases the original plus every approved
// translation. All members receive the same publishedAt stamp; a failure on
// any member leaves every member untouched.
func (c *coordinator) PublishGroup(ctx context.Context, req Request) (*Result, error) {
	if err := roles.Require(req.ActorRole, roles.ActionStoryPublish); err != nil {
		return nil, err
	}

	original, err := c.items.GetByID(ctx, req.OriginalID)
	if err != nil {
		return nil, err
	}
	if original.IsTranslation {
		return nil, ErrNotOriginal
	}
	if original.Stage == domain.StagePublished {
		return nil, ErrAlreadyPublished
	}

	ready, err := c.IsGroupReady(ctx, req.OriginalID)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, ErrNotReady
	}

	group, err := c.assignments.ListForStory(ctx, req.OriginalID)
	if err != nil {
		return nil, err
	}

	members := make([]uuid.UUID, 0, len(group)+1)
	members = append(members, original.ID)
	for _, assignment := range group {
		if assignment.TranslatedID != nil {
			members = append(members, *assignment.TranslatedID)
		}
	}

	at := c.now()
	if err := c.items.PublishGroup(ctx, members, at); err != nil {
		return nil, err
	}

	if c.canceller != nil {
		if err := c.canceller.CancelOpenForContent(ctx, original.ID, tasks.TypeStoryPublish, req.ActorID); err != nil {
			c.logger.Warn("publish.task_cancel_failed", "original_id", original.ID.String(), "error", err)
		}
	}

	if c.auditor != nil {
		memberIDs := make([]string, len(members))
		for i, id := range members {
			memberIDs[i] = id.String()
		}
		_ = c.auditor.Record(ctx, audit.Event{
			EntityType: "story",
			EntityID:   original.ID.String(),
			Action:     "group_published",
			ActorID:    req.ActorID,
			FromStage:  string(original.Stage),
			ToStage:    string(domain.StagePublished),
			OccurredAt: at,
			Metadata:   map[string]any{"members": memberIDs},
		})
	}
	c.logger.Info("publish.group_released",
		"original_id", original.ID.String(),
		"members", len(members),
	)

	return &Result{OriginalID: original.ID, MemberIDs: members, PublishedAt: at}, nil
}
