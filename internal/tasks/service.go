package tasks

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bushradio/newsdesk/internal/audit"
	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/bushradio/newsdesk/internal/logging"
	"github.com/bushradio/newsdesk/internal/roles"
	"github.com/bushradio/newsdesk/internal/stories"
	"github.com/bushradio/newsdesk/internal/workflow"
	"github.com/bushradio/newsdesk/pkg/interfaces"
	"github.com/google/uuid"
)

const entityTypeTask = "task"

// StageMachine is the slice of the story service the orchestrator drives:
// reading the current stage and requesting the transition a completed task
// implies.
type StageMachine interface {
	Get(ctx context.Context, id uuid.UUID) (*stories.Story, error)
	RequestTransition(ctx context.Context, req stories.TransitionRequest) (*stories.Story, error)
}

// Releaser performs the atomic group release a completed publish task
// requests. Implemented by the publish coordinator: the original and every
// translation move to published in one write, so the orchestrator never
// advances the stage of a publish-task story itself.
type Releaser interface {
	Release(ctx context.Context, originalID, actorID uuid.UUID, actorRole domain.Role) error
}

// Service turns stage transitions into concrete, assigned units of work.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Task, error)
	Start(ctx context.Context, taskID, actorID uuid.UUID) (*Task, error)
	Complete(ctx context.Context, req CompleteRequest) (*Task, error)
	Reassign(ctx context.Context, req ReassignRequest) (*Task, error)
	Cancel(ctx context.Context, taskID, actorID uuid.UUID, actorRole domain.Role) (*Task, error)
	Block(ctx context.Context, taskID, actorID uuid.UUID, reason string) (*Task, error)
	Unblock(ctx context.Context, taskID, actorID uuid.UUID) (*Task, error)
	Get(ctx context.Context, id uuid.UUID) (*Task, error)
	List(ctx context.Context) ([]*Task, error)
	Inbox(ctx context.Context, assigneeID uuid.UUID) ([]*Task, error)
	// CancelOpenForContent closes any open task of one type for a content
	// record; the publish coordinator uses it to retire publish tasks a
	// direct group publish superseded.
	CancelOpenForContent(ctx context.Context, contentID uuid.UUID, taskType Type, actorID uuid.UUID) error

	// StoryCreated opens the authoring task for a fresh draft; it is the
	// hook the story service invokes on create.
	StoryCreated(ctx context.Context, story *stories.Story) error

	// StoryAdvanced opens the task for the step a story just entered; it is
	// the hook the story service invokes after every stage transition,
	// actor-driven or system-driven alike.
	StoryAdvanced(ctx context.Context, story *stories.Story, actorID uuid.UUID) error
}

// CreateRequest captures the information required to open a task.
type CreateRequest struct {
	Type           Type
	Content        ContentRef
	AssigneeID     *uuid.UUID
	CreatedByID    uuid.UUID
	Priority       Priority
	DueDate        *time.Time
	TargetLanguage domain.Language
	Metadata       map[string]any
}

// CompleteRequest closes a task with an outcome. For story tasks the outcome
// selects the stage edge the completion requests.
type CompleteRequest struct {
	TaskID    uuid.UUID
	ActorID   uuid.UUID
	ActorRole domain.Role
	Outcome   domain.ReviewOutcome
	Metadata  map[string]any
}

// ReassignRequest hands a task to a new assignee.
type ReassignRequest struct {
	TaskID        uuid.UUID
	NewAssigneeID uuid.UUID
	ActorID       uuid.UUID
	ActorRole     domain.Role
}

// DefaultSLATable maps each task type to the time its step is allowed to
// dwell before it counts as overdue.
func DefaultSLATable() map[Type]time.Duration {
	return map[Type]time.Duration{
		TypeStoryCreate:   7 * 24 * time.Hour,
		TypeStoryReview:   2 * 24 * time.Hour,
		TypeStoryApproval: 2 * 24 * time.Hour,
		TypeStoryPublish:  24 * time.Hour,
		TypeStoryFollowUp: 3 * 24 * time.Hour,
		TypeTranslation:   7 * 24 * time.Hour,
	}
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

// WithAssignmentPolicy swaps the assignee selection strategy.
func WithAssignmentPolicy(policy AssignmentPolicy) ServiceOption {
	return func(s *service) {
		if policy != nil {
			s.policy = policy
		}
	}
}

// WithSLATable overrides the per-type due date table.
func WithSLATable(table map[Type]time.Duration) ServiceOption {
	return func(s *service) {
		if len(table) > 0 {
			s.slas = table
		}
	}
}

// WithReleaser wires the group publish coordinator publish-task completions
// delegate to.
func WithReleaser(releaser Releaser) ServiceOption {
	return func(s *service) {
		if releaser != nil {
			s.releaser = releaser
		}
	}
}

// WithUnitOfWork wraps the task completion and its stage transition in a
// single transaction. Without it the service falls back to compensating
// writes.
func WithUnitOfWork(run func(ctx context.Context, fn func(context.Context) error) error) ServiceOption {
	return func(s *service) {
		if run != nil {
			s.uow = run
		}
	}
}

type service struct {
	repo      Repository
	machine   StageMachine
	directory Directory
	policy    AssignmentPolicy
	auditor   audit.Recorder
	logger    interfaces.Logger
	releaser  Releaser
	uow       func(ctx context.Context, fn func(context.Context) error) error
	slas      map[Type]time.Duration
	now       func() time.Time
	id        func() uuid.UUID
}

// NewService constructs the task orchestrator.
func NewService(repo Repository, machine StageMachine, directory Directory, auditor audit.Recorder, opts ...ServiceOption) Service {
	svc := &service{
		repo:      repo,
		machine:   machine,
		directory: directory,
		policy:    LeastLoadedPolicy{},
		auditor:   auditor,
		logger:    logging.NoOp(),
		slas:      DefaultSLATable(),
		now:       time.Now,
		id:        uuid.New,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Create opens a task, enforcing the one-open-task-per-step invariant. A nil
// assignee that cannot be resolved leaves the task in pending_assignment
// rather than failing.
func (s *service) Create(ctx context.Context, req CreateRequest) (*Task, error) {
	if !knownType(req.Type) {
		return nil, ErrUnknownType
	}
	if req.CreatedByID == uuid.Nil {
		return nil, ErrCreatorRequired
	}

	if _, err := s.repo.FindOpen(ctx, req.Content.ID, req.Type); err == nil {
		return nil, ErrOpenTaskExists
	} else {
		var notFound *NotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	now := s.now()
	assignee := req.AssigneeID
	if assignee == nil {
		if resolved, ok := s.resolveAssignee(ctx, req.Type, req.TargetLanguage); ok {
			assignee = &resolved
		}
	}

	status := StatusPending
	if assignee == nil {
		status = StatusPendingAssignment
	}

	priority := req.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	due := req.DueDate
	if due == nil {
		if window, ok := s.slas[req.Type]; ok {
			deadline := now.Add(window)
			due = &deadline
		}
	}

	task, err := s.repo.Create(ctx, &Task{
		ID:             s.id(),
		Type:           req.Type,
		Status:         status,
		Priority:       priority,
		Content:        req.Content,
		AssigneeID:     assignee,
		CreatedByID:    req.CreatedByID,
		TargetLanguage: req.TargetLanguage,
		Metadata:       req.Metadata,
		DueDate:        due,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, task, "task_created", req.CreatedByID, "", string(status), map[string]any{
		"type": string(req.Type),
	})
	s.logger.Info("task.created",
		"task_id", task.ID.String(),
		"type", string(task.Type),
		"status", string(task.Status),
	)
	return task, nil
}

// StoryCreated opens the authoring task for a new draft, assigned to the author.
func (s *service) StoryCreated(ctx context.Context, story *stories.Story) error {
	author := story.AuthorID
	_, err := s.Create(ctx, CreateRequest{
		Type:        TypeStoryCreate,
		Content:     ContentRef{Kind: ContentKindStory, ID: story.ID},
		AssigneeID:  &author,
		CreatedByID: author,
	})
	return err
}

// StoryAdvanced opens the task for the step the story just entered. A step
// that already has an open task is left alone, so replayed hooks are harmless.
func (s *service) StoryAdvanced(ctx context.Context, story *stories.Story, actorID uuid.UUID) error {
	if err := s.openNextTask(ctx, story, actorID); err != nil && !errors.Is(err, ErrOpenTaskExists) {
		return err
	}
	return nil
}

// Start moves a pending task into in_progress.
func (s *service) Start(ctx context.Context, taskID, actorID uuid.UUID) (*Task, error) {
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return nil, ErrAlreadyTerminal
	}
	if task.AssigneeID == nil || *task.AssigneeID != actorID {
		return nil, ErrNotAssignee
	}
	if task.Status == StatusInProgress {
		return task, nil
	}
	return s.repo.UpdateStatus(ctx, StatusUpdate{
		TaskID: task.ID,
		From:   task.Status,
		To:     StatusInProgress,
		At:     s.now(),
	})
}

// Complete closes a task and requests the stage transition it implies. The
// two writes are one logical operation: under a unit of work they commit or
// roll back together, otherwise a rejected transition reopens the task,
// leaving both records as they were. Opening the next step's task is the
// story service's transition hook, not a concern of this method.
func (s *service) Complete(ctx context.Context, req CompleteRequest) (*Task, error) {
	task, err := s.repo.GetByID(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return nil, ErrAlreadyTerminal
	}
	if task.AssigneeID == nil || *task.AssigneeID != req.ActorID {
		return nil, ErrNotAssignee
	}

	if task.Content.Kind != ContentKindStory || !task.Type.DrivesStage() {
		return s.completeDetached(ctx, task, req)
	}
	if task.Type == TypeStoryPublish {
		return s.completeRelease(ctx, task, req)
	}

	story, err := s.machine.Get(ctx, task.Content.ID)
	if err != nil {
		return nil, err
	}
	edge, err := workflow.NextEdge(story.Stage, story.AuthorRole, req.Outcome)
	if err != nil {
		return nil, err
	}

	now := s.now()
	from := task.Status
	var completed *Task
	apply := func(ctx context.Context) error {
		var err error
		completed, err = s.repo.UpdateStatus(ctx, StatusUpdate{
			TaskID:      task.ID,
			From:        from,
			To:          StatusCompleted,
			At:          now,
			CompletedAt: &now,
		})
		if err != nil {
			return err
		}
		_, err = s.machine.RequestTransition(ctx, stories.TransitionRequest{
			StoryID:    story.ID,
			Transition: edge,
			ActorID:    req.ActorID,
			ActorRole:  req.ActorRole,
			Metadata:   req.Metadata,
		})
		return err
	}

	if s.uow != nil {
		if err := s.uow(ctx, apply); err != nil {
			return nil, err
		}
	} else if err := apply(ctx); err != nil {
		if completed != nil {
			s.reopen(ctx, task.ID, from)
		}
		return nil, err
	}

	s.record(ctx, completed, "task_completed", req.ActorID, string(from), string(StatusCompleted), map[string]any{
		"outcome":    string(req.Outcome),
		"transition": edge,
	})
	return completed, nil
}

// completeRelease closes a publish task by delegating to the group releaser.
// The task is completed first so the releaser's own cleanup of open publish
// tasks does not cancel the task being acted on; a failed release reopens it.
func (s *service) completeRelease(ctx context.Context, task *Task, req CompleteRequest) (*Task, error) {
	if s.releaser == nil {
		return nil, ErrReleaserRequired
	}
	if req.Outcome != domain.OutcomeApprove {
		return nil, ErrPublishOutcome
	}

	now := s.now()
	from := task.Status
	completed, err := s.repo.UpdateStatus(ctx, StatusUpdate{
		TaskID:      task.ID,
		From:        from,
		To:          StatusCompleted,
		At:          now,
		CompletedAt: &now,
	})
	if err != nil {
		return nil, err
	}

	if err := s.releaser.Release(ctx, task.Content.ID, req.ActorID, req.ActorRole); err != nil {
		s.reopen(ctx, task.ID, from)
		return nil, err
	}

	s.record(ctx, completed, "task_completed", req.ActorID, string(from), string(StatusCompleted), map[string]any{
		"outcome": string(req.Outcome),
		"release": "group_publish",
	})
	return completed, nil
}

// reopen compensates a completed task whose follow-up write failed. The CAS
// from completed only loses if another writer touched a terminal task, which
// no service path does, so a retry is almost always enough.
func (s *service) reopen(ctx context.Context, taskID uuid.UUID, to Status) {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		_, err = s.repo.UpdateStatus(ctx, StatusUpdate{
			TaskID: taskID,
			From:   StatusCompleted,
			To:     to,
			At:     s.now(),
		})
		if err == nil {
			return
		}
	}
	s.logger.Error("task.reopen_failed", "task_id", taskID.String(), "error", err)
}

// completeDetached closes tasks whose lifecycle does not drive the story
// stage machine (translation tasks, bulletin and show work).
func (s *service) completeDetached(ctx context.Context, task *Task, req CompleteRequest) (*Task, error) {
	now := s.now()
	completed, err := s.repo.UpdateStatus(ctx, StatusUpdate{
		TaskID:      task.ID,
		From:        task.Status,
		To:          StatusCompleted,
		At:          now,
		CompletedAt: &now,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, completed, "task_completed", req.ActorID, string(task.Status), string(StatusCompleted), map[string]any{
		"outcome": string(req.Outcome),
	})
	return completed, nil
}

// Reassign hands a task to a new assignee, filtered to role-appropriate candidates.
func (s *service) Reassign(ctx context.Context, req ReassignRequest) (*Task, error) {
	if req.NewAssigneeID == uuid.Nil {
		return nil, ErrAssigneeRequired
	}
	task, err := s.repo.GetByID(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return nil, ErrAlreadyTerminal
	}
	if !s.mayAdminister(task, req.ActorID, req.ActorRole) {
		return nil, &roles.ForbiddenError{Role: req.ActorRole, Action: roles.ActionTaskReassign}
	}
	if err := s.validateCandidate(ctx, task, req.NewAssigneeID); err != nil {
		return nil, err
	}

	from := task.Status
	to := from
	if from == StatusPendingAssignment {
		to = StatusPending
	}

	assignee := req.NewAssigneeID
	updated, err := s.repo.UpdateStatus(ctx, StatusUpdate{
		TaskID:   task.ID,
		From:     from,
		To:       to,
		At:       s.now(),
		Assignee: &assignee,
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, updated, "task_reassigned", req.ActorID, string(from), string(to), map[string]any{
		"assignee": assignee.String(),
	})
	return updated, nil
}

// Cancel terminates a superseded task.
func (s *service) Cancel(ctx context.Context, taskID, actorID uuid.UUID, actorRole domain.Role) (*Task, error) {
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return nil, ErrAlreadyTerminal
	}
	if !s.mayAdminister(task, actorID, actorRole) {
		return nil, &roles.ForbiddenError{Role: actorRole, Action: roles.ActionTaskReassign}
	}

	from := task.Status
	cancelled, err := s.repo.UpdateStatus(ctx, StatusUpdate{
		TaskID: task.ID,
		From:   from,
		To:     StatusCancelled,
		At:     s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, cancelled, "task_cancelled", actorID, string(from), string(StatusCancelled), nil)
	return cancelled, nil
}

// Block parks a task on an unmet external dependency.
func (s *service) Block(ctx context.Context, taskID, actorID uuid.UUID, reason string) (*Task, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return nil, ErrAlreadyTerminal
	}
	if task.AssigneeID == nil || *task.AssigneeID != actorID {
		return nil, ErrNotAssignee
	}

	task.BlockedReason = reason
	task.Status = StatusBlocked
	task.UpdatedAt = s.now()
	updated, err := s.repo.Update(ctx, task)
	if err != nil {
		return nil, err
	}
	s.record(ctx, updated, "task_blocked", actorID, "", string(StatusBlocked), map[string]any{"reason": reason})
	return updated, nil
}

// Unblock resumes a blocked task.
func (s *service) Unblock(ctx context.Context, taskID, actorID uuid.UUID) (*Task, error) {
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != StatusBlocked {
		return nil, ErrNotBlocked
	}
	if task.AssigneeID == nil || *task.AssigneeID != actorID {
		return nil, ErrNotAssignee
	}

	task.BlockedReason = ""
	task.Status = StatusPending
	task.UpdatedAt = s.now()
	return s.repo.Update(ctx, task)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Task, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context) ([]*Task, error) {
	return s.repo.List(ctx)
}

func (s *service) Inbox(ctx context.Context, assigneeID uuid.UUID) ([]*Task, error) {
	return s.repo.ListByAssignee(ctx, assigneeID, true)
}

func (s *service) CancelOpenForContent(ctx context.Context, contentID uuid.UUID, taskType Type, actorID uuid.UUID) error {
	task, err := s.repo.FindOpen(ctx, contentID, taskType)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	_, err = s.repo.UpdateStatus(ctx, StatusUpdate{
		TaskID: task.ID,
		From:   task.Status,
		To:     StatusCancelled,
		At:     s.now(),
	})
	if err != nil {
		return err
	}
	s.record(ctx, task, "task_cancelled", actorID, string(task.Status), string(StatusCancelled), map[string]any{
		"superseded_by": "group_publish",
	})
	return nil
}

// openNextTask opens exactly one task for the step the story just entered.
// Approved has no step task: the translation sub-workflow owns that phase.
func (s *service) openNextTask(ctx context.Context, story *stories.Story, actorID uuid.UUID) error {
	var (
		nextType Type
		assignee *uuid.UUID
	)

	switch story.Stage {
	case domain.StageDraft:
		nextType = TypeStoryCreate
		author := story.AuthorID
		assignee = &author
	case domain.StageNeedsJournalistReview:
		nextType = TypeStoryReview
		assignee = story.AssignedReviewerID
	case domain.StageNeedsSubEditorApproval:
		nextType = TypeStoryApproval
		assignee = story.AssignedApproverID
	case domain.StageTranslated:
		nextType = TypeStoryPublish
	default:
		return nil
	}

	_, err := s.Create(ctx, CreateRequest{
		Type:        nextType,
		Content:     ContentRef{Kind: ContentKindStory, ID: story.ID},
		AssigneeID:  assignee,
		CreatedByID: actorID,
	})
	return err
}

func (s *service) resolveAssignee(ctx context.Context, taskType Type, language domain.Language) (uuid.UUID, bool) {
	if s.directory == nil {
		return uuid.Nil, false
	}

	var (
		candidates []Staff
		err        error
	)
	if taskType == TypeTranslation {
		candidates, err = s.directory.ListTranslators(ctx, language)
	} else {
		tiers := candidateTiers(taskType)
		if len(tiers) == 0 {
			return uuid.Nil, false
		}
		candidates, err = s.directory.ListByRoles(ctx, tiers)
	}
	if err != nil || len(candidates) == 0 {
		return uuid.Nil, false
	}

	loads := make(map[uuid.UUID]int, len(candidates))
	for _, candidate := range candidates {
		count, err := s.repo.CountOpenByAssignee(ctx, candidate.ID)
		if err != nil {
			return uuid.Nil, false
		}
		loads[candidate.ID] = count
	}
	return s.policy.Select(ctx, candidates, loads)
}

func (s *service) validateCandidate(ctx context.Context, task *Task, assigneeID uuid.UUID) error {
	if s.directory == nil {
		return nil
	}

	var (
		candidates []Staff
		err        error
	)
	switch task.Type {
	case TypeTranslation:
		candidates, err = s.directory.ListTranslators(ctx, task.TargetLanguage)
	case TypeStoryReview, TypeStoryApproval, TypeStoryPublish:
		candidates, err = s.directory.ListByRoles(ctx, candidateTiers(task.Type))
	default:
		return nil
	}
	if err != nil {
		return err
	}
	for _, candidate := range candidates {
		if candidate.ID == assigneeID {
			return nil
		}
	}
	return ErrInvalidAssignee
}

func (s *service) mayAdminister(task *Task, actorID uuid.UUID, actorRole domain.Role) bool {
	if actorID == task.CreatedByID {
		return true
	}
	if task.AssigneeID != nil && *task.AssigneeID == actorID {
		return true
	}
	return roles.Allowed(actorRole, roles.ActionTaskReassign)
}

func knownType(taskType Type) bool {
	for _, known := range Types() {
		if known == taskType {
			return true
		}
	}
	return false
}

func (s *service) record(ctx context.Context, task *Task, action string, actorID uuid.UUID, from, to string, metadata map[string]any) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Record(ctx, audit.Event{
		EntityType: entityTypeTask,
		EntityID:   task.ID.String(),
		Action:     action,
		ActorID:    actorID,
		FromStage:  from,
		ToStage:    to,
		OccurredAt: s.now(),
		Metadata:   metadata,
	})
}
