package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bushradio/newsdesk/internal/audit"
	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/bushradio/newsdesk/internal/roles"
	"github.com/bushradio/newsdesk/internal/stories"
	"github.com/bushradio/newsdesk/internal/workflow"
	"github.com/google/uuid"
)

// openerProxy breaks the construction cycle between the story service and
// the orchestrator, mirroring the container wiring.
type openerProxy struct {
	inner stories.TaskOpener
}

func (p *openerProxy) StoryCreated(ctx context.Context, story *stories.Story) error {
	if p.inner == nil {
		return nil
	}
	return p.inner.StoryCreated(ctx, story)
}

func (p *openerProxy) StoryAdvanced(ctx context.Context, story *stories.Story, actorID uuid.UUID) error {
	if p.inner == nil {
		return nil
	}
	return p.inner.StoryAdvanced(ctx, story, actorID)
}

type orchestratorFixture struct {
	storySvc   stories.Service
	taskSvc    Service
	taskRepo   *MemoryRepository
	storyRepo  *stories.MemoryRepository
	directory  *MemoryDirectory
	recorder   *audit.InMemoryRecorder
	author     uuid.UUID
	journalist uuid.UUID
	subEditor  uuid.UUID
}

func newOrchestratorFixture(t *testing.T, opts ...ServiceOption) *orchestratorFixture {
	t.Helper()

	clock := func() time.Time { return time.Unix(1700000000, 0).UTC() }
	storyRepo := stories.NewMemoryRepository()
	taskRepo := NewMemoryRepository()
	recorder := audit.NewInMemoryRecorder()
	directory := NewMemoryDirectory()

	proxy := &openerProxy{}
	storySvc := stories.NewService(storyRepo, workflow.New(workflow.WithClock(clock)), recorder,
		stories.WithClock(clock),
		stories.WithTaskOpener(proxy),
	)
	taskSvc := NewService(taskRepo, storySvc, directory, recorder,
		append([]ServiceOption{WithClock(clock)}, opts...)...)
	proxy.inner = taskSvc

	f := &orchestratorFixture{
		storySvc:   storySvc,
		taskSvc:    taskSvc,
		taskRepo:   taskRepo,
		storyRepo:  storyRepo,
		directory:  directory,
		recorder:   recorder,
		author:     uuid.New(),
		journalist: uuid.New(),
		subEditor:  uuid.New(),
	}
	directory.Add(Staff{ID: f.journalist, Role: domain.RoleJournalist})
	directory.Add(Staff{ID: f.subEditor, Role: domain.RoleSubEditor})
	return f
}

func (f *orchestratorFixture) createStory(t *testing.T, role domain.Role) *stories.Story {
	t.Helper()
	story, err := f.storySvc.Create(context.Background(), stories.CreateStoryRequest{
		Title:      "Ward Councillor Resigns",
		Language:   domain.LanguageEnglish,
		AuthorID:   f.author,
		AuthorRole: role,
	})
	if err != nil {
		t.Fatalf("create story: %v", err)
	}
	return story
}

func (f *orchestratorFixture) openTask(t *testing.T, storyID uuid.UUID, taskType Type) *Task {
	t.Helper()
	task, err := f.taskRepo.FindOpen(context.Background(), storyID, taskType)
	if err != nil {
		t.Fatalf("find open %s task: %v", taskType, err)
	}
	return task
}

func TestStoryCreationOpensAuthoringTask(t *testing.T) {
	f := newOrchestratorFixture(t)
	story := f.createStory(t, domain.RoleIntern)

	task := f.openTask(t, story.ID, TypeStoryCreate)
	if task.Status != StatusPending {
		t.Fatalf("expected pending authoring task, got %s", task.Status)
	}
	if task.AssigneeID == nil || *task.AssigneeID != f.author {
		t.Fatalf("authoring task must be assigned to the author, got %v", task.AssigneeID)
	}
	if task.DueDate == nil {
		t.Fatal("expected a due date derived from the dwell window")
	}
}

func TestCompleteAdvancesStageAndOpensNextTask(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()
	story := f.createStory(t, domain.RoleIntern)
	createTask := f.openTask(t, story.ID, TypeStoryCreate)

	completed, err := f.taskSvc.Complete(ctx, CompleteRequest{
		TaskID:    createTask.ID,
		ActorID:   f.author,
		ActorRole: domain.RoleIntern,
		Outcome:   domain.OutcomeSubmit,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != StatusCompleted || completed.CompletedAt == nil {
		t.Fatalf("unexpected completion state: %+v", completed)
	}

	advanced, err := f.storySvc.Get(ctx, story.ID)
	if err != nil {
		t.Fatalf("get story: %v", err)
	}
	if advanced.Stage != domain.StageNeedsJournalistReview {
		t.Fatalf("expected needs_journalist_review, got %s", advanced.Stage)
	}

	review := f.openTask(t, story.ID, TypeStoryReview)
	if review.AssigneeID == nil || *review.AssigneeID != f.journalist {
		t.Fatalf("review task should go to the journalist, got %v", review.AssigneeID)
	}
}

func TestCompleteByNonAssigneeFails(t *testing.T) {
	f := newOrchestratorFixture(t)
	story := f.createStory(t, domain.RoleIntern)
	task := f.openTask(t, story.ID, TypeStoryCreate)

	_, err := f.taskSvc.Complete(context.Background(), CompleteRequest{
		TaskID:    task.ID,
		ActorID:   uuid.New(),
		ActorRole: domain.RoleEditor,
		Outcome:   domain.OutcomeSubmit,
	})
	if !errors.Is(err, ErrNotAssignee) {
		t.Fatalf("expected ErrNotAssignee, got %v", err)
	}
}

func TestCompleteRevertsTaskWhenTransitionDenied(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()
	story := f.createStory(t, domain.RoleJournalist)
	createTask := f.openTask(t, story.ID, TypeStoryCreate)

	// Journalist-authored copy skips peer review.
	if _, err := f.taskSvc.Complete(ctx, CompleteRequest{
		TaskID:    createTask.ID,
		ActorID:   f.author,
		ActorRole: domain.RoleJournalist,
		Outcome:   domain.OutcomeSubmit,
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	approval := f.openTask(t, story.ID, TypeStoryApproval)
	assignee := f.journalist
	if _, err := f.taskSvc.Reassign(ctx, ReassignRequest{
		TaskID:        approval.ID,
		NewAssigneeID: assignee,
		ActorID:       f.subEditor,
		ActorRole:     domain.RoleSubEditor,
	}); err == nil {
		t.Fatal("journalist must not be an approval candidate")
	}

	// Force-assign the approval task to a journalist to exercise the
	// coupling: the role denial must reopen the task.
	seeded, err := f.taskRepo.UpdateStatus(ctx, StatusUpdate{
		TaskID:   approval.ID,
		From:     approval.Status,
		To:       approval.Status,
		At:       time.Unix(1700000100, 0).UTC(),
		Assignee: &assignee,
	})
	if err != nil {
		t.Fatalf("seed assignee: %v", err)
	}

	_, err = f.taskSvc.Complete(ctx, CompleteRequest{
		TaskID:    seeded.ID,
		ActorID:   f.journalist,
		ActorRole: domain.RoleJournalist,
		Outcome:   domain.OutcomeApprove,
	})
	if !errors.Is(err, roles.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// Both records unchanged: task reopened, stage untouched.
	reopened, err := f.taskRepo.GetByID(ctx, approval.ID)
	if err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if reopened.Status.Terminal() {
		t.Fatalf("task must be reopened after denied transition, got %s", reopened.Status)
	}
	current, err := f.storySvc.Get(ctx, story.ID)
	if err != nil {
		t.Fatalf("reload story: %v", err)
	}
	if current.Stage != domain.StageNeedsSubEditorApproval {
		t.Fatalf("stage must not move on denied completion, got %s", current.Stage)
	}
}

func TestOneOpenTaskPerStep(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()
	story := f.createStory(t, domain.RoleIntern)

	_, err := f.taskSvc.Create(ctx, CreateRequest{
		Type:        TypeStoryCreate,
		Content:     ContentRef{Kind: ContentKindStory, ID: story.ID},
		CreatedByID: f.author,
	})
	if !errors.Is(err, ErrOpenTaskExists) {
		t.Fatalf("expected ErrOpenTaskExists, got %v", err)
	}
}

func TestCreateWithoutCandidatesPendsAssignment(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	task, err := f.taskSvc.Create(ctx, CreateRequest{
		Type:           TypeTranslation,
		Content:        ContentRef{Kind: ContentKindStory, ID: uuid.New()},
		CreatedByID:    f.subEditor,
		TargetLanguage: domain.LanguageSotho,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Status != StatusPendingAssignment {
		t.Fatalf("expected pending_assignment with no sotho translators, got %s", task.Status)
	}

	// Registering a translator lets a reassignment resolve the task.
	translator := uuid.New()
	f.directory.Add(Staff{ID: translator, Role: domain.RoleJournalist, Languages: []domain.Language{domain.LanguageSotho}})

	assigned, err := f.taskSvc.Reassign(ctx, ReassignRequest{
		TaskID:        task.ID,
		NewAssigneeID: translator,
		ActorID:       f.subEditor,
		ActorRole:     domain.RoleSubEditor,
	})
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if assigned.Status != StatusPending {
		t.Fatalf("expected pending after assignment, got %s", assigned.Status)
	}
}

func TestReassignAuthorityAndCandidateFilter(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()
	story := f.createStory(t, domain.RoleIntern)

	if _, err := f.taskSvc.Complete(ctx, CompleteRequest{
		TaskID:    f.openTask(t, story.ID, TypeStoryCreate).ID,
		ActorID:   f.author,
		ActorRole: domain.RoleIntern,
		Outcome:   domain.OutcomeSubmit,
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	review := f.openTask(t, story.ID, TypeStoryReview)

	// Unrelated journalist lacks reassignment authority.
	if _, err := f.taskSvc.Reassign(ctx, ReassignRequest{
		TaskID:        review.ID,
		NewAssigneeID: f.journalist,
		ActorID:       uuid.New(),
		ActorRole:     domain.RoleJournalist,
	}); !errors.Is(err, roles.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// The sub-editor can, but only to a journalist-tier candidate.
	if _, err := f.taskSvc.Reassign(ctx, ReassignRequest{
		TaskID:        review.ID,
		NewAssigneeID: f.subEditor,
		ActorID:       f.subEditor,
		ActorRole:     domain.RoleSubEditor,
	}); !errors.Is(err, ErrInvalidAssignee) {
		t.Fatalf("expected ErrInvalidAssignee, got %v", err)
	}

	secondJournalist := uuid.New()
	f.directory.Add(Staff{ID: secondJournalist, Role: domain.RoleJournalist})
	reassigned, err := f.taskSvc.Reassign(ctx, ReassignRequest{
		TaskID:        review.ID,
		NewAssigneeID: secondJournalist,
		ActorID:       f.subEditor,
		ActorRole:     domain.RoleSubEditor,
	})
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if reassigned.AssigneeID == nil || *reassigned.AssigneeID != secondJournalist {
		t.Fatalf("unexpected assignee: %v", reassigned.AssigneeID)
	}
}

func TestBlockAndUnblock(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()
	story := f.createStory(t, domain.RoleIntern)
	task := f.openTask(t, story.ID, TypeStoryCreate)

	if _, err := f.taskSvc.Block(ctx, task.ID, f.author, ""); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}

	blocked, err := f.taskSvc.Block(ctx, task.ID, f.author, "waiting on interview audio")
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if blocked.Status != StatusBlocked || blocked.BlockedReason == "" {
		t.Fatalf("unexpected blocked state: %+v", blocked)
	}

	resumed, err := f.taskSvc.Unblock(ctx, task.ID, f.author)
	if err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if resumed.Status != StatusPending || resumed.BlockedReason != "" {
		t.Fatalf("unexpected resumed state: %+v", resumed)
	}
}

func TestCancelOpenForContent(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()
	storyID := uuid.New()

	task, err := f.taskSvc.Create(ctx, CreateRequest{
		Type:        TypeStoryPublish,
		Content:     ContentRef{Kind: ContentKindStory, ID: storyID},
		CreatedByID: f.subEditor,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.taskSvc.CancelOpenForContent(ctx, storyID, TypeStoryPublish, f.subEditor); err != nil {
		t.Fatalf("cancel open: %v", err)
	}
	stored, err := f.taskRepo.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", stored.Status)
	}

	// Idempotent when nothing is open.
	if err := f.taskSvc.CancelOpenForContent(ctx, storyID, TypeStoryPublish, f.subEditor); err != nil {
		t.Fatalf("second cancel: %v", err)
	}
}

func TestLeastLoadedPolicyPrefersIdleCandidate(t *testing.T) {
	busy := Staff{ID: uuid.New(), Role: domain.RoleJournalist}
	idle := Staff{ID: uuid.New(), Role: domain.RoleJournalist}

	picked, ok := LeastLoadedPolicy{}.Select(context.Background(), []Staff{busy, idle}, map[uuid.UUID]int{
		busy.ID: 3,
		idle.ID: 0,
	})
	if !ok || picked != idle.ID {
		t.Fatalf("expected idle candidate, got %v ok=%v", picked, ok)
	}
}

func TestRoundRobinPolicyCycles(t *testing.T) {
	a := Staff{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Role: domain.RoleJournalist}
	b := Staff{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Role: domain.RoleJournalist}

	policy := &RoundRobinPolicy{}
	first, _ := policy.Select(context.Background(), []Staff{a, b}, nil)
	second, _ := policy.Select(context.Background(), []Staff{a, b}, nil)
	third, _ := policy.Select(context.Background(), []Staff{a, b}, nil)

	if first != a.ID || second != b.ID || third != a.ID {
		t.Fatalf("unexpected rotation: %v %v %v", first, second, third)
	}
}

// stubReleaser records group release requests in place of the coordinator.
type stubReleaser struct {
	calls  int
	lastID uuid.UUID
	err    error
}

func (r *stubReleaser) Release(_ context.Context, originalID, _ uuid.UUID, _ domain.Role) error {
	r.calls++
	r.lastID = originalID
	return r.err
}

func (f *orchestratorFixture) seedPublishTask(t *testing.T) (*stories.Story, *Task) {
	t.Helper()
	ctx := context.Background()
	story := f.createStory(t, domain.RoleJournalist)
	if _, err := f.storyRepo.UpdateStage(ctx, stories.StageUpdate{
		StoryID: story.ID,
		From:    domain.StageDraft,
		To:      domain.StageTranslated,
		At:      time.Unix(1700000100, 0).UTC(),
	}); err != nil {
		t.Fatalf("seed stage: %v", err)
	}
	assignee := f.subEditor
	task, err := f.taskSvc.Create(ctx, CreateRequest{
		Type:        TypeStoryPublish,
		Content:     ContentRef{Kind: ContentKindStory, ID: story.ID},
		AssigneeID:  &assignee,
		CreatedByID: f.subEditor,
	})
	if err != nil {
		t.Fatalf("open publish task: %v", err)
	}
	return story, task
}

func TestPublishTaskDelegatesGroupRelease(t *testing.T) {
	releaser := &stubReleaser{}
	f := newOrchestratorFixture(t, WithReleaser(releaser))
	ctx := context.Background()
	story, task := f.seedPublishTask(t)

	completed, err := f.taskSvc.Complete(ctx, CompleteRequest{
		TaskID:    task.ID,
		ActorID:   f.subEditor,
		ActorRole: domain.RoleSubEditor,
		Outcome:   domain.OutcomeApprove,
	})
	if err != nil {
		t.Fatalf("complete publish task: %v", err)
	}
	if completed.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}
	if releaser.calls != 1 || releaser.lastID != story.ID {
		t.Fatalf("expected one release for %s, got %d calls for %s", story.ID, releaser.calls, releaser.lastID)
	}

	// The orchestrator never writes the stage itself; the release owns it.
	current, err := f.storyRepo.GetByID(ctx, story.ID)
	if err != nil {
		t.Fatalf("reload story: %v", err)
	}
	if current.Stage != domain.StageTranslated {
		t.Fatalf("stage must be untouched by the orchestrator, got %s", current.Stage)
	}
}

func TestPublishTaskReopensWhenReleaseFails(t *testing.T) {
	releaser := &stubReleaser{err: errors.New("group not ready")}
	f := newOrchestratorFixture(t, WithReleaser(releaser))
	ctx := context.Background()
	_, task := f.seedPublishTask(t)

	if _, err := f.taskSvc.Complete(ctx, CompleteRequest{
		TaskID:    task.ID,
		ActorID:   f.subEditor,
		ActorRole: domain.RoleSubEditor,
		Outcome:   domain.OutcomeApprove,
	}); err == nil {
		t.Fatal("expected release failure to surface")
	}

	reopened, err := f.taskRepo.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if reopened.Status.Terminal() {
		t.Fatalf("task must reopen after failed release, got %s", reopened.Status)
	}
}

func TestPublishTaskRequiresReleaser(t *testing.T) {
	f := newOrchestratorFixture(t)
	_, task := f.seedPublishTask(t)

	_, err := f.taskSvc.Complete(context.Background(), CompleteRequest{
		TaskID:    task.ID,
		ActorID:   f.subEditor,
		ActorRole: domain.RoleSubEditor,
		Outcome:   domain.OutcomeApprove,
	})
	if !errors.Is(err, ErrReleaserRequired) {
		t.Fatalf("expected ErrReleaserRequired, got %v", err)
	}
}

func TestPublishTaskRejectsReviseOutcome(t *testing.T) {
	f := newOrchestratorFixture(t, WithReleaser(&stubReleaser{}))
	_, task := f.seedPublishTask(t)

	_, err := f.taskSvc.Complete(context.Background(), CompleteRequest{
		TaskID:    task.ID,
		ActorID:   f.subEditor,
		ActorRole: domain.RoleSubEditor,
		Outcome:   domain.OutcomeRevise,
	})
	if !errors.Is(err, ErrPublishOutcome) {
		t.Fatalf("expected ErrPublishOutcome, got %v", err)
	}
}

// flakyStatusRepo fails the first reopen write to exercise the retry loop.
type flakyStatusRepo struct {
	Repository
	failures int
}

func (r *flakyStatusRepo) UpdateStatus(ctx context.Context, update StatusUpdate) (*Task, error) {
	if update.From == StatusCompleted && r.failures > 0 {
		r.failures--
		return nil, errors.New("transient write failure")
	}
	return r.Repository.UpdateStatus(ctx, update)
}

func TestReopenRetriesTransientFailures(t *testing.T) {
	clock := func() time.Time { return time.Unix(1700000000, 0).UTC() }
	storyRepo := stories.NewMemoryRepository()
	baseRepo := NewMemoryRepository()
	flaky := &flakyStatusRepo{Repository: baseRepo, failures: 1}
	recorder := audit.NewInMemoryRecorder()
	directory := NewMemoryDirectory()
	releaser := &stubReleaser{err: errors.New("group not ready")}

	proxy := &openerProxy{}
	storySvc := stories.NewService(storyRepo, workflow.New(workflow.WithClock(clock)), recorder,
		stories.WithClock(clock),
		stories.WithTaskOpener(proxy),
	)
	taskSvc := NewService(flaky, storySvc, directory, recorder,
		WithClock(clock),
		WithReleaser(releaser),
	)
	proxy.inner = taskSvc

	ctx := context.Background()
	subEditor := uuid.New()
	story, err := storySvc.Create(ctx, stories.CreateStoryRequest{
		Title:      "Loadshedding Schedule Update",
		Language:   domain.LanguageEnglish,
		AuthorID:   uuid.New(),
		AuthorRole: domain.RoleJournalist,
	})
	if err != nil {
		t.Fatalf("create story: %v", err)
	}
	if _, err := storyRepo.UpdateStage(ctx, stories.StageUpdate{
		StoryID: story.ID,
		From:    domain.StageDraft,
		To:      domain.StageTranslated,
		At:      clock(),
	}); err != nil {
		t.Fatalf("seed stage: %v", err)
	}
	task, err := taskSvc.Create(ctx, CreateRequest{
		Type:        TypeStoryPublish,
		Content:     ContentRef{Kind: ContentKindStory, ID: story.ID},
		AssigneeID:  &subEditor,
		CreatedByID: subEditor,
	})
	if err != nil {
		t.Fatalf("open publish task: %v", err)
	}

	if _, err := taskSvc.Complete(ctx, CompleteRequest{
		TaskID:    task.ID,
		ActorID:   subEditor,
		ActorRole: domain.RoleSubEditor,
		Outcome:   domain.OutcomeApprove,
	}); err == nil {
		t.Fatal("expected release failure to surface")
	}

	// The first reopen write failed; the retry must still land the task back
	// in a non-terminal status.
	reopened, err := baseRepo.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if reopened.Status.Terminal() {
		t.Fatalf("expected reopened task after retry, got %s", reopened.Status)
	}
}

func TestFollowUpTaskCompletesWithoutStageChange(t *testing.T) {
	f := newOrchestratorFixture(t)
	story := f.createStory(t, domain.RoleJournalist)

	assignee := f.journalist
	task, err := f.taskSvc.Create(context.Background(), CreateRequest{
		Type:        TypeStoryFollowUp,
		Content:     ContentRef{Kind: ContentKindStory, ID: story.ID},
		AssigneeID:  &assignee,
		CreatedByID: f.subEditor,
	})
	if err != nil {
		t.Fatalf("create follow-up task: %v", err)
	}

	done, err := f.taskSvc.Complete(context.Background(), CompleteRequest{
		TaskID:    task.ID,
		ActorID:   f.journalist,
		ActorRole: domain.RoleJournalist,
	})
	if err != nil {
		t.Fatalf("complete follow-up task: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}

	reloaded, err := f.storySvc.Get(context.Background(), story.ID)
	if err != nil {
		t.Fatalf("reload story: %v", err)
	}
	if reloaded.Stage != domain.StageDraft {
		t.Fatalf("follow-up completion must not move the stage, got %s", reloaded.Stage)
	}
}
