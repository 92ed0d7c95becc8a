package stories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bushradio/newsdesk/internal/audit"
	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/bushradio/newsdesk/internal/roles"
	"github.com/bushradio/newsdesk/internal/workflow"
	"github.com/google/uuid"
)

func newTestService(t *testing.T, opts ...ServiceOption) (Service, *MemoryRepository, *audit.InMemoryRecorder) {
	t.Helper()
	repo := NewMemoryRepository()
	recorder := audit.NewInMemoryRecorder()
	base := []ServiceOption{
		WithClock(func() time.Time { return time.Unix(1700000000, 0).UTC() }),
	}
	svc := NewService(repo, workflow.New(), recorder, append(base, opts...)...)
	return svc, repo, recorder
}

func TestServiceCreateStory(t *testing.T) {
	svc, _, recorder := newTestService(t)

	story, err := svc.Create(context.Background(), CreateStoryRequest{
		Title:      "Load Shedding Update",
		Body:       "Stage 4 from 18:00",
		Language:   domain.LanguageEnglish,
		AuthorID:   uuid.New(),
		AuthorRole: domain.RoleIntern,
	})
	if err != nil {
		t.Fatalf("create story: %v", err)
	}
	if story.Stage != domain.StageDraft {
		t.Fatalf("expected draft stage, got %s", story.Stage)
	}
	if story.Slug != "load-shedding-update" {
		t.Fatalf("expected slug derived from title, got %q", story.Slug)
	}

	events := recorder.Events()
	if len(events) != 1 || events[0].Action != "story_created" {
		t.Fatalf("expected story_created audit event, got %+v", events)
	}
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateStoryRequest{AuthorID: uuid.New(), Language: domain.LanguageEnglish}); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateStoryRequest{Title: "t", Language: domain.LanguageEnglish}); !errors.Is(err, ErrAuthorRequired) {
		t.Fatalf("expected ErrAuthorRequired, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateStoryRequest{Title: "t", AuthorID: uuid.New()}); !errors.Is(err, ErrLanguageRequired) {
		t.Fatalf("expected ErrLanguageRequired, got %v", err)
	}
}

func TestServiceCreateDuplicateSlug(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	req := CreateStoryRequest{
		Title:      "Morning Bulletin",
		Language:   domain.LanguageEnglish,
		AuthorID:   uuid.New(),
		AuthorRole: domain.RoleJournalist,
	}
	if _, err := svc.Create(ctx, req); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(ctx, req); !errors.Is(err, ErrSlugExists) {
		t.Fatalf("expected ErrSlugExists, got %v", err)
	}
}

type failingOpener struct{ err error }

func (f failingOpener) StoryCreated(context.Context, *Story) error { return f.err }

func (f failingOpener) StoryAdvanced(context.Context, *Story, uuid.UUID) error { return f.err }

// recordingOpener captures the stages the transition hook reports.
type recordingOpener struct {
	advanced []domain.Stage
}

func (r *recordingOpener) StoryCreated(context.Context, *Story) error { return nil }

func (r *recordingOpener) StoryAdvanced(_ context.Context, story *Story, _ uuid.UUID) error {
	r.advanced = append(r.advanced, story.Stage)
	return nil
}

func TestServiceCreateRollsBackWhenTaskFails(t *testing.T) {
	boom := errors.New("orchestrator down")
	svc, repo, _ := newTestService(t, WithTaskOpener(failingOpener{err: boom}))

	_, err := svc.Create(context.Background(), CreateStoryRequest{
		Title:      "Water Outage",
		Language:   domain.LanguageEnglish,
		AuthorID:   uuid.New(),
		AuthorRole: domain.RoleJournalist,
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected opener error, got %v", err)
	}

	all, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected story rollback, found %d stories", len(all))
	}
}

func TestRequestTransitionNotifiesOpener(t *testing.T) {
	opener := &recordingOpener{}
	svc, _, _ := newTestService(t, WithTaskOpener(opener))
	ctx := context.Background()

	author := uuid.New()
	story, err := svc.Create(ctx, CreateStoryRequest{
		Title:      "Clinic Hours Extended",
		Language:   domain.LanguageEnglish,
		AuthorID:   author,
		AuthorRole: domain.RoleIntern,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.RequestTransition(ctx, TransitionRequest{
		StoryID:    story.ID,
		Transition: workflow.TransitionSubmitForReview,
		ActorID:    author,
		ActorRole:  domain.RoleIntern,
	}); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if len(opener.advanced) != 1 || opener.advanced[0] != domain.StageNeedsJournalistReview {
		t.Fatalf("expected one hook call for review stage, got %v", opener.advanced)
	}
}

// System-driven edges must notify the opener too: the publish step's task has
// no completing actor to open it otherwise.
func TestSystemTransitionNotifiesOpener(t *testing.T) {
	opener := &recordingOpener{}
	svc, repo, _ := newTestService(t, WithTaskOpener(opener))
	ctx := context.Background()

	author := uuid.New()
	story, err := svc.Create(ctx, CreateStoryRequest{
		Title:      "Taxi Rank Upgrade",
		Language:   domain.LanguageEnglish,
		AuthorID:   author,
		AuthorRole: domain.RoleJournalist,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.UpdateStage(ctx, StageUpdate{
		StoryID: story.ID,
		From:    domain.StageDraft,
		To:      domain.StageApproved,
		At:      time.Unix(1700000100, 0).UTC(),
	}); err != nil {
		t.Fatalf("seed stage: %v", err)
	}

	if _, err := svc.RequestTransition(ctx, TransitionRequest{
		StoryID:    story.ID,
		Transition: workflow.TransitionMarkTranslated,
		ActorID:    author,
		System:     true,
	}); err != nil {
		t.Fatalf("system transition: %v", err)
	}
	if len(opener.advanced) != 1 || opener.advanced[0] != domain.StageTranslated {
		t.Fatalf("expected one hook call for translated stage, got %v", opener.advanced)
	}
}

func TestServiceRequestTransition(t *testing.T) {
	svc, _, recorder := newTestService(t)
	ctx := context.Background()

	author := uuid.New()
	story, err := svc.Create(ctx, CreateStoryRequest{
		Title:      "Community Garden Opens",
		Language:   domain.LanguageEnglish,
		AuthorID:   author,
		AuthorRole: domain.RoleIntern,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.RequestTransition(ctx, TransitionRequest{
		StoryID:    story.ID,
		Transition: workflow.TransitionSubmitForReview,
		ActorID:    author,
		ActorRole:  domain.RoleIntern,
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.Stage != domain.StageNeedsJournalistReview {
		t.Fatalf("expected needs_journalist_review, got %s", updated.Stage)
	}

	events := recorder.Events()
	last := events[len(events)-1]
	if last.Action != "stage_transition" || last.ToStage != string(domain.StageNeedsJournalistReview) {
		t.Fatalf("unexpected audit entry %+v", last)
	}
}

func TestServiceRequestTransitionRejectsWrongRole(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	author := uuid.New()
	story, err := svc.Create(ctx, CreateStoryRequest{
		Title:      "Taxi Strike Latest",
		Language:   domain.LanguageEnglish,
		AuthorID:   author,
		AuthorRole: domain.RoleJournalist,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.RequestTransition(ctx, TransitionRequest{
		StoryID:    story.ID,
		Transition: workflow.TransitionSubmitForApproval,
		ActorID:    author,
		ActorRole:  domain.RoleJournalist,
	}); err != nil {
		t.Fatalf("submit for approval: %v", err)
	}

	// A journalist cannot grant sub-editor approval.
	_, err = svc.RequestTransition(ctx, TransitionRequest{
		StoryID:    story.ID,
		Transition: workflow.TransitionApprove,
		ActorID:    uuid.New(),
		ActorRole:  domain.RoleJournalist,
	})
	if !errors.Is(err, roles.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// The denied call must leave the stage untouched.
	current, err := svc.Get(ctx, story.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Stage != domain.StageNeedsSubEditorApproval {
		t.Fatalf("stage mutated after denied transition: %s", current.Stage)
	}
}

func TestServiceRequestTransitionStaleStage(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	author := uuid.New()
	story, err := svc.Create(ctx, CreateStoryRequest{
		Title:      "Matric Results",
		Language:   domain.LanguageEnglish,
		AuthorID:   author,
		AuthorRole: domain.RoleIntern,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Simulate a concurrent winner between the read and the write.
	if _, err := repo.UpdateStage(ctx, StageUpdate{
		StoryID: story.ID,
		From:    domain.StageDraft,
		To:      domain.StageNeedsJournalistReview,
		At:      time.Unix(1700000100, 0).UTC(),
	}); err != nil {
		t.Fatalf("seed concurrent update: %v", err)
	}
	_, err = repo.UpdateStage(ctx, StageUpdate{
		StoryID: story.ID,
		From:    domain.StageDraft,
		To:      domain.StageNeedsJournalistReview,
		At:      time.Unix(1700000200, 0).UTC(),
	})
	if !errors.Is(err, ErrStaleStage) {
		t.Fatalf("expected ErrStaleStage, got %v", err)
	}
	var stale *StaleStageError
	if !errors.As(err, &stale) || stale.Actual != domain.StageNeedsJournalistReview {
		t.Fatalf("unexpected stale detail: %v", err)
	}
}

func TestServiceRejectsDirectTranslationTransition(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	originalID := uuid.New()
	translation := &Story{
		ID:            uuid.New(),
		Slug:          "load-shedding-update-xhosa",
		Title:         "Load Shedding Update",
		Stage:         domain.StageDraft,
		Language:      domain.LanguageXhosa,
		IsTranslation: true,
		OriginalID:    &originalID,
		AuthorID:      uuid.New(),
		AuthorRole:    domain.RoleJournalist,
	}
	if _, err := repo.Create(ctx, translation); err != nil {
		t.Fatalf("seed translation: %v", err)
	}

	_, err := svc.RequestTransition(ctx, TransitionRequest{
		StoryID:    translation.ID,
		Transition: workflow.TransitionSubmitForReview,
		ActorID:    translation.AuthorID,
		ActorRole:  domain.RoleJournalist,
	})
	if !errors.Is(err, ErrTranslationWorkflow) {
		t.Fatalf("expected ErrTranslationWorkflow, got %v", err)
	}
}

type staticGuard struct{ active bool }

func (g staticGuard) HasActiveAssignments(context.Context, uuid.UUID) (bool, error) {
	return g.active, nil
}

func TestServiceDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("author deletes own draft", func(t *testing.T) {
		svc, repo, _ := newTestService(t, WithAssignmentGuard(staticGuard{active: false}))
		author := uuid.New()
		story, err := svc.Create(ctx, CreateStoryRequest{
			Title:      "Draft To Drop",
			Language:   domain.LanguageEnglish,
			AuthorID:   author,
			AuthorRole: domain.RoleIntern,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := svc.Delete(ctx, DeleteStoryRequest{StoryID: story.ID, ActorID: author, ActorRole: domain.RoleIntern}); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := repo.GetByID(ctx, story.ID); err == nil {
			t.Fatal("expected story to be gone")
		}
	})

	t.Run("non-author below sub-editor is refused", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		story, err := svc.Create(ctx, CreateStoryRequest{
			Title:      "Protected Story",
			Language:   domain.LanguageEnglish,
			AuthorID:   uuid.New(),
			AuthorRole: domain.RoleJournalist,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		err = svc.Delete(ctx, DeleteStoryRequest{StoryID: story.ID, ActorID: uuid.New(), ActorRole: domain.RoleJournalist})
		if !errors.Is(err, roles.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("active assignments block deletion", func(t *testing.T) {
		svc, _, _ := newTestService(t, WithAssignmentGuard(staticGuard{active: true}))
		author := uuid.New()
		story, err := svc.Create(ctx, CreateStoryRequest{
			Title:      "Story With Translations",
			Language:   domain.LanguageEnglish,
			AuthorID:   author,
			AuthorRole: domain.RoleJournalist,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		err = svc.Delete(ctx, DeleteStoryRequest{StoryID: story.ID, ActorID: author, ActorRole: domain.RoleJournalist})
		if !errors.Is(err, ErrActiveAssignments) {
			t.Fatalf("expected ErrActiveAssignments, got %v", err)
		}
	})
}
