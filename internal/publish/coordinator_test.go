package publish

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bushradio/newsdesk/internal/audit"
	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/bushradio/newsdesk/internal/roles"
	"github.com/bushradio/newsdesk/internal/stories"
	"github.com/bushradio/newsdesk/internal/translations"
	"github.com/google/uuid"
)

var fixedNow = time.Unix(1700000000, 0).UTC()

type groupFixture struct {
	coordinator  Coordinator
	items        *stories.MemoryRepository
	assignments  *translations.MemoryRepository
	recorder     *audit.InMemoryRecorder
	original     *stories.Story
	translated   []*stories.Story
	assignmentID map[domain.Language]uuid.UUID
	subEditor    uuid.UUID
}

// newGroupFixture seeds an original plus one translation per language, with
// each assignment in the supplied status.
func newGroupFixture(t *testing.T, stage domain.Stage, statuses map[domain.Language]translations.Status) *groupFixture {
	t.Helper()
	ctx := context.Background()

	items := stories.NewMemoryRepository()
	assignments := translations.NewMemoryRepository()
	recorder := audit.NewInMemoryRecorder()

	original := &stories.Story{
		ID:        uuid.New(),
		Slug:      "budget-speech",
		Title:     "Budget Speech Reaction",
		Body:      "Reaction from the floor.",
		Stage:     stage,
		Language:  domain.LanguageEnglish,
		AuthorID:  uuid.New(),
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}
	if _, err := items.Create(ctx, original); err != nil {
		t.Fatalf("seed original: %v", err)
	}

	f := &groupFixture{
		items:        items,
		assignments:  assignments,
		recorder:     recorder,
		original:     original,
		assignmentID: make(map[domain.Language]uuid.UUID),
		subEditor:    uuid.New(),
	}

	for language, status := range statuses {
		translated := &stories.Story{
			ID:            uuid.New(),
			Slug:          "budget-speech-" + string(language),
			Title:         "Budget Speech Reaction",
			Body:          "Vertaalde kopie.",
			Stage:         domain.StageDraft,
			Language:      language,
			IsTranslation: true,
			OriginalID:    &original.ID,
			AuthorID:      uuid.New(),
			CreatedAt:     fixedNow,
			UpdatedAt:     fixedNow,
		}
		if _, err := items.Create(ctx, translated); err != nil {
			t.Fatalf("seed translation: %v", err)
		}
		f.translated = append(f.translated, translated)

		assignment := &translations.Assignment{
			ID:             uuid.New(),
			OriginalID:     original.ID,
			TranslatedID:   &translated.ID,
			TargetLanguage: language,
			AssignedToID:   translated.AuthorID,
			Status:         status,
			CreatedAt:      fixedNow,
			UpdatedAt:      fixedNow,
		}
		if _, err := assignments.Create(ctx, assignment); err != nil {
			t.Fatalf("seed assignment: %v", err)
		}
		f.assignmentID[language] = assignment.ID
	}

	translationSvc := translations.NewService(assignments, items, nil, recorder)

	f.coordinator = NewCoordinator(items, translationSvc, recorder,
		WithClock(func() time.Time { return fixedNow }),
	)
	return f
}

func TestIsGroupReady(t *testing.T) {
	t.Run("partial approval is not ready", func(t *testing.T) {
		f := newGroupFixture(t, domain.StageTranslated, map[domain.Language]translations.Status{
			domain.LanguageAfrikaans: translations.StatusApproved,
			domain.LanguageXhosa:     translations.StatusInProgress,
		})
		ready, err := f.coordinator.IsGroupReady(context.Background(), f.original.ID)
		if err != nil {
			t.Fatalf("ready: %v", err)
		}
		if ready {
			t.Fatal("group with an in-progress sibling must not be ready")
		}
	})

	t.Run("all approved is ready", func(t *testing.T) {
		f := newGroupFixture(t, domain.StageTranslated, map[domain.Language]translations.Status{
			domain.LanguageAfrikaans: translations.StatusApproved,
			domain.LanguageXhosa:     translations.StatusApproved,
		})
		ready, err := f.coordinator.IsGroupReady(context.Background(), f.original.ID)
		if err != nil {
			t.Fatalf("ready: %v", err)
		}
		if !ready {
			t.Fatal("fully approved group must be ready")
		}
	})

	t.Run("approved original without assignments is ready", func(t *testing.T) {
		f := newGroupFixture(t, domain.StageApproved, nil)
		ready, err := f.coordinator.IsGroupReady(context.Background(), f.original.ID)
		if err != nil {
			t.Fatalf("ready: %v", err)
		}
		if !ready {
			t.Fatal("single-item publish must be ready from approved")
		}
	})

	t.Run("approved original with assignments is not ready", func(t *testing.T) {
		f := newGroupFixture(t, domain.StageApproved, map[domain.Language]translations.Status{
			domain.LanguageZulu: translations.StatusPending,
		})
		ready, err := f.coordinator.IsGroupReady(context.Background(), f.original.ID)
		if err != nil {
			t.Fatalf("ready: %v", err)
		}
		if ready {
			t.Fatal("approved original with open assignments must wait")
		}
	})
}

func TestPublishGroupReleasesAllMembers(t *testing.T) {
	f := newGroupFixture(t, domain.StageTranslated, map[domain.Language]translations.Status{
		domain.LanguageAfrikaans: translations.StatusApproved,
		domain.LanguageXhosa:     translations.StatusApproved,
	})
	ctx := context.Background()

	result, err := f.coordinator.PublishGroup(ctx, Request{
		OriginalID: f.original.ID,
		ActorID:    f.subEditor,
		ActorRole:  domain.RoleSubEditor,
	})
	if err != nil {
		t.Fatalf("publish group: %v", err)
	}
	if len(result.MemberIDs) != 3 {
		t.Fatalf("expected original plus two translations, got %d members", len(result.MemberIDs))
	}

	for _, id := range result.MemberIDs {
		member, err := f.items.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("load member: %v", err)
		}
		if member.Stage != domain.StagePublished {
			t.Fatalf("member %s not published: %s", id, member.Stage)
		}
		if member.PublishedAt == nil || !member.PublishedAt.Equal(fixedNow) {
			t.Fatalf("member %s missing shared publishedAt stamp: %v", id, member.PublishedAt)
		}
	}

	events := f.recorder.Events()
	last := events[len(events)-1]
	if last.Action != "group_published" {
		t.Fatalf("expected group_published audit entry, got %+v", last)
	}
}

func TestPublishGroupAuthorization(t *testing.T) {
	f := newGroupFixture(t, domain.StageTranslated, map[domain.Language]translations.Status{
		domain.LanguageAfrikaans: translations.StatusApproved,
	})

	_, err := f.coordinator.PublishGroup(context.Background(), Request{
		OriginalID: f.original.ID,
		ActorID:    uuid.New(),
		ActorRole:  domain.RoleJournalist,
	})
	if !errors.Is(err, roles.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestPublishGroupRefusesWhenNotReady(t *testing.T) {
	f := newGroupFixture(t, domain.StageTranslated, map[domain.Language]translations.Status{
		domain.LanguageAfrikaans: translations.StatusApproved,
		domain.LanguageXhosa:     translations.StatusNeedsReview,
	})
	ctx := context.Background()

	_, err := f.coordinator.PublishGroup(ctx, Request{
		OriginalID: f.original.ID,
		ActorID:    f.subEditor,
		ActorRole:  domain.RoleSubEditor,
	})
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}

	// No member may have moved.
	original, err := f.items.GetByID(ctx, f.original.ID)
	if err != nil {
		t.Fatalf("load original: %v", err)
	}
	if original.Stage != domain.StageTranslated || original.PublishedAt != nil {
		t.Fatalf("original mutated by refused publish: %+v", original)
	}
	for _, translated := range f.translated {
		member, err := f.items.GetByID(ctx, translated.ID)
		if err != nil {
			t.Fatalf("load translation: %v", err)
		}
		if member.Stage == domain.StagePublished || member.PublishedAt != nil {
			t.Fatalf("translation mutated by refused publish: %+v", member)
		}
	}
}

func TestPublishGroupPartialFailureLeavesNoTrace(t *testing.T) {
	f := newGroupFixture(t, domain.StageTranslated, map[domain.Language]translations.Status{
		domain.LanguageAfrikaans: translations.StatusApproved,
		domain.LanguageXhosa:     translations.StatusApproved,
	})
	ctx := context.Background()

	// Remove one translated member so the multi-record write must fail.
	if err := f.items.Delete(ctx, f.translated[0].ID); err != nil {
		t.Fatalf("delete member: %v", err)
	}

	_, err := f.coordinator.PublishGroup(ctx, Request{
		OriginalID: f.original.ID,
		ActorID:    f.subEditor,
		ActorRole:  domain.RoleSubEditor,
	})
	if err == nil {
		t.Fatal("expected publish to fail with a missing member")
	}

	original, err := f.items.GetByID(ctx, f.original.ID)
	if err != nil {
		t.Fatalf("load original: %v", err)
	}
	if original.Stage == domain.StagePublished || original.PublishedAt != nil {
		t.Fatalf("original mutated by failed publish: %+v", original)
	}
}

func TestPublishGroupRejectsRepublish(t *testing.T) {
	f := newGroupFixture(t, domain.StageTranslated, map[domain.Language]translations.Status{
		domain.LanguageAfrikaans: translations.StatusApproved,
	})
	ctx := context.Background()
	req := Request{OriginalID: f.original.ID, ActorID: f.subEditor, ActorRole: domain.RoleSubEditor}

	if _, err := f.coordinator.PublishGroup(ctx, req); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if _, err := f.coordinator.PublishGroup(ctx, req); !errors.Is(err, ErrAlreadyPublished) {
		t.Fatalf("expected ErrAlreadyPublished, got %v", err)
	}
}
