package stories

import (
	"context"
	"time"

	"github.com/bushradio/newsdesk/internal/domain"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// StageUpdate describes an optimistic stage write: the write only applies
// while the stored stage still equals From.
type StageUpdate struct {
	StoryID        uuid.UUID
	From           domain.Stage
	To             domain.Stage
	At             time.Time
	AssignReviewer *uuid.UUID
	AssignApprover *uuid.UUID
}

// Repository abstracts storage operations for stories.
type Repository interface {
	Create(ctx context.Context, record *Story) (*Story, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Story, error)
	GetBySlug(ctx context.Context, slug string) (*Story, error)
	List(ctx context.Context) ([]*Story, error)
	// ListPipeline returns every non-published original story in one scan;
	// the metrics monitor groups the result in memory.
	ListPipeline(ctx context.Context) ([]*Story, error)
	ListByOriginal(ctx context.Context, originalID uuid.UUID) ([]*Story, error)
	Update(ctx context.Context, record *Story) (*Story, error)
	// UpdateStage performs the check-and-set stage write, returning
	// StaleStageError when the stored stage no longer matches.
	UpdateStage(ctx context.Context, update StageUpdate) (*Story, error)
	// PublishGroup atomically stamps stage=published and published_at on
	// every member; no member changes when any member cannot be published.
	PublishGroup(ctx context.Context, ids []uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// NewStoryRepository builds the go-repository-bun backed CRUD repository.
func NewStoryRepository(db *bun.DB) repository.Repository[*Story] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Story]{
		NewRecord: func() *Story { return &Story{} },
		GetID: func(s *Story) uuid.UUID {
			return s.ID
		},
		SetID: func(s *Story, id uuid.UUID) {
			s.ID = id
		},
		GetIdentifier: func() string {
			return "slug"
		},
		GetIdentifierValue: func(s *Story) string {
			return s.Slug
		},
	})
}
