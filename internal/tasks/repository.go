package tasks

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// StatusUpdate describes an optimistic task status write: the write only
// applies while the stored status still equals From.
type StatusUpdate struct {
	TaskID      uuid.UUID
	From        Status
	To          Status
	At          time.Time
	CompletedAt *time.Time
	Assignee    *uuid.UUID
}

// Repository abstracts storage operations for tasks.
type Repository interface {
	Create(ctx context.Context, record *Task) (*Task, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	List(ctx context.Context) ([]*Task, error)
	ListByAssignee(ctx context.Context, assigneeID uuid.UUID, openOnly bool) ([]*Task, error)
	ListByContent(ctx context.Context, contentID uuid.UUID) ([]*Task, error)
	// FindOpen returns the single open task for a (content, type) step, or
	// NotFoundError; the one-open-task-per-step invariant is enforced at
	// creation against this lookup.
	FindOpen(ctx context.Context, contentID uuid.UUID, taskType Type) (*Task, error)
	CountOpenByAssignee(ctx context.Context, assigneeID uuid.UUID) (int, error)
	Update(ctx context.Context, record *Task) (*Task, error)
	// UpdateStatus performs the check-and-set status write, returning
	// StaleStatusError when the stored status no longer matches.
	UpdateStatus(ctx context.Context, update StatusUpdate) (*Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// NewTaskRepository builds the go-repository-bun backed CRUD repository.
func NewTaskRepository(db *bun.DB) repository.Repository[*Task] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Task]{
		NewRecord: func() *Task { return &Task{} },
		GetID: func(t *Task) uuid.UUID {
			return t.ID
		},
		SetID: func(t *Task, id uuid.UUID) {
			t.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(t *Task) string {
			return t.ID.String()
		},
	})
}
