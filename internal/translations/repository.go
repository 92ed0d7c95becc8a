package translations

import (
	"context"

	"github.com/bushradio/newsdesk/internal/domain"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository abstracts storage operations for translation assignments.
type Repository interface {
	Create(ctx context.Context, record *Assignment) (*Assignment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Assignment, error)
	GetByOriginalAndLanguage(ctx context.Context, originalID uuid.UUID, language domain.Language) (*Assignment, error)
	ListByOriginal(ctx context.Context, originalID uuid.UUID) ([]*Assignment, error)
	Update(ctx context.Context, record *Assignment) (*Assignment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// NewAssignmentRepository builds the go-repository-bun backed CRUD repository.
func NewAssignmentRepository(db *bun.DB) repository.Repository[*Assignment] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Assignment]{
		NewRecord: func() *Assignment { return &Assignment{} },
		GetID: func(a *Assignment) uuid.UUID {
			return a.ID
		},
		SetID: func(a *Assignment, id uuid.UUID) {
			a.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(a *Assignment) string {
			return a.ID.String()
		},
	})
}
