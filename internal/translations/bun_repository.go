package translations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bushradio/newsdesk/internal/domain"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunRepository persists translation assignments through bun.
type BunRepository struct {
	db   *bun.DB
	repo repository.Repository[*Assignment]
}

// NewBunRepository constructs an assignment repository backed by bun.
func NewBunRepository(db *bun.DB) *BunRepository {
	return NewBunRepositoryWithCache(db, nil, nil)
}

// NewBunRepositoryWithCache constructs an assignment repository with optional read caching.
func NewBunRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, keySerializer cache.KeySerializer) *BunRepository {
	base := NewAssignmentRepository(db)
	return &BunRepository{
		db:   db,
		repo: wrapWithCache(base, cacheService, keySerializer),
	}
}

func (r *BunRepository) Create(ctx context.Context, record *Assignment) (*Assignment, error) {
	created, err := r.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *BunRepository) GetByID(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	result, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, id.String())
	}
	return result, nil
}

func (r *BunRepository) GetByOriginalAndLanguage(ctx context.Context, originalID uuid.UUID, language domain.Language) (*Assignment, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.original_id = ?", originalID).
				Where("?TableAlias.target_language = ?", string(language)).
				Limit(1)
		}),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &NotFoundError{Key: originalID.String() + "/" + string(language)}
	}
	return records[0], nil
}

func (r *BunRepository) ListByOriginal(ctx context.Context, originalID uuid.UUID) ([]*Assignment, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.original_id = ?", originalID)
		}),
	)
	return records, err
}

func (r *BunRepository) Update(ctx context.Context, record *Assignment) (*Assignment, error) {
	updated, err := r.repo.Update(ctx, record,
		repository.UpdateByID(record.ID.String()),
		repository.UpdateColumns(
			"translated_id",
			"reviewer_id",
			"assigned_to_id",
			"status",
			"rejection_reason",
			"started_at",
			"submitted_at",
			"reviewed_at",
			"approved_at",
			"rejected_at",
			"updated_at",
		),
	)
	if err != nil {
		return nil, mapRepositoryError(err, record.ID.String())
	}
	return updated, nil
}

func (r *BunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if r.db == nil {
		return fmt.Errorf("translation repository: database not configured")
	}
	result, err := r.db.NewDelete().
		Model((*Assignment)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if affected == 0 {
		return &NotFoundError{Key: id.String()}
	}
	return nil
}

func wrapWithCache[T any](base repository.Repository[T], cacheService cache.CacheService, keySerializer cache.KeySerializer) repository.Repository[T] {
	if cacheService == nil || keySerializer == nil {
		return base
	}
	return repositorycache.New(base, cacheService, keySerializer)
}

func mapRepositoryError(err error, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) || errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Key: key}
	}
	return err
}
