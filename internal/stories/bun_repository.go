package stories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/bushradio/newsdesk/internal/storage"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunRepository persists stories through bun, with go-repository-bun CRUD
// plumbing and raw queries for the conditional stage writes.
type BunRepository struct {
	db   *bun.DB
	repo repository.Repository[*Story]
}

// NewBunRepository constructs a story repository backed by bun.
func NewBunRepository(db *bun.DB) *BunRepository {
	return NewBunRepositoryWithCache(db, nil, nil)
}

// NewBunRepositoryWithCache constructs a story repository with optional read caching.
func NewBunRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, keySerializer cache.KeySerializer) *BunRepository {
	base := NewStoryRepository(db)
	return &BunRepository{
		db:   db,
		repo: wrapWithCache(base, cacheService, keySerializer),
	}
}

func (r *BunRepository) Create(ctx context.Context, record *Story) (*Story, error) {
	created, err := r.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *BunRepository) GetByID(ctx context.Context, id uuid.UUID) (*Story, error) {
	result, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, "story", id.String())
	}
	return result, nil
}

func (r *BunRepository) GetBySlug(ctx context.Context, slug string) (*Story, error) {
	result, err := r.repo.GetByIdentifier(ctx, slug)
	if err != nil {
		return nil, mapRepositoryError(err, "story", slug)
	}
	return result, nil
}

func (r *BunRepository) List(ctx context.Context) ([]*Story, error) {
	records, _, err := r.repo.List(ctx)
	return records, err
}

func (r *BunRepository) ListPipeline(ctx context.Context) ([]*Story, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.is_translation = ?", false).
				Where("?TableAlias.stage != ?", string(domain.StagePublished))
		}),
	)
	return records, err
}

func (r *BunRepository) ListByOriginal(ctx context.Context, originalID uuid.UUID) ([]*Story, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.original_id = ?", originalID)
		}),
	)
	return records, err
}

func (r *BunRepository) Update(ctx context.Context, record *Story) (*Story, error) {
	updated, err := r.repo.Update(ctx, record,
		repository.UpdateByID(record.ID.String()),
		repository.UpdateColumns(
			"title",
			"body",
			"category_id",
			"audio_refs",
			"assigned_reviewer_id",
			"assigned_approver_id",
			"updated_at",
		),
	)
	if err != nil {
		return nil, mapRepositoryError(err, "story", record.ID.String())
	}
	return updated, nil
}

// UpdateStage performs the check-and-set write: the UPDATE is conditioned on
// the stage read before the write, so concurrent losers observe zero rows
// and surface StaleStageError instead of overwriting. The write and its
// re-read join a unit-of-work transaction when the context carries one.
func (r *BunRepository) UpdateStage(ctx context.Context, update StageUpdate) (*Story, error) {
	if r.db == nil {
		return nil, fmt.Errorf("story repository: database not configured")
	}

	idb := storage.IDB(ctx, r.db)
	query := idb.NewUpdate().
		Model((*Story)(nil)).
		Set("stage = ?", string(update.To)).
		Set("updated_at = ?", update.At).
		Where("?TableAlias.id = ?", update.StoryID).
		Where("?TableAlias.stage = ?", string(update.From))

	if update.AssignReviewer != nil {
		query = query.Set("assigned_reviewer_id = ?", *update.AssignReviewer)
	}
	if update.AssignApprover != nil {
		query = query.Set("assigned_approver_id = ?", *update.AssignApprover)
	}
	if update.To == domain.StagePublished {
		query = query.Set("published_at = ?", update.At)
	}

	result, err := query.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update story stage: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update story stage: %w", err)
	}
	if affected == 0 {
		stored, getErr := r.getDirect(ctx, idb, update.StoryID)
		if getErr != nil {
			return nil, getErr
		}
		return nil, &StaleStageError{StoryID: update.StoryID, Expected: update.From, Actual: stored.Stage}
	}

	return r.getDirect(ctx, idb, update.StoryID)
}

// getDirect reads a story on the given connection, skipping the cached
// repository path so reads inside an uncommitted transaction see its writes.
func (r *BunRepository) getDirect(ctx context.Context, idb bun.IDB, id uuid.UUID) (*Story, error) {
	stored := new(Story)
	err := idb.NewSelect().
		Model(stored).
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Resource: "story", Key: id.String()}
		}
		return nil, err
	}
	return stored, nil
}

// PublishGroup stamps every member inside one transaction; a missing or
// already-published member rolls the whole release back.
func (r *BunRepository) PublishGroup(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if r.db == nil {
		return fmt.Errorf("story repository: database not configured")
	}

	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, id := range ids {
			result, err := tx.NewUpdate().
				Model((*Story)(nil)).
				Set("stage = ?", string(domain.StagePublished)).
				Set("published_at = ?", at).
				Set("updated_at = ?", at).
				Where("?TableAlias.id = ?", id).
				Where("?TableAlias.stage != ?", string(domain.StagePublished)).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("publish story %s: %w", id, err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("publish story %s: %w", id, err)
			}
			if affected == 0 {
				return &NotFoundError{Resource: "story", Key: id.String()}
			}
		}
		return nil
	})
}

func (r *BunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if r.db == nil {
		return fmt.Errorf("story repository: database not configured")
	}
	result, err := r.db.NewDelete().
		Model((*Story)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete story: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete story: %w", err)
	}
	if affected == 0 {
		return &NotFoundError{Resource: "story", Key: id.String()}
	}
	return nil
}

func wrapWithCache[T any](base repository.Repository[T], cacheService cache.CacheService, keySerializer cache.KeySerializer) repository.Repository[T] {
	if cacheService == nil || keySerializer == nil {
		return base
	}
	return repositorycache.New(base, cacheService, keySerializer)
}

func mapRepositoryError(err error, resource, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) || errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Resource: resource, Key: key}
	}
	return err
}
