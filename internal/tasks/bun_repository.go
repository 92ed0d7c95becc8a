package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bushradio/newsdesk/internal/storage"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var openStatuses = []string{
	string(StatusPending),
	string(StatusInProgress),
	string(StatusPendingAssignment),
	string(StatusBlocked),
}

// BunRepository persists tasks through bun, with go-repository-bun CRUD
// plumbing and raw queries for the conditional status writes.
type BunRepository struct {
	db   *bun.DB
	repo repository.Repository[*Task]
}

// NewBunRepository constructs a task repository backed by bun.
func NewBunRepository(db *bun.DB) *BunRepository {
	return NewBunRepositoryWithCache(db, nil, nil)
}

// NewBunRepositoryWithCache constructs a task repository with optional read caching.
func NewBunRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, keySerializer cache.KeySerializer) *BunRepository {
	base := NewTaskRepository(db)
	return &BunRepository{
		db:   db,
		repo: wrapWithCache(base, cacheService, keySerializer),
	}
}

// Create inserts directly on the context's connection so tasks opened by a
// transition hook inside a unit of work join its transaction.
func (r *BunRepository) Create(ctx context.Context, record *Task) (*Task, error) {
	if _, err := storage.IDB(ctx, r.db).NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return record, nil
}

func (r *BunRepository) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	result, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, id.String())
	}
	return result, nil
}

func (r *BunRepository) List(ctx context.Context) ([]*Task, error) {
	records, _, err := r.repo.List(ctx)
	return records, err
}

func (r *BunRepository) ListByAssignee(ctx context.Context, assigneeID uuid.UUID, openOnly bool) ([]*Task, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.Where("?TableAlias.assignee_id = ?", assigneeID)
			if openOnly {
				q = q.Where("?TableAlias.status IN (?)", bun.In(openStatuses))
			}
			return q
		}),
	)
	return records, err
}

func (r *BunRepository) ListByContent(ctx context.Context, contentID uuid.UUID) ([]*Task, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.content_id = ?", contentID)
		}),
	)
	return records, err
}

// FindOpen reads on the context's connection for the same reason Create
// does: the one-open-task check must see rows written inside the current
// transaction, never a cached copy.
func (r *BunRepository) FindOpen(ctx context.Context, contentID uuid.UUID, taskType Type) (*Task, error) {
	var records []*Task
	err := storage.IDB(ctx, r.db).NewSelect().
		Model(&records).
		Where("?TableAlias.content_id = ?", contentID).
		Where("?TableAlias.type = ?", string(taskType)).
		Where("?TableAlias.status IN (?)", bun.In(openStatuses)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &NotFoundError{Key: contentID.String() + "/" + string(taskType)}
	}
	return records[0], nil
}

func (r *BunRepository) CountOpenByAssignee(ctx context.Context, assigneeID uuid.UUID) (int, error) {
	if r.db == nil {
		return 0, fmt.Errorf("task repository: database not configured")
	}
	count, err := r.db.NewSelect().
		Model((*Task)(nil)).
		Where("?TableAlias.assignee_id = ?", assigneeID).
		Where("?TableAlias.status IN (?)", bun.In(openStatuses)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count open tasks: %w", err)
	}
	return count, nil
}

func (r *BunRepository) Update(ctx context.Context, record *Task) (*Task, error) {
	updated, err := r.repo.Update(ctx, record,
		repository.UpdateByID(record.ID.String()),
		repository.UpdateColumns(
			"status",
			"priority",
			"assignee_id",
			"blocked_reason",
			"metadata",
			"due_date",
			"completed_at",
			"updated_at",
		),
	)
	if err != nil {
		return nil, mapRepositoryError(err, record.ID.String())
	}
	return updated, nil
}

// UpdateStatus performs the check-and-set write mirroring the story stage
// write: concurrent losers observe zero rows and surface StaleStatusError.
// The write and its re-read join a unit-of-work transaction when the context
// carries one.
func (r *BunRepository) UpdateStatus(ctx context.Context, update StatusUpdate) (*Task, error) {
	if r.db == nil {
		return nil, fmt.Errorf("task repository: database not configured")
	}

	idb := storage.IDB(ctx, r.db)
	query := idb.NewUpdate().
		Model((*Task)(nil)).
		Set("status = ?", string(update.To)).
		Set("updated_at = ?", update.At).
		Where("?TableAlias.id = ?", update.TaskID).
		Where("?TableAlias.status = ?", string(update.From))

	if update.CompletedAt != nil {
		query = query.Set("completed_at = ?", *update.CompletedAt)
	}
	if update.Assignee != nil {
		query = query.Set("assignee_id = ?", *update.Assignee)
	}

	result, err := query.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}
	if affected == 0 {
		stored, getErr := r.getDirect(ctx, idb, update.TaskID)
		if getErr != nil {
			return nil, getErr
		}
		return nil, &StaleStatusError{TaskID: update.TaskID, Expected: update.From, Actual: stored.Status}
	}

	return r.getDirect(ctx, idb, update.TaskID)
}

// getDirect reads a task on the given connection, skipping the cached
// repository path so reads inside an uncommitted transaction see its writes.
func (r *BunRepository) getDirect(ctx context.Context, idb bun.IDB, id uuid.UUID) (*Task, error) {
	stored := new(Task)
	err := idb.NewSelect().
		Model(stored).
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Key: id.String()}
		}
		return nil, err
	}
	return stored, nil
}

func (r *BunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if r.db == nil {
		return fmt.Errorf("task repository: database not configured")
	}
	result, err := r.db.NewDelete().
		Model((*Task)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
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
