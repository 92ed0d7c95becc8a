package tasks

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory implementation for scaffolding and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*Task
}

// NewMemoryRepository creates an empty in-memory task repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tasks: make(map[uuid.UUID]*Task)}
}

// Create inserts the supplied task.
func (m *MemoryRepository) Create(_ context.Context, record *Task) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := cloneTask(record)
	m.tasks[copied.ID] = copied
	return cloneTask(copied), nil
}

// GetByID retrieves a task by identifier.
func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.tasks[id]
	if !ok {
		return nil, &NotFoundError{Key: id.String()}
	}
	return cloneTask(rec), nil
}

// List returns all tasks.
func (m *MemoryRepository) List(_ context.Context) ([]*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Task, 0, len(m.tasks))
	for _, rec := range m.tasks {
		out = append(out, cloneTask(rec))
	}
	return out, nil
}

// ListByAssignee returns a user's tasks, optionally only the open ones.
func (m *MemoryRepository) ListByAssignee(_ context.Context, assigneeID uuid.UUID, openOnly bool) ([]*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Task, 0, 8)
	for _, rec := range m.tasks {
		if rec.AssigneeID == nil || *rec.AssigneeID != assigneeID {
			continue
		}
		if openOnly && !rec.Status.Open() {
			continue
		}
		out = append(out, cloneTask(rec))
	}
	return out, nil
}

// ListByContent returns every task referencing one content record.
func (m *MemoryRepository) ListByContent(_ context.Context, contentID uuid.UUID) ([]*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Task, 0, 4)
	for _, rec := range m.tasks {
		if rec.Content.ID == contentID {
			out = append(out, cloneTask(rec))
		}
	}
	return out, nil
}

// FindOpen returns the open task for a (content, type) step.
func (m *MemoryRepository) FindOpen(_ context.Context, contentID uuid.UUID, taskType Type) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.tasks {
		if rec.Content.ID == contentID && rec.Type == taskType && rec.Status.Open() {
			return cloneTask(rec), nil
		}
	}
	return nil, &NotFoundError{Key: contentID.String() + "/" + string(taskType)}
}

// CountOpenByAssignee counts a user's open tasks for load-based assignment.
func (m *MemoryRepository) CountOpenByAssignee(_ context.Context, assigneeID uuid.UUID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, rec := range m.tasks {
		if rec.AssigneeID != nil && *rec.AssigneeID == assigneeID && rec.Status.Open() {
			count++
		}
	}
	return count, nil
}

// Update replaces the stored task.
func (m *MemoryRepository) Update(_ context.Context, record *Task) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[record.ID]; !ok {
		return nil, &NotFoundError{Key: record.ID.String()}
	}
	copied := cloneTask(record)
	m.tasks[copied.ID] = copied
	return cloneTask(copied), nil
}

// UpdateStatus applies the optimistic status write under the repository lock.
func (m *MemoryRepository) UpdateStatus(_ context.Context, update StatusUpdate) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.tasks[update.TaskID]
	if !ok {
		return nil, &NotFoundError{Key: update.TaskID.String()}
	}
	if stored.Status != update.From {
		return nil, &StaleStatusError{TaskID: update.TaskID, Expected: update.From, Actual: stored.Status}
	}

	stored.Status = update.To
	stored.UpdatedAt = update.At
	if update.CompletedAt != nil {
		at := *update.CompletedAt
		stored.CompletedAt = &at
	}
	if update.Assignee != nil {
		id := *update.Assignee
		stored.AssigneeID = &id
	}
	return cloneTask(stored), nil
}

// Delete removes a task.
func (m *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[id]; !ok {
		return &NotFoundError{Key: id.String()}
	}
	delete(m.tasks, id)
	return nil
}

func cloneTask(src *Task) *Task {
	if src == nil {
		return nil
	}
	copied := *src
	if src.AssigneeID != nil {
		id := *src.AssigneeID
		copied.AssigneeID = &id
	}
	if src.DueDate != nil {
		at := *src.DueDate
		copied.DueDate = &at
	}
	if src.CompletedAt != nil {
		at := *src.CompletedAt
		copied.CompletedAt = &at
	}
	if src.Metadata != nil {
		metadata := make(map[string]any, len(src.Metadata))
		for k, v := range src.Metadata {
			metadata[k] = v
		}
		copied.Metadata = metadata
	}
	return &copied
}
