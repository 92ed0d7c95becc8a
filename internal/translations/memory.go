package translations

import (
	"context"
	"sync"

	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/google/uuid"
)

// MemoryRepository is an in-memory implementation for scaffolding and tests.
type MemoryRepository struct {
	mu          sync.RWMutex
	assignments map[uuid.UUID]*Assignment
}

// NewMemoryRepository creates an empty in-memory assignment repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{assignments: make(map[uuid.UUID]*Assignment)}
}

// Create inserts the supplied assignment.
func (m *MemoryRepository) Create(_ context.Context, record *Assignment) (*Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := cloneAssignment(record)
	m.assignments[copied.ID] = copied
	return cloneAssignment(copied), nil
}

// GetByID retrieves an assignment by identifier.
func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.assignments[id]
	if !ok {
		return nil, &NotFoundError{Key: id.String()}
	}
	return cloneAssignment(rec), nil
}

// GetByOriginalAndLanguage retrieves the unique assignment for one
// (original, language) pair.
func (m *MemoryRepository) GetByOriginalAndLanguage(_ context.Context, originalID uuid.UUID, language domain.Language) (*Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.assignments {
		if rec.OriginalID == originalID && rec.TargetLanguage == language {
			return cloneAssignment(rec), nil
		}
	}
	return nil, &NotFoundError{Key: originalID.String() + "/" + string(language)}
}

// ListByOriginal returns every assignment attached to an original story.
func (m *MemoryRepository) ListByOriginal(_ context.Context, originalID uuid.UUID) ([]*Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Assignment, 0, 4)
	for _, rec := range m.assignments {
		if rec.OriginalID == originalID {
			out = append(out, cloneAssignment(rec))
		}
	}
	return out, nil
}

// Update replaces the stored assignment.
func (m *MemoryRepository) Update(_ context.Context, record *Assignment) (*Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.assignments[record.ID]; !ok {
		return nil, &NotFoundError{Key: record.ID.String()}
	}
	copied := cloneAssignment(record)
	m.assignments[copied.ID] = copied
	return cloneAssignment(copied), nil
}

// Delete removes an assignment.
func (m *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.assignments[id]; !ok {
		return &NotFoundError{Key: id.String()}
	}
	delete(m.assignments, id)
	return nil
}

func cloneAssignment(src *Assignment) *Assignment {
	if src == nil {
		return nil
	}
	copied := *src
	copied.TranslatedID = clonePtr(src.TranslatedID)
	copied.ReviewerID = clonePtr(src.ReviewerID)
	copied.StartedAt = clonePtr(src.StartedAt)
	copied.SubmittedAt = clonePtr(src.SubmittedAt)
	copied.ReviewedAt = clonePtr(src.ReviewedAt)
	copied.ApprovedAt = clonePtr(src.ApprovedAt)
	copied.RejectedAt = clonePtr(src.RejectedAt)
	return &copied
}

func clonePtr[T any](src *T) *T {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
