package stories

import (
	"context"
	"sync"
	"time"

	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/google/uuid"
)

// MemoryRepository is an in-memory implementation for scaffolding and tests.
type MemoryRepository struct {
	mu        sync.RWMutex
	stories   map[uuid.UUID]*Story
	slugIndex map[string]uuid.UUID
}

// NewMemoryRepository creates an empty in-memory story repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		stories:   make(map[uuid.UUID]*Story),
		slugIndex: make(map[string]uuid.UUID),
	}
}

// Create inserts the supplied story.
func (m *MemoryRepository) Create(_ context.Context, record *Story) (*Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := cloneStory(record)
	m.stories[copied.ID] = copied
	m.slugIndex[copied.Slug] = copied.ID
	return cloneStory(copied), nil
}

// GetByID retrieves a story by identifier.
func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.stories[id]
	if !ok {
		return nil, &NotFoundError{Resource: "story", Key: id.String()}
	}
	return cloneStory(rec), nil
}

// GetBySlug retrieves a story by slug, returning NotFoundError when absent.
func (m *MemoryRepository) GetBySlug(_ context.Context, slug string) (*Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.slugIndex[slug]
	if !ok {
		return nil, &NotFoundError{Resource: "story", Key: slug}
	}
	return cloneStory(m.stories[id]), nil
}

// List returns all stories.
func (m *MemoryRepository) List(_ context.Context) ([]*Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Story, 0, len(m.stories))
	for _, rec := range m.stories {
		out = append(out, cloneStory(rec))
	}
	return out, nil
}

// ListPipeline returns non-published originals in a single pass.
func (m *MemoryRepository) ListPipeline(_ context.Context) ([]*Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Story, 0, len(m.stories))
	for _, rec := range m.stories {
		if rec.IsTranslation || rec.Stage == domain.StagePublished {
			continue
		}
		out = append(out, cloneStory(rec))
	}
	return out, nil
}

// ListByOriginal returns the translations of an original story.
func (m *MemoryRepository) ListByOriginal(_ context.Context, originalID uuid.UUID) ([]*Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Story, 0, 4)
	for _, rec := range m.stories {
		if rec.OriginalID != nil && *rec.OriginalID == originalID {
			out = append(out, cloneStory(rec))
		}
	}
	return out, nil
}

// Update replaces the stored story.
func (m *MemoryRepository) Update(_ context.Context, record *Story) (*Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.stories[record.ID]
	if !ok {
		return nil, &NotFoundError{Resource: "story", Key: record.ID.String()}
	}
	delete(m.slugIndex, stored.Slug)

	copied := cloneStory(record)
	m.stories[copied.ID] = copied
	m.slugIndex[copied.Slug] = copied.ID
	return cloneStory(copied), nil
}

// UpdateStage applies the optimistic stage write under the repository lock.
func (m *MemoryRepository) UpdateStage(_ context.Context, update StageUpdate) (*Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.stories[update.StoryID]
	if !ok {
		return nil, &NotFoundError{Resource: "story", Key: update.StoryID.String()}
	}
	if stored.Stage != update.From {
		return nil, &StaleStageError{StoryID: update.StoryID, Expected: update.From, Actual: stored.Stage}
	}

	stored.Stage = update.To
	stored.UpdatedAt = update.At
	if update.AssignReviewer != nil {
		stored.AssignedReviewerID = update.AssignReviewer
	}
	if update.AssignApprover != nil {
		stored.AssignedApproverID = update.AssignApprover
	}
	if update.To == domain.StagePublished {
		at := update.At
		stored.PublishedAt = &at
	}
	return cloneStory(stored), nil
}

// PublishGroup stamps every member under one lock; nothing changes when any
// member is missing or already published.
func (m *MemoryRepository) PublishGroup(_ context.Context, ids []uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := make([]*Story, 0, len(ids))
	for _, id := range ids {
		stored, ok := m.stories[id]
		if !ok {
			return &NotFoundError{Resource: "story", Key: id.String()}
		}
		if stored.Stage == domain.StagePublished {
			return &StaleStageError{StoryID: id, Expected: stored.Stage, Actual: domain.StagePublished}
		}
		members = append(members, stored)
	}

	for _, member := range members {
		member.Stage = domain.StagePublished
		stamped := at
		member.PublishedAt = &stamped
		member.UpdatedAt = at
	}
	return nil
}

// Delete removes a story.
func (m *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.stories[id]
	if !ok {
		return &NotFoundError{Resource: "story", Key: id.String()}
	}
	delete(m.slugIndex, stored.Slug)
	delete(m.stories, id)
	return nil
}

func cloneStory(src *Story) *Story {
	if src == nil {
		return nil
	}
	copied := *src
	if src.OriginalID != nil {
		id := *src.OriginalID
		copied.OriginalID = &id
	}
	if src.CategoryID != nil {
		id := *src.CategoryID
		copied.CategoryID = &id
	}
	if src.AssignedReviewerID != nil {
		id := *src.AssignedReviewerID
		copied.AssignedReviewerID = &id
	}
	if src.AssignedApproverID != nil {
		id := *src.AssignedApproverID
		copied.AssignedApproverID = &id
	}
	if src.PublishedAt != nil {
		at := *src.PublishedAt
		copied.PublishedAt = &at
	}
	if len(src.AudioRefs) > 0 {
		copied.AudioRefs = append([]string(nil), src.AudioRefs...)
	}
	return &copied
}
