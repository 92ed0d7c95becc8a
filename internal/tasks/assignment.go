package tasks

import (
	"context"
	"sort"
	"sync"

	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/bushradio/newsdesk/internal/roles"
	"github.com/google/uuid"
)

// Directory exposes the newsroom staff for candidate selection.
type Directory interface {
	ListByRoles(ctx context.Context, tiers []domain.Role) ([]Staff, error)
	// ListTranslators returns staff whose configured translation languages
	// include the target language.
	ListTranslators(ctx context.Context, language domain.Language) ([]Staff, error)
}

// AssignmentPolicy picks one assignee from a candidate pool. Returning false
// leaves the task in pending_assignment.
type AssignmentPolicy interface {
	Select(ctx context.Context, candidates []Staff, openLoad map[uuid.UUID]int) (uuid.UUID, bool)
}

// LeastLoadedPolicy assigns to the candidate with the fewest open tasks,
// breaking ties by identifier for determinism.
type LeastLoadedPolicy struct{}

func (LeastLoadedPolicy) Select(_ context.Context, candidates []Staff, openLoad map[uuid.UUID]int) (uuid.UUID, bool) {
	if len(candidates) == 0 {
		return uuid.Nil, false
	}
	sorted := make([]Staff, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		li, lj := openLoad[sorted[i].ID], openLoad[sorted[j].ID]
		if li != lj {
			return li < lj
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})
	return sorted[0].ID, true
}

// RoundRobinPolicy cycles through candidates in identifier order, one step
// per selection.
type RoundRobinPolicy struct {
	mu   sync.Mutex
	next int
}

func (p *RoundRobinPolicy) Select(_ context.Context, candidates []Staff, _ map[uuid.UUID]int) (uuid.UUID, bool) {
	if len(candidates) == 0 {
		return uuid.Nil, false
	}
	sorted := make([]Staff, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	pick := sorted[p.next%len(sorted)]
	p.next++
	return pick.ID, true
}

// MemoryDirectory is an in-memory staff directory for tests and the demo CLI.
type MemoryDirectory struct {
	mu    sync.RWMutex
	staff []Staff
}

// NewMemoryDirectory creates an empty staff directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{}
}

// Add registers a staff member.
func (d *MemoryDirectory) Add(member Staff) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.staff = append(d.staff, member)
}

func (d *MemoryDirectory) ListByRoles(_ context.Context, tiers []domain.Role) ([]Staff, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	wanted := make(map[domain.Role]bool, len(tiers))
	for _, tier := range tiers {
		wanted[tier] = true
	}
	out := make([]Staff, 0, len(d.staff))
	for _, member := range d.staff {
		if wanted[member.Role] {
			out = append(out, member)
		}
	}
	return out, nil
}

func (d *MemoryDirectory) ListTranslators(_ context.Context, language domain.Language) ([]Staff, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Staff, 0, len(d.staff))
	for _, member := range d.staff {
		for _, configured := range member.Languages {
			if configured == language {
				out = append(out, member)
				break
			}
		}
	}
	return out, nil
}

// candidateTiers maps a task type to the staff tiers eligible to hold it.
func candidateTiers(taskType Type) []domain.Role {
	switch taskType {
	case TypeStoryReview:
		return roles.ReviewerRoles()
	case TypeStoryApproval, TypeStoryPublish:
		return roles.ApproverRoles()
	default:
		return nil
	}
}
