package tasks

import (
	"time"

	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Type names the unit of work a task represents.
type Type string

const (
	TypeStoryCreate   Type = "story_create"
	TypeStoryReview   Type = "story_review"
	TypeStoryApproval Type = "story_approval"
	TypeStoryPublish  Type = "story_publish"
	TypeStoryFollowUp Type = "story_follow_up"
	TypeTranslation   Type = "translation"
)

// Types lists every known task type.
func Types() []Type {
	return []Type{TypeStoryCreate, TypeStoryReview, TypeStoryApproval, TypeStoryPublish, TypeStoryFollowUp, TypeTranslation}
}

// DrivesStage reports whether completing a task of this type requests a
// story stage transition. Follow-up and translation work closes on its own.
func (t Type) DrivesStage() bool {
	switch t {
	case TypeStoryCreate, TypeStoryReview, TypeStoryApproval, TypeStoryPublish:
		return true
	default:
		return false
	}
}

// Status tracks a task through its lifecycle. Completed and cancelled are
// terminal; pending_assignment marks a task created without a resolvable
// assignee; blocked marks an unmet external dependency.
type Status string

const (
	StatusPending           Status = "pending"
	StatusInProgress        Status = "in_progress"
	StatusCompleted         Status = "completed"
	StatusPendingAssignment Status = "pending_assignment"
	StatusBlocked           Status = "blocked"
	StatusCancelled         Status = "cancelled"
)

// Terminal reports whether the status admits no further transition.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Open reports whether the task still represents pending work.
func (s Status) Open() bool {
	return !s.Terminal()
}

// Priority orders tasks within an assignee's inbox.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// ContentKind discriminates the polymorphic content reference.
type ContentKind string

const (
	ContentKindStory    ContentKind = "story"
	ContentKindBulletin ContentKind = "bulletin"
	ContentKindShow     ContentKind = "show"
)

// ContentRef points a task at the record it concerns. Kind and ID travel
// together; the referenced record is never owned by the task.
type ContentRef struct {
	Kind ContentKind `bun:"content_kind,notnull" json:"kind"`
	ID   uuid.UUID   `bun:"content_id,notnull,type:uuid" json:"id"`
}

// Task is one discrete, assignable unit of editorial work.
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID       uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Type     Type      `bun:"type,notnull" json:"type"`
	Status   Status    `bun:"status,notnull" json:"status"`
	Priority Priority  `bun:"priority,notnull" json:"priority"`

	Content ContentRef `bun:",embed" json:"content"`

	AssigneeID  *uuid.UUID `bun:"assignee_id,type:uuid" json:"assignee_id,omitempty"`
	CreatedByID uuid.UUID  `bun:"created_by_id,notnull,type:uuid" json:"created_by_id"`

	// TargetLanguage is set on translation tasks only; it scopes the
	// reassignment candidate pool.
	TargetLanguage domain.Language `bun:"target_language" json:"target_language,omitempty"`

	BlockedReason string         `bun:"blocked_reason" json:"blocked_reason,omitempty"`
	Metadata      map[string]any `bun:"metadata,type:jsonb" json:"metadata,omitempty"`

	DueDate     *time.Time `bun:"due_date" json:"due_date,omitempty"`
	CompletedAt *time.Time `bun:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull" json:"updated_at"`
}

// Staff describes one member of the newsroom for candidate selection.
type Staff struct {
	ID        uuid.UUID
	Role      domain.Role
	Languages []domain.Language
}
