package translations

import (
	"time"

	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Status tracks a translation assignment through its sub-workflow. Approved
// is the only terminal status; rejected loops back to in_progress when the
// translator resumes work.
type Status string

const (
	StatusPending     Status = "pending"
	StatusInProgress  Status = "in_progress"
	StatusNeedsReview Status = "needs_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

// Terminal reports whether the status admits no further transition.
func (s Status) Terminal() bool {
	return s == StatusApproved
}

// Assignment links an original story to its translated counterpart for one
// target language. Exactly one assignment exists per (original, language).
// The translated item references the original's category and audio set; it
// never owns copies of either.
type Assignment struct {
	bun.BaseModel `bun:"table:translation_assignments,alias:ta"`

	ID              uuid.UUID       `bun:"id,pk,type:uuid" json:"id"`
	OriginalID      uuid.UUID       `bun:"original_id,notnull,type:uuid" json:"original_id"`
	TranslatedID    *uuid.UUID      `bun:"translated_id,type:uuid" json:"translated_id,omitempty"`
	TargetLanguage  domain.Language `bun:"target_language,notnull" json:"target_language"`
	AssignedToID    uuid.UUID       `bun:"assigned_to_id,notnull,type:uuid" json:"assigned_to_id"`
	ReviewerID      *uuid.UUID      `bun:"reviewer_id,type:uuid" json:"reviewer_id,omitempty"`
	Status          Status          `bun:"status,notnull" json:"status"`
	RejectionReason string          `bun:"rejection_reason" json:"rejection_reason,omitempty"`

	StartedAt   *time.Time `bun:"started_at" json:"started_at,omitempty"`
	SubmittedAt *time.Time `bun:"submitted_at" json:"submitted_at,omitempty"`
	ReviewedAt  *time.Time `bun:"reviewed_at" json:"reviewed_at,omitempty"`
	ApprovedAt  *time.Time `bun:"approved_at" json:"approved_at,omitempty"`
	RejectedAt  *time.Time `bun:"rejected_at" json:"rejected_at,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull" json:"updated_at"`
}
