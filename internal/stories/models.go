package stories

import (
	"time"

	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Story is the unit that moves through the editorial pipeline: an original
// story or a translation of one. Translations are first-class records with a
// back-reference to the original; their stage only ever takes values driven
// by the translation sub-workflow.
type Story struct {
	bun.BaseModel `bun:"table:stories,alias:s"`

	ID            uuid.UUID       `bun:",pk,type:uuid" json:"id"`
	Slug          string          `bun:"slug,notnull" json:"slug"`
	Title         string          `bun:"title,notnull" json:"title"`
	Body          string          `bun:"body" json:"body"`
	Stage         domain.Stage    `bun:"stage,notnull,default:'draft'" json:"stage"`
	Language      domain.Language `bun:"language,notnull" json:"language"`
	IsTranslation bool            `bun:"is_translation,notnull,default:false" json:"is_translation"`
	OriginalID    *uuid.UUID      `bun:"original_id,type:uuid,nullzero" json:"original_id,omitempty"`

	CategoryID *uuid.UUID `bun:"category_id,type:uuid,nullzero" json:"category_id,omitempty"`
	// AudioRefs point at the original's audio attachments; a translation
	// never owns its own audio set.
	AudioRefs []string `bun:"audio_refs,type:jsonb" json:"audio_refs,omitempty"`

	AuthorID uuid.UUID `bun:"author_id,notnull,type:uuid" json:"author_id"`
	// AuthorRole is snapshotted at creation; it decides the submit route
	// (intern copy passes journalist review, journalist copy skips it).
	AuthorRole         domain.Role `bun:"author_role,notnull" json:"author_role"`
	AssignedReviewerID *uuid.UUID  `bun:"assigned_reviewer_id,type:uuid,nullzero" json:"assigned_reviewer_id,omitempty"`
	AssignedApproverID *uuid.UUID  `bun:"assigned_approver_id,type:uuid,nullzero" json:"assigned_approver_id,omitempty"`

	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	// UpdatedAt is reset on every stage transition; it is the canonical
	// "entered current stage" marker the SLA monitor measures dwell from.
	UpdatedAt   time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
	PublishedAt *time.Time `bun:"published_at,nullzero" json:"published_at,omitempty"`
}
