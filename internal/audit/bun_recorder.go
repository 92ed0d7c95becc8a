package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/bushradio/newsdesk/internal/storage"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Entry is the persisted form of an audit event.
type Entry struct {
	bun.BaseModel `bun:"table:audit_events,alias:ae"`

	ID         uuid.UUID      `bun:",pk,type:uuid" json:"id"`
	EntityType string         `bun:"entity_type,notnull" json:"entity_type"`
	EntityID   string         `bun:"entity_id,notnull" json:"entity_id"`
	Action     string         `bun:"action,notnull" json:"action"`
	ActorID    uuid.UUID      `bun:"actor_id,type:uuid" json:"actor_id"`
	FromStage  string         `bun:"from_stage" json:"from_stage,omitempty"`
	ToStage    string         `bun:"to_stage" json:"to_stage,omitempty"`
	OccurredAt time.Time      `bun:"occurred_at,notnull" json:"occurred_at"`
	Metadata   map[string]any `bun:"metadata,type:jsonb" json:"metadata,omitempty"`
}

// BunRecorder appends audit events to the database. Entries are insert-only.
type BunRecorder struct {
	db *bun.DB
}

// NewBunRecorder constructs a recorder backed by bun.
func NewBunRecorder(db *bun.DB) *BunRecorder {
	return &BunRecorder{db: db}
}

// Record appends the event.
func (r *BunRecorder) Record(ctx context.Context, event Event) error {
	if r.db == nil {
		return fmt.Errorf("audit recorder: database not configured")
	}
	entry := &Entry{
		ID:         uuid.New(),
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Action:     event.Action,
		ActorID:    event.ActorID,
		FromStage:  event.FromStage,
		ToStage:    event.ToStage,
		OccurredAt: event.OccurredAt,
		Metadata:   event.Metadata,
	}
	// Joins the context's transaction when one is bound, so trail entries
	// roll back with the writes they describe.
	if _, err := storage.IDB(ctx, r.db).NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}
	return nil
}

// List returns the recorded events ordered by occurrence.
func (r *BunRecorder) List(ctx context.Context) ([]Event, error) {
	if r.db == nil {
		return nil, fmt.Errorf("audit recorder: database not configured")
	}
	var entries []Entry
	if err := r.db.NewSelect().Model(&entries).Order("occurred_at ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	out := make([]Event, 0, len(entries))
	for _, entry := range entries {
		out = append(out, Event{
			EntityType: entry.EntityType,
			EntityID:   entry.EntityID,
			Action:     entry.Action,
			ActorID:    entry.ActorID,
			FromStage:  entry.FromStage,
			ToStage:    entry.ToStage,
			OccurredAt: entry.OccurredAt,
			Metadata:   entry.Metadata,
		})
	}
	return out, nil
}
