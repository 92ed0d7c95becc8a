package newsroomcmd

import (
	"context"

	"github.com/bushradio/newsdesk/internal/commands"
	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/bushradio/newsdesk/internal/tasks"
	"github.com/bushradio/newsdesk/pkg/interfaces"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

const reviewStoryMessageType = "newsdesk.story.review"

// ReviewStoryCommand closes a review or approval task with a verdict. The
// completion couples to the matching stage edge: approve advances, revise
// sends the copy back.
type ReviewStoryCommand struct {
	TaskID    uuid.UUID            `json:"task_id"`
	ActorID   uuid.UUID            `json:"actor_id"`
	ActorRole domain.Role          `json:"actor_role"`
	Outcome   domain.ReviewOutcome `json:"outcome"`
	Notes     string               `json:"notes,omitempty"`
}

// Type implements command.Message.
func (ReviewStoryCommand) Type() string { return reviewStoryMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m ReviewStoryCommand) Validate() error {
	errs := validation.Errors{}
	if m.TaskID == uuid.Nil {
		errs["task_id"] = validation.NewError("newsdesk.story.review.task_id_required", "task_id is required")
	}
	if m.ActorID == uuid.Nil {
		errs["actor_id"] = validation.NewError("newsdesk.story.review.actor_id_required", "actor_id is required")
	}
	if m.Outcome != domain.OutcomeApprove && m.Outcome != domain.OutcomeRevise {
		errs["outcome"] = validation.NewError("newsdesk.story.review.outcome_invalid", "outcome must be approve or revise")
	}
	if m.Outcome == domain.OutcomeRevise && m.Notes == "" {
		errs["notes"] = validation.NewError("newsdesk.story.review.notes_required", "notes are required when sending copy back")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ReviewStoryHandler closes review and approval tasks via the orchestrator.
type ReviewStoryHandler struct {
	inner *commands.Handler[ReviewStoryCommand]
}

// NewReviewStoryHandler constructs a handler wired to the provided task service.
func NewReviewStoryHandler(service tasks.Service, logger interfaces.Logger, opts ...commands.HandlerOption[ReviewStoryCommand]) *ReviewStoryHandler {
	exec := func(ctx context.Context, msg ReviewStoryCommand) error {
		var metadata map[string]any
		if msg.Notes != "" {
			metadata = map[string]any{"notes": msg.Notes}
		}
		_, err := service.Complete(ctx, tasks.CompleteRequest{
			TaskID:    msg.TaskID,
			ActorID:   msg.ActorID,
			ActorRole: msg.ActorRole,
			Outcome:   msg.Outcome,
			Metadata:  metadata,
		})
		return err
	}

	handlerOpts := []commands.HandlerOption[ReviewStoryCommand]{
		commands.WithLogger[ReviewStoryCommand](logger),
		commands.WithOperation[ReviewStoryCommand]("story.review"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ReviewStoryHandler{
		inner: commands.NewHandler[ReviewStoryCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[ReviewStoryCommand].Execute.
func (h *ReviewStoryHandler) Execute(ctx context.Context, msg ReviewStoryCommand) error {
	return h.inner.Execute(ctx, msg)
}
