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

const submitStoryMessageType = "newsdesk.story.submit"

// SubmitStoryCommand completes an authoring task, pushing the draft into the
// review pipeline.
type SubmitStoryCommand struct {
	TaskID    uuid.UUID   `json:"task_id"`
	ActorID   uuid.UUID   `json:"actor_id"`
	ActorRole domain.Role `json:"actor_role"`
}

// Type implements command.Message.
func (SubmitStoryCommand) Type() string { return submitStoryMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m SubmitStoryCommand) Validate() error {
	errs := validation.Errors{}
	if m.TaskID == uuid.Nil {
		errs["task_id"] = validation.NewError("newsdesk.story.submit.task_id_required", "task_id is required")
	}
	if m.ActorID == uuid.Nil {
		errs["actor_id"] = validation.NewError("newsdesk.story.submit.actor_id_required", "actor_id is required")
	}
	if !m.ActorRole.Known() {
		errs["actor_role"] = validation.NewError("newsdesk.story.submit.actor_role_invalid", "actor_role is not a known staff tier")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SubmitStoryHandler completes authoring tasks via the orchestrator using the
// shared command handler foundation.
type SubmitStoryHandler struct {
	inner *commands.Handler[SubmitStoryCommand]
}

// NewSubmitStoryHandler constructs a handler wired to the provided task service.
func NewSubmitStoryHandler(service tasks.Service, logger interfaces.Logger, opts ...commands.HandlerOption[SubmitStoryCommand]) *SubmitStoryHandler {
	exec := func(ctx context.Context, msg SubmitStoryCommand) error {
		_, err := service.Complete(ctx, tasks.CompleteRequest{
			TaskID:    msg.TaskID,
			ActorID:   msg.ActorID,
			ActorRole: msg.ActorRole,
			Outcome:   domain.OutcomeSubmit,
		})
		return err
	}

	handlerOpts := []commands.HandlerOption[SubmitStoryCommand]{
		commands.WithLogger[SubmitStoryCommand](logger),
		commands.WithOperation[SubmitStoryCommand]("story.submit"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &SubmitStoryHandler{
		inner: commands.NewHandler[SubmitStoryCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[SubmitStoryCommand].Execute.
func (h *SubmitStoryHandler) Execute(ctx context.Context, msg SubmitStoryCommand) error {
	return h.inner.Execute(ctx, msg)
}
