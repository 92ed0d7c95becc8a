package newsroomcmd

import (
	"context"

	"github.com/bushradio/newsdesk/internal/commands"
	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/bushradio/newsdesk/internal/publish"
	"github.com/bushradio/newsdesk/pkg/interfaces"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

const publishGroupMessageType = "newsdesk.publish.group"

// PublishGroupCommand releases an original story together with every
// approved translation in one atomic operation.
type PublishGroupCommand struct {
	OriginalID uuid.UUID   `json:"original_id"`
	ActorID    uuid.UUID   `json:"actor_id"`
	ActorRole  domain.Role `json:"actor_role"`
}

// Type implements command.Message.
func (PublishGroupCommand) Type() string { return publishGroupMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m PublishGroupCommand) Validate() error {
	errs := validation.Errors{}
	if m.OriginalID == uuid.Nil {
		errs["original_id"] = validation.NewError("newsdesk.publish.group.original_id_required", "original_id is required")
	}
	if m.ActorID == uuid.Nil {
		errs["actor_id"] = validation.NewError("newsdesk.publish.group.actor_id_required", "actor_id is required")
	}
	if !m.ActorRole.Known() {
		errs["actor_role"] = validation.NewError("newsdesk.publish.group.actor_role_invalid", "actor_role is not a known staff tier")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// PublishGroupHandler runs group publishes via the coordinator.
type PublishGroupHandler struct {
	inner *commands.Handler[PublishGroupCommand]
}

// NewPublishGroupHandler constructs a handler wired to the provided coordinator.
func NewPublishGroupHandler(coordinator publish.Coordinator, logger interfaces.Logger, opts ...commands.HandlerOption[PublishGroupCommand]) *PublishGroupHandler {
	exec := func(ctx context.Context, msg PublishGroupCommand) error {
		_, err := coordinator.PublishGroup(ctx, publish.Request{
			OriginalID: msg.OriginalID,
			ActorID:    msg.ActorID,
			ActorRole:  msg.ActorRole,
		})
		return err
	}

	handlerOpts := []commands.HandlerOption[PublishGroupCommand]{
		commands.WithLogger[PublishGroupCommand](logger),
		commands.WithOperation[PublishGroupCommand]("publish.group"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &PublishGroupHandler{
		inner: commands.NewHandler[PublishGroupCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[PublishGroupCommand].Execute.
func (h *PublishGroupHandler) Execute(ctx context.Context, msg PublishGroupCommand) error {
	return h.inner.Execute(ctx, msg)
}
