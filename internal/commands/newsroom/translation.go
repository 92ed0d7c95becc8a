package newsroomcmd

import (
	"context"

	"github.com/bushradio/newsdesk/internal/commands"
	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/bushradio/newsdesk/internal/translations"
	"github.com/bushradio/newsdesk/pkg/interfaces"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

const reviewTranslationMessageType = "newsdesk.translation.review"

// ReviewTranslationCommand closes one translation review round.
type ReviewTranslationCommand struct {
	AssignmentID uuid.UUID            `json:"assignment_id"`
	ActorID      uuid.UUID            `json:"actor_id"`
	ActorRole    domain.Role          `json:"actor_role"`
	Outcome      domain.ReviewOutcome `json:"outcome"`
	Notes        string               `json:"notes,omitempty"`
}

// Type implements command.Message.
func (ReviewTranslationCommand) Type() string { return reviewTranslationMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m ReviewTranslationCommand) Validate() error {
	errs := validation.Errors{}
	if m.AssignmentID == uuid.Nil {
		errs["assignment_id"] = validation.NewError("newsdesk.translation.review.assignment_id_required", "assignment_id is required")
	}
	if m.ActorID == uuid.Nil {
		errs["actor_id"] = validation.NewError("newsdesk.translation.review.actor_id_required", "actor_id is required")
	}
	if m.Outcome != domain.OutcomeApprove && m.Outcome != domain.OutcomeRevise {
		errs["outcome"] = validation.NewError("newsdesk.translation.review.outcome_invalid", "outcome must be approve or revise")
	}
	if m.Outcome == domain.OutcomeRevise && m.Notes == "" {
		errs["notes"] = validation.NewError("newsdesk.translation.review.notes_required", "a rejection reason is required")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ReviewTranslationHandler reviews translation drafts via the sub-workflow service.
type ReviewTranslationHandler struct {
	inner *commands.Handler[ReviewTranslationCommand]
}

// NewReviewTranslationHandler constructs a handler wired to the provided translation service.
func NewReviewTranslationHandler(service translations.Service, logger interfaces.Logger, opts ...commands.HandlerOption[ReviewTranslationCommand]) *ReviewTranslationHandler {
	exec := func(ctx context.Context, msg ReviewTranslationCommand) error {
		_, err := service.Review(ctx, translations.ReviewRequest{
			AssignmentID: msg.AssignmentID,
			ActorID:      msg.ActorID,
			ActorRole:    msg.ActorRole,
			Outcome:      msg.Outcome,
			Notes:        msg.Notes,
		})
		return err
	}

	handlerOpts := []commands.HandlerOption[ReviewTranslationCommand]{
		commands.WithLogger[ReviewTranslationCommand](logger),
		commands.WithOperation[ReviewTranslationCommand]("translation.review"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ReviewTranslationHandler{
		inner: commands.NewHandler[ReviewTranslationCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[ReviewTranslationCommand].Execute.
func (h *ReviewTranslationHandler) Execute(ctx context.Context, msg ReviewTranslationCommand) error {
	return h.inner.Execute(ctx, msg)
}
