package commands

import (
	"context"
	"errors"

	"github.com/bushradio/newsdesk/internal/roles"
	"github.com/bushradio/newsdesk/internal/stories"
	"github.com/bushradio/newsdesk/internal/tasks"
	"github.com/bushradio/newsdesk/internal/translations"
	goerrors "github.com/goliatone/go-errors"
)

const (
	commandValidationCode   = "COMMAND_VALIDATION_FAILED"
	commandContextCanceled  = "COMMAND_CONTEXT_CANCELED"
	commandContextTimeout   = "COMMAND_CONTEXT_TIMEOUT"
	commandContextErrorCode = "COMMAND_CONTEXT_ERROR"
	commandForbidden        = "COMMAND_FORBIDDEN"
	commandStaleWrite       = "COMMAND_STALE_WRITE"
	commandTargetMissing    = "COMMAND_TARGET_MISSING"
	commandExecuteFailed    = "COMMAND_EXECUTION_FAILED"
)

func wrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "command validation failed").
		WithTextCode(commandValidationCode)
}

func wrapContextError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	switch err {
	case context.Canceled:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution cancelled").
			WithTextCode(commandContextCanceled)
	case context.DeadlineExceeded:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution deadline exceeded").
			WithTextCode(commandContextTimeout)
	default:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command context error").
			WithTextCode(commandContextErrorCode)
	}
}

// wrapExecuteError classifies domain failures so transports can map them to
// status codes without unwrapping service-level sentinels themselves.
func wrapExecuteError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}

	switch {
	case errors.Is(err, roles.ErrForbidden):
		return goerrors.Wrap(err, goerrors.CategoryAuthz, "command actor lacks authority").
			WithTextCode(commandForbidden)
	case errors.Is(err, stories.ErrStaleStage), errors.Is(err, tasks.ErrStaleStatus):
		return goerrors.Wrap(err, goerrors.CategoryConflict, "command lost a concurrent write").
			WithTextCode(commandStaleWrite)
	case isDomainNotFound(err):
		return goerrors.Wrap(err, goerrors.CategoryNotFound, "command target not found").
			WithTextCode(commandTargetMissing)
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution failed").
		WithTextCode(commandExecuteFailed)
}

func isDomainNotFound(err error) bool {
	var storyMissing *stories.NotFoundError
	var taskMissing *tasks.NotFoundError
	var assignmentMissing *translations.NotFoundError
	return errors.As(err, &storyMissing) ||
		errors.As(err, &taskMissing) ||
		errors.As(err, &assignmentMissing)
}
