package tasks

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrUnknownType      = errors.New("tasks: unknown task type")
	ErrCreatorRequired  = errors.New("tasks: creator is required")
	ErrNotAssignee      = errors.New("tasks: actor is not the current assignee")
	ErrAlreadyTerminal  = errors.New("tasks: task is completed or cancelled")
	ErrOpenTaskExists   = errors.New("tasks: an open task already exists for this step")
	ErrInvalidAssignee  = errors.New("tasks: assignee is not a valid candidate for this task type")
	ErrAssigneeRequired = errors.New("tasks: assignee is required")
	ErrReasonRequired   = errors.New("tasks: blocked reason is required")
	ErrNotBlocked       = errors.New("tasks: task is not blocked")
	ErrStaleStatus      = errors.New("tasks: status changed concurrently")
	ErrReleaserRequired = errors.New("tasks: publish completion requires a group releaser")
	ErrPublishOutcome   = errors.New("tasks: publish tasks close with an approve outcome only")
)

// NotFoundError represents missing tasks from repository lookups.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return "task not found"
	}
	return fmt.Sprintf("task %q not found", e.Key)
}

// StaleStatusError reports an optimistic-concurrency loss on a task status
// write, wrapping ErrStaleStatus for errors.Is checks.
type StaleStatusError struct {
	TaskID   uuid.UUID
	Expected Status
	Actual   Status
}

func (e *StaleStatusError) Error() string {
	return fmt.Sprintf("%s: task=%s expected=%s actual=%s",
		ErrStaleStatus.Error(), e.TaskID, e.Expected, e.Actual)
}

func (e *StaleStatusError) Unwrap() error {
	return ErrStaleStatus
}
