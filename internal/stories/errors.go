package stories

import (
	"errors"
	"fmt"

	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrSlugRequired      = errors.New("stories: slug is required")
	ErrSlugInvalid       = errors.New("stories: slug contains invalid characters")
	ErrSlugExists        = errors.New("stories: slug already exists")
	ErrSlugImmutable     = errors.New("stories: slug is immutable once published")
	ErrTitleRequired     = errors.New("stories: title is required")
	ErrAuthorRequired    = errors.New("stories: author is required")
	ErrLanguageRequired  = errors.New("stories: language is required")
	ErrOriginalRequired  = errors.New("stories: translation requires an original story")
	ErrOriginalInvalid   = errors.New("stories: original must not itself be a translation")
	ErrStaleStage        = errors.New("stories: stage changed concurrently")
	ErrActiveAssignments = errors.New("stories: active translation assignments prevent deletion")
)

// NotFoundError represents missing records from repository lookups.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// StaleStageError reports an optimistic-concurrency loss: the stage read
// before the write no longer matched at write time. Callers re-read and
// retry the whole operation.
type StaleStageError struct {
	StoryID  uuid.UUID
	Expected domain.Stage
	Actual   domain.Stage
}

func (e *StaleStageError) Error() string {
	if e == nil {
		return ErrStaleStage.Error()
	}
	return fmt.Sprintf("%s: story=%s expected=%s actual=%s", ErrStaleStage.Error(), e.StoryID, e.Expected, e.Actual)
}

func (e *StaleStageError) Unwrap() error {
	return ErrStaleStage
}
