package translations

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrTranslatorRequired = errors.New("translations: translator is required")
	ErrLanguageRequired   = errors.New("translations: target language is required")
	ErrSameLanguage       = errors.New("translations: target language equals the original language")
	ErrLanguageAssigned   = errors.New("translations: language already assigned for this story")
	ErrNotAssignee        = errors.New("translations: actor is not the assigned translator")
	ErrNotReviewer        = errors.New("translations: actor is not the recorded reviewer")
	ErrReviewerRequired   = errors.New("translations: reviewer is required")
	ErrDraftIncomplete    = errors.New("translations: translated title and content are required")
	ErrAlreadySubmitted   = errors.New("translations: assignment already awaits review")
	ErrReasonRequired     = errors.New("translations: rejection reason is required")
	ErrInvalidStatus      = errors.New("translations: operation not valid for current status")
	ErrUnknownOutcome     = errors.New("translations: unknown review outcome")
)

// NotFoundError represents missing assignments from repository lookups.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return "translation assignment not found"
	}
	return fmt.Sprintf("translation assignment %q not found", e.Key)
}

// InvalidStatusError carries the status an operation found versus what it
// required, wrapping ErrInvalidStatus for errors.Is checks.
type InvalidStatusError struct {
	AssignmentID uuid.UUID
	Current      Status
	Required     Status
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("%s: assignment=%s current=%s required=%s",
		ErrInvalidStatus.Error(), e.AssignmentID, e.Current, e.Required)
}

func (e *InvalidStatusError) Unwrap() error {
	return ErrInvalidStatus
}
