package domain

import "strings"

// Stage represents the lifecycle position of a story or translation.
type Stage string

const (
	// StageDraft indicates a story still being written by its author.
	StageDraft Stage = "draft"
	// StageNeedsJournalistReview marks intern copy waiting on a journalist.
	StageNeedsJournalistReview Stage = "needs_journalist_review"
	// StageNeedsSubEditorApproval marks copy waiting on a sub-editor sign-off.
	StageNeedsSubEditorApproval Stage = "needs_sub_editor_approval"
	// StageApproved identifies copy cleared for translation.
	StageApproved Stage = "approved"
	// StageTranslated marks an original whose translations have all been approved.
	StageTranslated Stage = "translated"
	// StagePublished identifies content released to subscriber stations.
	StagePublished Stage = "published"
)

// Stages lists every stage in pipeline order.
func Stages() []Stage {
	return []Stage{
		StageDraft,
		StageNeedsJournalistReview,
		StageNeedsSubEditorApproval,
		StageApproved,
		StageTranslated,
		StagePublished,
	}
}

// Terminal reports whether the stage admits no further transitions.
func (s Stage) Terminal() bool {
	return s == StagePublished
}

// Valid reports whether the stage belongs to the declared vocabulary.
func (s Stage) Valid() bool {
	switch s {
	case StageDraft,
		StageNeedsJournalistReview,
		StageNeedsSubEditorApproval,
		StageApproved,
		StageTranslated,
		StagePublished:
		return true
	default:
		return false
	}
}

// NormalizeStage coerces arbitrary stage strings into a known representation.
func NormalizeStage(input string) Stage {
	if strings.TrimSpace(input) == "" {
		return StageDraft
	}
	return Stage(strings.ToLower(strings.TrimSpace(input)))
}
