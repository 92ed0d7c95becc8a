package workflow

import (
	"github.com/bushradio/newsdesk/internal/domain"
	"github.com/bushradio/newsdesk/internal/roles"
)

const (
	// EntityTypeStory identifies story entities for workflow transitions.
	EntityTypeStory = "story"
)

// Transition names for the story lifecycle. Rejections are explicit edges:
// who may send and who receives differs per edge, so there is no generic
// "previous stage" pointer.
const (
	TransitionSubmitForReview   = "submit_for_review"
	TransitionSubmitForApproval = "submit_for_approval"
	TransitionApproveReview     = "approve_review"
	TransitionRevise            = "revise"
	TransitionApprove           = "approve"
	TransitionSendBack          = "send_back"
	TransitionMarkTranslated    = "mark_translated"
	TransitionPublish           = "publish"
)

// Definition describes the state machine for one entity type.
type Definition struct {
	EntityType   string
	InitialStage domain.Stage
	Transitions  []Transition
}

// Transition declares an allowed edge between two stages. Internal edges are
// fired by the engine's collaborators (never directly by an actor) and skip
// the role gate.
type Transition struct {
	Name     string
	From     domain.Stage
	To       domain.Stage
	Action   roles.Action
	Internal bool
}

// StoryDefinition returns the canonical story lifecycle.
//
// DRAFT -> NEEDS_JOURNALIST_REVIEW -> NEEDS_SUB_EDITOR_APPROVAL -> APPROVED
// -> TRANSLATED -> PUBLISHED, with explicit reject edges back down the
// pipeline. Journalist-authored copy skips journalist review via
// submit_for_approval; the routing table picks the edge from the author role.
func StoryDefinition() Definition {
	return Definition{
		EntityType:   EntityTypeStory,
		InitialStage: domain.StageDraft,
		Transitions: []Transition{
			{Name: TransitionSubmitForReview, From: domain.StageDraft, To: domain.StageNeedsJournalistReview, Action: roles.ActionStorySubmit},
			{Name: TransitionSubmitForApproval, From: domain.StageDraft, To: domain.StageNeedsSubEditorApproval, Action: roles.ActionStorySubmit},
			{Name: TransitionApproveReview, From: domain.StageNeedsJournalistReview, To: domain.StageNeedsSubEditorApproval, Action: roles.ActionStoryReview},
			{Name: TransitionRevise, From: domain.StageNeedsJournalistReview, To: domain.StageDraft, Action: roles.ActionStoryReview},
			{Name: TransitionApprove, From: domain.StageNeedsSubEditorApproval, To: domain.StageApproved, Action: roles.ActionStoryApprove},
			{Name: TransitionSendBack, From: domain.StageNeedsSubEditorApproval, To: domain.StageNeedsJournalistReview, Action: roles.ActionStoryApprove},
			// Fired by the translation service once every assignment is approved.
			{Name: TransitionMarkTranslated, From: domain.StageApproved, To: domain.StageTranslated, Internal: true},
			// Publishing is owned by the group coordinator, which releases
			// the original and every translation in one write. No actor may
			// traverse these edges and single-publish a group member.
			{Name: TransitionPublish, From: domain.StageTranslated, To: domain.StagePublished, Internal: true},
			// Stories without translation assignments publish straight from approved.
			{Name: TransitionPublish, From: domain.StageApproved, To: domain.StagePublished, Internal: true},
		},
	}
}
