package workflow

import (
	"errors"
	"fmt"

	"github.com/bushradio/newsdesk/internal/domain"
)

// ErrNoRoute indicates no edge exists for the stage/author/outcome combination.
var ErrNoRoute = errors.New("workflow: no route for outcome")

// NextEdge resolves the transition implied by completing a workflow step.
// The author's role, not just the current stage, decides the path: intern
// copy is reviewed by a journalist first, journalist-or-above copy goes
// straight to sub-editor approval. Keeping this out of the stage graph
// keeps the graph small and the role logic independently testable. Publish
// steps have no route here: the group coordinator owns the release.
func NextEdge(current domain.Stage, authorRole domain.Role, outcome domain.ReviewOutcome) (string, error) {
	switch current {
	case domain.StageDraft:
		if outcome != domain.OutcomeSubmit {
			return "", routeError(current, authorRole, outcome)
		}
		if authorRole.AtLeast(domain.RoleJournalist) {
			return TransitionSubmitForApproval, nil
		}
		return TransitionSubmitForReview, nil
	case domain.StageNeedsJournalistReview:
		switch outcome {
		case domain.OutcomeApprove:
			return TransitionApproveReview, nil
		case domain.OutcomeRevise:
			return TransitionRevise, nil
		}
	case domain.StageNeedsSubEditorApproval:
		switch outcome {
		case domain.OutcomeApprove:
			return TransitionApprove, nil
		case domain.OutcomeRevise:
			return TransitionSendBack, nil
		}
	}
	return "", routeError(current, authorRole, outcome)
}

func routeError(current domain.Stage, authorRole domain.Role, outcome domain.ReviewOutcome) error {
	return fmt.Errorf("%w: stage=%s author=%s outcome=%s", ErrNoRoute, current, authorRole, outcome)
}
