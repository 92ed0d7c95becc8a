package workflow

import (
	"errors"
	"testing"

	"github.com/bushradio/newsdesk/internal/domain"
)

func TestNextEdgeAuthorRouting(t *testing.T) {
	cases := []struct {
		name    string
		stage   domain.Stage
		author  domain.Role
		outcome domain.ReviewOutcome
		want    string
	}{
		{"intern draft goes to journalist", domain.StageDraft, domain.RoleIntern, domain.OutcomeSubmit, TransitionSubmitForReview},
		{"journalist draft skips review", domain.StageDraft, domain.RoleJournalist, domain.OutcomeSubmit, TransitionSubmitForApproval},
		{"editor draft skips review", domain.StageDraft, domain.RoleEditor, domain.OutcomeSubmit, TransitionSubmitForApproval},
		{"review approve", domain.StageNeedsJournalistReview, domain.RoleIntern, domain.OutcomeApprove, TransitionApproveReview},
		{"review revise", domain.StageNeedsJournalistReview, domain.RoleIntern, domain.OutcomeRevise, TransitionRevise},
		{"approval approve", domain.StageNeedsSubEditorApproval, domain.RoleJournalist, domain.OutcomeApprove, TransitionApprove},
		{"approval send back", domain.StageNeedsSubEditorApproval, domain.RoleIntern, domain.OutcomeRevise, TransitionSendBack},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextEdge(tc.stage, tc.author, tc.outcome)
			if err != nil {
				t.Fatalf("NextEdge: %v", err)
			}
			if got != tc.want {
				t.Fatalf("want %s got %s", tc.want, got)
			}
		})
	}
}

func TestNextEdgeUnknownCombination(t *testing.T) {
	if _, err := NextEdge(domain.StagePublished, domain.RoleIntern, domain.OutcomeSubmit); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
	if _, err := NextEdge(domain.StageDraft, domain.RoleIntern, domain.OutcomeRevise); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute for revise from draft, got %v", err)
	}
}

func TestNextEdgeDoesNotRoutePublishing(t *testing.T) {
	// The release of a translated or approved group belongs to the publish
	// coordinator; no task outcome maps onto a publish edge.
	if _, err := NextEdge(domain.StageTranslated, domain.RoleEditor, domain.OutcomeApprove); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute from translated, got %v", err)
	}
	if _, err := NextEdge(domain.StageApproved, domain.RoleEditor, domain.OutcomeApprove); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute from approved, got %v", err)
	}
}
