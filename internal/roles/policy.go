package roles

import (
	"errors"
	"fmt"

	"github.com/bushradio/newsdesk/internal/domain"
)

// Action names a permission-gated operation in the editorial pipeline.
type Action string

const (
	ActionStoryCreate       Action = "story:create"
	ActionStorySubmit       Action = "story:submit"
	ActionStoryReview       Action = "story:review"
	ActionStoryApprove      Action = "story:approve"
	ActionStoryPublish      Action = "story:publish"
	ActionStoryDelete       Action = "story:delete"
	ActionTaskReassign      Action = "task:reassign"
	ActionTranslationAssign Action = "translation:assign"
	ActionTranslationWork   Action = "translation:work"
	ActionTranslationReview Action = "translation:review"
)

// ErrForbidden indicates the acting role lacks authority for the action.
var ErrForbidden = errors.New("roles: forbidden")

// ForbiddenError carries the role/action pair behind a denial.
type ForbiddenError struct {
	Role   domain.Role
	Action Action
}

func (e *ForbiddenError) Error() string {
	if e == nil {
		return ErrForbidden.Error()
	}
	return fmt.Sprintf("%s: role %q may not perform %s", ErrForbidden.Error(), e.Role, e.Action)
}

func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}

// minimumTier maps each action to the lowest staff tier allowed to perform it.
// Interns author their own copy; everything past authoring requires seniority.
var minimumTier = map[Action]domain.Role{
	ActionStoryCreate:       domain.RoleIntern,
	ActionStorySubmit:       domain.RoleIntern,
	ActionStoryReview:       domain.RoleJournalist,
	ActionStoryApprove:      domain.RoleSubEditor,
	ActionStoryPublish:      domain.RoleSubEditor,
	ActionStoryDelete:       domain.RoleSubEditor,
	ActionTaskReassign:      domain.RoleSubEditor,
	ActionTranslationAssign: domain.RoleSubEditor,
	ActionTranslationWork:   domain.RoleIntern,
	// A designated reviewer of any tier may review their own assignment;
	// this tier gates reviews by actors who were not designated.
	ActionTranslationReview: domain.RoleSubEditor,
}

// Allowed reports whether the role may perform the action.
func Allowed(role domain.Role, action Action) bool {
	tier, ok := minimumTier[action]
	if !ok {
		return false
	}
	return role.AtLeast(tier)
}

// Require returns a ForbiddenError when the role may not perform the action.
func Require(role domain.Role, action Action) error {
	if Allowed(role, action) {
		return nil
	}
	return &ForbiddenError{Role: role, Action: action}
}

// ReviewerRoles lists the tiers eligible to review journalist-bound copy.
func ReviewerRoles() []domain.Role {
	return []domain.Role{domain.RoleJournalist}
}

// ApproverRoles lists the tiers eligible to approve copy for translation.
func ApproverRoles() []domain.Role {
	return []domain.Role{domain.RoleSubEditor, domain.RoleEditor, domain.RoleAdmin, domain.RoleSuperAdmin}
}

// PublisherRoles lists the tiers allowed to run a group publish.
func PublisherRoles() []domain.Role {
	return []domain.Role{domain.RoleSubEditor, domain.RoleEditor, domain.RoleAdmin, domain.RoleSuperAdmin}
}
