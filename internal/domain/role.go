package domain

import "strings"

// Role identifies the staff tier an actor holds. Ordering matters: the
// numeric rank backs the "sub-editor or above" style authority checks.
type Role string

const (
	RoleIntern     Role = "intern"
	RoleJournalist Role = "journalist"
	RoleSubEditor  Role = "sub_editor"
	RoleEditor     Role = "editor"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

var roleRank = map[Role]int{
	RoleIntern:     1,
	RoleJournalist: 2,
	RoleSubEditor:  3,
	RoleEditor:     4,
	RoleAdmin:      5,
	RoleSuperAdmin: 6,
}

// Known reports whether the role belongs to the staff vocabulary.
func (r Role) Known() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether the role carries at least the authority of tier.
// Unknown roles never satisfy any tier.
func (r Role) AtLeast(tier Role) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	want, ok := roleRank[tier]
	if !ok {
		return false
	}
	return rank >= want
}

// ParseRole normalizes a raw role string.
func ParseRole(input string) Role {
	return Role(strings.ToLower(strings.TrimSpace(input)))
}
