package identity

import (
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Callers must ensure key construction prevents cross-entity collisions (prefix by domain/type).
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// StaffUUID derives the stable identifier for a staff member seeded by name.
func StaffUUID(handle string) uuid.UUID {
	return UUID("newsdesk:staff:" + strings.ToLower(strings.TrimSpace(handle)))
}

// StoryUUID derives the stable identifier for a seeded story slug.
func StoryUUID(slug string) uuid.UUID {
	return UUID("newsdesk:story:" + strings.ToLower(strings.TrimSpace(slug)))
}

// AssignmentUUID derives the stable identifier for a seeded translation
// assignment, keyed by original and target language.
func AssignmentUUID(originalID uuid.UUID, language string) uuid.UUID {
	return UUID("newsdesk:assignment:" + originalID.String() + ":" + strings.ToLower(strings.TrimSpace(language)))
}
