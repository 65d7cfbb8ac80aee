// Package directory exposes the read-only invitation and persona records this
// service validates against. Records are owned by the invitation system; the
// gateway never creates, mutates or deletes them.
package directory

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when no record exists for the given token or id.
var ErrNotFound = errors.New("directory: not found")

// Role is an invitation's access level. Wire values are normalized here, at
// the boundary, so downstream logic never re-checks casing.
type Role int

const (
	RoleUnknown Role = iota
	RoleViewer
	RoleEditor
	RoleOwner
)

// ParseRole maps a wire role string onto a Role, case-insensitively.
// Unrecognized values map to RoleUnknown.
func ParseRole(s string) Role {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "VIEWER":
		return RoleViewer
	case "EDITOR":
		return RoleEditor
	case "OWNER":
		return RoleOwner
	default:
		return RoleUnknown
	}
}

func (r Role) String() string {
	switch r {
	case RoleViewer:
		return "VIEWER"
	case RoleEditor:
		return "EDITOR"
	case RoleOwner:
		return "OWNER"
	default:
		return "UNKNOWN"
	}
}

// Status is an invitation's lifecycle state. Anything that is not explicitly
// revoked or expired counts as active.
type Status int

const (
	StatusActive Status = iota
	StatusRevoked
	StatusExpired
)

// ParseStatus maps a wire status string onto a Status, case-insensitively.
func ParseStatus(s string) Status {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "REVOKED":
		return StatusRevoked
	case "EXPIRED":
		return StatusExpired
	default:
		return StatusActive
	}
}

func (s Status) String() string {
	switch s {
	case StatusRevoked:
		return "REVOKED"
	case StatusExpired:
		return "EXPIRED"
	default:
		return "ACTIVE"
	}
}

// Inactive reports whether an invitation in this state must be rejected.
func (s Status) Inactive() bool {
	return s == StatusRevoked || s == StatusExpired
}

// Invitation is a token-bound grant of viewer access to one persona.
type Invitation struct {
	Token     string
	PersonaID string
	Role      Role
	Status    Status
}

// Directory is the external read surface: invitation lookup by token and
// persona voice lookup by id.
type Directory interface {
	InvitationByToken(ctx context.Context, token string) (Invitation, error)

	// PersonaVoice returns the persona's configured synthesis voice id, or ""
	// when the persona has none. Missing personas return ErrNotFound.
	PersonaVoice(ctx context.Context, personaID string) (string, error)
}
