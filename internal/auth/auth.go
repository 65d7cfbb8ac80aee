// Package auth validates invitation tokens against the persona a caller asks
// to preview. The public synthesis endpoint is unauthenticated, so the
// invitation is the only credential; it is deliberately restricted to the
// least-privileged viewer role.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/personalabs/voicegate/internal/directory"
)

// Reason identifies which authorization check rejected the request.
type Reason int

const (
	// ReasonInvalidInvite covers both a token with no record and a failed
	// lookup; callers cannot tell the two apart.
	ReasonInvalidInvite Reason = iota
	ReasonPersonaMismatch
	ReasonRoleNotAllowed
	ReasonInviteInactive
)

// Error is a typed authorization rejection.
type Error struct {
	Reason Reason
}

func (e *Error) Error() string {
	switch e.Reason {
	case ReasonPersonaMismatch:
		return "invitation does not grant access to this persona"
	case ReasonRoleNotAllowed:
		return "invitation role does not allow voice preview"
	case ReasonInviteInactive:
		return "invitation is no longer active"
	default:
		return "invalid invitation"
	}
}

// Checker authorizes synthesis requests against the directory.
type Checker struct {
	dir directory.Directory
	log *slog.Logger
}

// NewChecker returns a Checker reading from dir.
func NewChecker(dir directory.Directory, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		dir: dir,
		log: logger.With("component", "auth"),
	}
}

// Authorize verifies that token grants viewer access to personaID. Checks run
// in a fixed order so the reported reason is deterministic; the first failing
// check decides.
func (c *Checker) Authorize(ctx context.Context, token, personaID string) error {
	inv, err := c.dir.InvitationByToken(ctx, token)
	if err != nil {
		if !errors.Is(err, directory.ErrNotFound) {
			c.log.Warn("invitation lookup failed", "error", err)
		}
		return &Error{Reason: ReasonInvalidInvite}
	}
	if inv.PersonaID != personaID {
		return &Error{Reason: ReasonPersonaMismatch}
	}
	if inv.Role != directory.RoleViewer {
		return &Error{Reason: ReasonRoleNotAllowed}
	}
	if inv.Status.Inactive() {
		return &Error{Reason: ReasonInviteInactive}
	}
	return nil
}
