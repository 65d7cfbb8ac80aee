package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/personalabs/voicegate/internal/directory"
)

func testDirectory() *directory.Static {
	return &directory.Static{
		Invitations: map[string]directory.Invitation{
			"tok-viewer": {
				Token:     "tok-viewer",
				PersonaID: "p1",
				Role:      directory.RoleViewer,
				Status:    directory.StatusActive,
			},
			"tok-editor": {
				Token:     "tok-editor",
				PersonaID: "p1",
				Role:      directory.RoleEditor,
				Status:    directory.StatusActive,
			},
			"tok-revoked": {
				Token:     "tok-revoked",
				PersonaID: "p1",
				Role:      directory.RoleViewer,
				Status:    directory.StatusRevoked,
			},
			"tok-expired": {
				Token:     "tok-expired",
				PersonaID: "p1",
				Role:      directory.RoleViewer,
				Status:    directory.StatusExpired,
			},
		},
	}
}

func reasonOf(t *testing.T, err error) Reason {
	t.Helper()
	var authErr *Error
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *auth.Error", err)
	}
	return authErr.Reason
}

func TestAuthorizeOK(t *testing.T) {
	c := NewChecker(testDirectory(), nil)
	if err := c.Authorize(context.Background(), "tok-viewer", "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuthorizeUnknownToken(t *testing.T) {
	c := NewChecker(testDirectory(), nil)
	err := c.Authorize(context.Background(), "tok-nope", "p1")
	if got := reasonOf(t, err); got != ReasonInvalidInvite {
		t.Errorf("reason = %v, want ReasonInvalidInvite", got)
	}
}

func TestAuthorizeLookupFailure(t *testing.T) {
	c := NewChecker(failingDirectory{}, nil)
	err := c.Authorize(context.Background(), "tok-viewer", "p1")
	if got := reasonOf(t, err); got != ReasonInvalidInvite {
		t.Errorf("reason = %v, want ReasonInvalidInvite", got)
	}
}

func TestAuthorizePersonaMismatch(t *testing.T) {
	c := NewChecker(testDirectory(), nil)
	err := c.Authorize(context.Background(), "tok-viewer", "p2")
	if got := reasonOf(t, err); got != ReasonPersonaMismatch {
		t.Errorf("reason = %v, want ReasonPersonaMismatch", got)
	}
}

func TestAuthorizeRoleNotAllowed(t *testing.T) {
	c := NewChecker(testDirectory(), nil)
	err := c.Authorize(context.Background(), "tok-editor", "p1")
	if got := reasonOf(t, err); got != ReasonRoleNotAllowed {
		t.Errorf("reason = %v, want ReasonRoleNotAllowed", got)
	}
}

func TestAuthorizeInviteInactive(t *testing.T) {
	c := NewChecker(testDirectory(), nil)
	for _, token := range []string{"tok-revoked", "tok-expired"} {
		err := c.Authorize(context.Background(), token, "p1")
		if got := reasonOf(t, err); got != ReasonInviteInactive {
			t.Errorf("%s: reason = %v, want ReasonInviteInactive", token, got)
		}
	}
}

// Mismatch outranks the role check: the reported reason must follow check order.
func TestAuthorizeMismatchBeforeRole(t *testing.T) {
	c := NewChecker(testDirectory(), nil)
	err := c.Authorize(context.Background(), "tok-editor", "p2")
	if got := reasonOf(t, err); got != ReasonPersonaMismatch {
		t.Errorf("reason = %v, want ReasonPersonaMismatch", got)
	}
}

type failingDirectory struct{}

func (failingDirectory) InvitationByToken(context.Context, string) (directory.Invitation, error) {
	return directory.Invitation{}, errors.New("directory unreachable")
}

func (failingDirectory) PersonaVoice(context.Context, string) (string, error) {
	return "", errors.New("directory unreachable")
}
