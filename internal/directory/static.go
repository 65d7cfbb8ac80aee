package directory

import "context"

// Static is an in-memory Directory for tests and local development.
type Static struct {
	Invitations map[string]Invitation // keyed by token
	Voices      map[string]string     // persona id -> voice id ("" allowed)
}

// InvitationByToken implements Directory.
func (s *Static) InvitationByToken(_ context.Context, token string) (Invitation, error) {
	inv, ok := s.Invitations[token]
	if !ok {
		return Invitation{}, ErrNotFound
	}
	return inv, nil
}

// PersonaVoice implements Directory.
func (s *Static) PersonaVoice(_ context.Context, personaID string) (string, error) {
	voice, ok := s.Voices[personaID]
	if !ok {
		return "", ErrNotFound
	}
	return voice, nil
}
