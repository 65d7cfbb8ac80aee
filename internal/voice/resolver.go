// Package voice resolves which synthesis voice to use for a persona.
package voice

import (
	"context"
	"log/slog"
	"strings"

	"github.com/personalabs/voicegate/internal/directory"
)

// Resolver picks a persona's configured voice, degrading to a single global
// fallback. Resolution never fails: the preview is better served by a
// representative default voice than by a hard error.
type Resolver struct {
	dir      directory.Directory
	fallback string
	log      *slog.Logger
}

// NewResolver returns a Resolver using fallback when a persona has no voice
// of its own.
func NewResolver(dir directory.Directory, fallback string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		dir:      dir,
		fallback: fallback,
		log:      logger.With("component", "voice"),
	}
}

// Resolve returns the voice id to synthesize personaID with. Persona lookup
// failures and unset voices both resolve to the fallback.
func (r *Resolver) Resolve(ctx context.Context, personaID string) string {
	voice, err := r.dir.PersonaVoice(ctx, personaID)
	if err != nil {
		r.log.Debug("persona voice lookup failed, using fallback", "persona_id", personaID, "error", err)
		return r.fallback
	}
	if strings.TrimSpace(voice) == "" {
		return r.fallback
	}
	return voice
}
