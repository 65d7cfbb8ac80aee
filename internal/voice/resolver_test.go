package voice

import (
	"context"
	"testing"

	"github.com/personalabs/voicegate/internal/directory"
)

func TestResolveConfiguredVoice(t *testing.T) {
	dir := &directory.Static{Voices: map[string]string{"p1": "voice-a"}}
	r := NewResolver(dir, "fallback-voice", nil)

	if got := r.Resolve(context.Background(), "p1"); got != "voice-a" {
		t.Errorf("Resolve = %q, want %q", got, "voice-a")
	}
}

func TestResolveUnsetVoiceFallsBack(t *testing.T) {
	dir := &directory.Static{Voices: map[string]string{"p1": ""}}
	r := NewResolver(dir, "fallback-voice", nil)

	if got := r.Resolve(context.Background(), "p1"); got != "fallback-voice" {
		t.Errorf("Resolve = %q, want fallback", got)
	}
}

func TestResolveMissingPersonaFallsBack(t *testing.T) {
	dir := &directory.Static{Voices: map[string]string{}}
	r := NewResolver(dir, "fallback-voice", nil)

	if got := r.Resolve(context.Background(), "nope"); got != "fallback-voice" {
		t.Errorf("Resolve = %q, want fallback", got)
	}
}
