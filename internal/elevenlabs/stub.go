package elevenlabs

import (
	"context"
	"fmt"
	"log/slog"
)

// StubSynthesizer implements the Synthesizer interface with deterministic
// output. It is intended for CI and development environments where the real
// ElevenLabs API is unavailable.
type StubSynthesizer struct {
	log *slog.Logger
}

// NewStubSynthesizer returns a stub that generates deterministic audio bytes
// proportional to the input text length.
func NewStubSynthesizer(logger *slog.Logger) *StubSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubSynthesizer{log: logger}
}

// Synthesize returns len(text) * 64 deterministic bytes. The output is not
// playable audio; it only exercises the byte path end to end.
func (s *StubSynthesizer) Synthesize(_ context.Context, voiceID string, req SynthesizeRequest) ([]byte, error) {
	if voiceID == "" {
		return nil, fmt.Errorf("elevenlabs: voice_id is required")
	}
	if req.Text == "" {
		return nil, fmt.Errorf("elevenlabs: text is required")
	}

	audio := make([]byte, len(req.Text)*64)
	for i := range audio {
		audio[i] = byte(i % 251)
	}

	s.log.Info("stub synthesis",
		"text_length", len(req.Text),
		"voice_id", voiceID,
		"bytes", len(audio),
	)

	return audio, nil
}
