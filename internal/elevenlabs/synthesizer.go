package elevenlabs

import "context"

// Synthesizer abstracts the ElevenLabs TTS API so that the gateway can be
// tested with a mock implementation.
type Synthesizer interface {
	Synthesize(ctx context.Context, voiceID string, req SynthesizeRequest) ([]byte, error)
}
