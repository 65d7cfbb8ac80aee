// Package gateway orchestrates access-controlled voice preview synthesis:
// quota, invitation authorization, voice resolution, the provider call and
// the translation of every failure into a fixed caller-facing error.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/personalabs/voicegate/internal/auth"
	"github.com/personalabs/voicegate/internal/cache"
	"github.com/personalabs/voicegate/internal/elevenlabs"
	"github.com/personalabs/voicegate/internal/ratelimit"
	"github.com/personalabs/voicegate/internal/telemetry"
	"github.com/personalabs/voicegate/internal/voice"
)

// MaxTextRunes is the hard cap applied to preview text before any further
// processing. Longer text is truncated, not rejected: the cap exists to bound
// provider cost, not to validate input.
const MaxTextRunes = 240

// Request is one synthesis attempt. Origin is the caller's network origin as
// derived by the transport; it scopes the quota together with the invitation.
type Request struct {
	Invitation string
	PersonaID  string
	Text       string
	Origin     string
}

// Result is a successful synthesis. VoiceID is the voice actually used, so
// callers can see when the fallback was applied.
type Result struct {
	Audio   []byte
	VoiceID string
}

// Service wires the preview pipeline together. It holds no per-request state;
// the only shared mutable state is the limiter's store.
type Service struct {
	limiter  *ratelimit.Limiter
	checker  *auth.Checker
	resolver *voice.Resolver
	synth    elevenlabs.Synthesizer
	cache    *cache.Cache // nil when caching is disabled

	model   string
	latency int

	metrics *telemetry.Recorder
	log     *slog.Logger
}

// NewService returns a Service synthesizing with model at the given latency
// optimization level. audioCache may be nil.
func NewService(
	limiter *ratelimit.Limiter,
	checker *auth.Checker,
	resolver *voice.Resolver,
	synth elevenlabs.Synthesizer,
	audioCache *cache.Cache,
	model string,
	latency int,
	metrics *telemetry.Recorder,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if synth == nil {
		panic("gateway: synthesizer must not be nil")
	}
	if metrics == nil {
		metrics = telemetry.NewRecorder(logger)
	}
	return &Service{
		limiter:  limiter,
		checker:  checker,
		resolver: resolver,
		synth:    synth,
		cache:    audioCache,
		model:    model,
		latency:  latency,
		metrics:  metrics,
		log:      logger.With("component", "gateway", "model", model),
	}
}

// Synthesize runs the preview pipeline: validate, truncate, quota, authorize,
// resolve, synthesize. Quota is consumed before the provider is reached so an
// over-quota caller never costs a paid call. No lock is held across the
// provider call.
func (s *Service) Synthesize(ctx context.Context, req Request) (Result, *Error) {
	if field := missingField(req); field != "" {
		return Result{}, &Error{Kind: KindMissingField, Message: "missing field: " + field}
	}

	text := Truncate(req.Text, MaxTextRunes)

	if !s.limiter.Allow(ctx, quotaKey(req.Origin, req.Invitation)) {
		return Result{}, &Error{Kind: KindRateLimited, Message: "rate limit exceeded, try again later"}
	}

	if err := s.checker.Authorize(ctx, req.Invitation, req.PersonaID); err != nil {
		return Result{}, translateAuthError(err)
	}

	voiceID := s.resolver.Resolve(ctx, req.PersonaID)

	var cacheKey string
	if s.cache != nil {
		cacheKey = cache.Key(voiceID, s.model, s.latency, text)
		if audio, ok := s.cache.Get(cacheKey); ok {
			s.metrics.CacheHit()
			s.log.Debug("preview served from cache", "persona_id", req.PersonaID, "voice_id", voiceID)
			return Result{Audio: audio, VoiceID: voiceID}, nil
		}
	}

	start := time.Now()
	audio, err := s.synth.Synthesize(ctx, voiceID, elevenlabs.SynthesizeRequest{
		Text:                     text,
		ModelID:                  s.model,
		OptimizeStreamingLatency: &s.latency,
	})
	if err != nil {
		var apiErr *elevenlabs.APIError
		if errors.As(err, &apiErr) {
			s.log.Error("provider rejected synthesis", "status", apiErr.StatusCode, "persona_id", req.PersonaID)
			return Result{}, &Error{Kind: KindProvider, Message: apiErr.Body}
		}
		s.log.Error("synthesis failed", "error", err, "persona_id", req.PersonaID)
		return Result{}, &Error{Kind: KindInternal, Message: "synthesis failed"}
	}

	s.log.Info("synthesis completed",
		"persona_id", req.PersonaID,
		"voice_id", voiceID,
		"text_length", len(text),
		"bytes", len(audio),
		"duration_sec", fmt.Sprintf("%.2f", time.Since(start).Seconds()),
	)

	if s.cache != nil {
		if err := s.cache.Put(cacheKey, audio); err != nil {
			s.log.Warn("failed to store preview in cache", "error", err)
		}
	}

	return Result{Audio: audio, VoiceID: voiceID}, nil
}

func missingField(req Request) string {
	switch {
	case strings.TrimSpace(req.Invitation) == "":
		return "invitation"
	case strings.TrimSpace(req.PersonaID) == "":
		return "persona_id"
	case strings.TrimSpace(req.Text) == "":
		return "text"
	}
	return ""
}

// quotaKey scopes the limit per (origin, invitation) pair so one invitation
// hammered from many addresses is not conflated with unrelated invitations
// behind a shared address.
func quotaKey(origin, invitation string) string {
	return origin + ":" + invitation
}

func translateAuthError(err error) *Error {
	var authErr *auth.Error
	if !errors.As(err, &authErr) {
		return &Error{Kind: KindInternal, Message: "authorization failed"}
	}
	kind := KindInvalidInvite
	switch authErr.Reason {
	case auth.ReasonPersonaMismatch:
		kind = KindPersonaMismatch
	case auth.ReasonRoleNotAllowed:
		kind = KindRoleNotAllowed
	case auth.ReasonInviteInactive:
		kind = KindInviteInactive
	}
	return &Error{Kind: kind, Message: authErr.Error()}
}

// Truncate caps text at max runes, leaving shorter text untouched.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
