package gateway

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/personalabs/voicegate/internal/telemetry"
)

// VoiceIDHeader exposes the voice actually used, so callers can tell when the
// fallback was applied.
const VoiceIDHeader = "x-voice-id-used"

const requestIDHeader = "x-request-id"

// Server is the HTTP boundary of the gateway. Every failure leaving it is a
// fixed status code and a short plain-text body; panics are recovered into a
// generic 500, never a stack trace.
type Server struct {
	svc     *Service
	metrics *telemetry.Recorder
	log     *slog.Logger
}

// NewServer wraps svc with the HTTP transport.
func NewServer(svc *Service, metrics *telemetry.Recorder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = telemetry.NewRecorder(logger)
	}
	return &Server{
		svc:     svc,
		metrics: metrics,
		log:     logger.With("component", "http"),
	}
}

// Router builds the gin engine: the synthesis endpoint plus liveness and
// metrics routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(s.requestID())
	r.Use(gin.CustomRecovery(func(c *gin.Context, err any) {
		s.log.Error("panic recovered", "error", err, "request_id", c.GetString(requestIDHeader))
		c.String(http.StatusInternalServerError, "internal error")
	}))

	// Wrong-method requests get a 405, not gin's default 404.
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "method not allowed")
	})

	r.POST("/api/voice-preview", s.handleSynthesize)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(s.metrics.MetricsHandler()))

	return r
}

// synthesizeBody accepts both field-name spellings used by existing callers.
type synthesizeBody struct {
	Invitation string `json:"invitation"`
	Invite     string `json:"invite"`
	PersonaID  string `json:"persona_id"`
	PersonaIDC string `json:"personaId"`
	Text       string `json:"text"`
}

func (b synthesizeBody) invitation() string {
	if b.Invitation != "" {
		return b.Invitation
	}
	return b.Invite
}

func (b synthesizeBody) personaID() string {
	if b.PersonaID != "" {
		return b.PersonaID
	}
	return b.PersonaIDC
}

func (s *Server) handleSynthesize(c *gin.Context) {
	start := time.Now()

	var body synthesizeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.metrics.ObserveRequest("missing_field", time.Since(start))
		c.String(http.StatusBadRequest, "invalid request body")
		return
	}

	req := Request{
		Invitation: body.invitation(),
		PersonaID:  body.personaID(),
		Text:       body.Text,
		Origin:     callerOrigin(c.Request),
	}

	result, gwErr := s.svc.Synthesize(c.Request.Context(), req)
	if gwErr != nil {
		s.metrics.ObserveRequest(gwErr.Outcome(), time.Since(start))
		s.log.Info("synthesis rejected",
			"request_id", c.GetString(requestIDHeader),
			"status", gwErr.HTTPStatus(),
			"outcome", gwErr.Outcome(),
		)
		c.String(gwErr.HTTPStatus(), gwErr.Message)
		return
	}

	s.metrics.ObserveRequest("ok", time.Since(start))
	c.Header(VoiceIDHeader, result.VoiceID)
	encoded := base64.StdEncoding.EncodeToString(result.Audio)
	c.Data(http.StatusOK, "audio/mpeg", []byte(encoded))
}

// requestID tags every request with a correlation id for the logs.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// callerOrigin derives the caller's network origin: the first entry of
// X-Forwarded-For, then X-Real-IP, then a literal sentinel.
func callerOrigin(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	return "unknown"
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
