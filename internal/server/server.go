// Package server exposes the story engine over HTTP: a single-shot story
// endpoint, an SSE streaming variant, text-to-speech audio streaming, shared
// password authentication and per-client rate limiting.
package server

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/federkiel/internal/health"
	"github.com/MrWong99/federkiel/internal/observe"
	"github.com/MrWong99/federkiel/internal/story"
	"github.com/MrWong99/federkiel/internal/wire"
	speechprov "github.com/MrWong99/federkiel/pkg/provider/speech"
)

// User-facing failure messages. The narrator speaks German, so do we.
const (
	rateLimitedMessage  = "Zu viele Anfragen. Bitte warte kurz."
	unauthorizedMessage = "Ungültiges Passwort."
	storyFailureMessage = "Die Geschichte konnte nicht erzählt werden."
	imageFailureMessage = "Illustration konnte nicht geladen werden."
	ttsFailureMessage   = "Sprachausgabe fehlgeschlagen."
)

// Server holds the HTTP handlers for the story API.
type Server struct {
	story   *story.Service
	speech  speechprov.Provider
	users   Users
	limiter *Limiter
	health  *health.Handler
	metrics *observe.Metrics
	log     *slog.Logger
}

// Option is a functional option for configuring the Server.
type Option func(*Server)

// WithUsers enables authentication against the given user set. An empty set
// leaves all endpoints open.
func WithUsers(users Users) Option {
	return func(s *Server) {
		s.users = users
	}
}

// WithLimiter enables per-client rate limiting on the story endpoints.
func WithLimiter(l *Limiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// WithSpeech enables the text-to-speech endpoint.
func WithSpeech(p speechprov.Provider) Option {
	return func(s *Server) {
		s.speech = p
	}
}

// WithHealthCheckers adds readiness checks to the health endpoints.
func WithHealthCheckers(checkers ...health.Checker) Option {
	return func(s *Server) {
		s.health = health.New(checkers...)
	}
}

// WithMetrics replaces the default metrics instance. Test hook.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger replaces the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// New creates a Server around the story service.
func New(storySvc *story.Service, opts ...Option) *Server {
	s := &Server{
		story:  storySvc,
		health: health.New(),
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Router builds the HTTP routing tree. Health, metrics and password
// validation stay open; the story and TTS endpoints sit behind the auth
// middleware once users are configured.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(observe.Middleware(s.metrics))

	s.health.Register(r)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/api/auth/validate", s.handleAuthValidate)

	r.Group(func(r chi.Router) {
		if s.users.Len() > 0 {
			r.Use(s.authMiddleware)
		}
		r.Post("/api/story", s.handleStory)
		r.Post("/api/story/stream", s.handleStoryStream)
		r.Post("/api/tts", s.handleTTS)
	})

	return r
}

// authMiddleware rejects requests whose X-App-Password header does not match
// a configured user.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.users.Authenticate(r.Header.Get(passwordHeader))
		if !ok {
			s.log.Warn("unauthorized request", "method", r.Method, "path", r.URL.Path, "ip", clientIP(r))
			writeError(w, http.StatusUnauthorized, wire.CodeUnauthorized, unauthorizedMessage, "")
			return
		}
		s.log.Info("authenticated request", "user", user, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// handleAuthValidate lets the client check a password without triggering a
// story turn.
func (s *Server) handleAuthValidate(w http.ResponseWriter, r *http.Request) {
	user, ok := s.users.Authenticate(r.Header.Get(passwordHeader))
	if !ok {
		s.log.Info("failed password validation", "ip", clientIP(r))
		writeError(w, http.StatusUnauthorized, wire.CodeUnauthorized, unauthorizedMessage, "")
		return
	}
	s.log.Info("password validated", "user", user)
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// handleStory runs one complete narrator turn and responds with the full
// reply, illustration included.
func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)
	ip := clientIP(r)

	if !s.limiter.Allow(ip) {
		s.metrics.RecordRateLimited(r.Context(), r.URL.Path)
		s.log.Warn("story request rate limited", "requestId", requestID, "ip", ip)
		writeError(w, http.StatusTooManyRequests, wire.CodeRateLimited, rateLimitedMessage, requestID)
		return
	}

	var req wire.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Warn("story request invalid body", "requestId", requestID, "ip", ip, "error", err)
		writeError(w, http.StatusBadRequest, wire.CodeBadRequest, "Ungültige Anfrage.", requestID)
		return
	}
	s.log.Info("story request received",
		"requestId", requestID, "ip", ip,
		"history", len(req.ConversationHistory), "actionLength", len(req.Action))

	start := time.Now()
	assistant, err := s.story.Turn(r.Context(), &req)
	if err != nil {
		s.metrics.RecordStoryTurn(r.Context(), "single", "error")
		s.log.Error("story request failed", "requestId", requestID, "error", err)
		writeError(w, http.StatusBadGateway, wire.CodeStoryFailed, storyFailureMessage, requestID)
		return
	}
	s.metrics.StoryDuration.Record(r.Context(), time.Since(start).Seconds())
	s.metrics.RecordStoryTurn(r.Context(), "single", "ok")
	if assistant.Adventure != nil && assistant.Adventure.Completed {
		s.metrics.AdventuresCompleted.Add(r.Context(), 1)
	}
	writeJSON(w, http.StatusOK, wire.FinalEvent{Assistant: *assistant})
}

// handleStoryStream runs one narrator turn over SSE: delta events while the
// model produces text, a final_text event with the assembled reply, then an
// image or image_error event. Failures after the stream has started are
// reported as error events; the status code is already on the wire.
func (s *Server) handleStoryStream(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)
	ip := clientIP(r)
	ctx := r.Context()

	sse, err := newSSEWriter(w)
	if err != nil {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	fail := func(code, message string) {
		_ = sse.Send(wire.EventError, wire.ErrorEvent{
			Error: wire.ErrorPayload{Code: code, Message: message, RequestID: requestID},
		})
	}

	if !s.limiter.Allow(ip) {
		s.metrics.RecordRateLimited(ctx, r.URL.Path)
		s.log.Warn("story stream rate limited", "requestId", requestID, "ip", ip)
		fail(wire.CodeRateLimited, rateLimitedMessage)
		return
	}

	var req wire.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Warn("story stream invalid body", "requestId", requestID, "ip", ip, "error", err)
		fail(wire.CodeBadRequest, "Ungültige Anfrage.")
		return
	}
	s.log.Info("story stream received",
		"requestId", requestID, "ip", ip,
		"history", len(req.ConversationHistory), "actionLength", len(req.Action))

	s.metrics.ActiveStreams.Add(ctx, 1)
	defer s.metrics.ActiveStreams.Add(ctx, -1)

	start := time.Now()
	res, err := s.story.StreamTurn(ctx, &req, func(delta string) {
		s.metrics.StreamDeltas.Add(ctx, 1)
		_ = sse.Send(wire.EventDelta, wire.DeltaEvent{Text: delta})
	})
	if err != nil {
		s.metrics.RecordStoryTurn(ctx, "stream", "error")
		s.log.Error("story stream failed", "requestId", requestID, "error", err)
		fail(wire.CodeStoryFailed, storyFailureMessage)
		return
	}
	s.metrics.StoryDuration.Record(ctx, time.Since(start).Seconds())
	s.metrics.RecordStoryTurn(ctx, "stream", "ok")
	if res.Assistant.Adventure != nil && res.Assistant.Adventure.Completed {
		s.metrics.AdventuresCompleted.Add(ctx, 1)
	}
	if err := sse.Send(wire.EventFinalText, wire.FinalEvent{Assistant: res.Assistant}); err != nil {
		s.log.Warn("story stream client gone", "requestId", requestID, "error", err)
		return
	}

	imgStart := time.Now()
	img, err := s.story.GenerateImage(ctx, res.ImagePrompt)
	if err != nil {
		s.metrics.RecordProviderError(ctx, "image", "generate")
		s.log.Warn("turn illustration failed", "requestId", requestID, "error", err)
		_ = sse.Send(wire.EventImageError, wire.ErrorEvent{
			Error: wire.ErrorPayload{Code: wire.CodeImageFailed, Message: imageFailureMessage, RequestID: requestID},
		})
		return
	}
	s.metrics.ImageDuration.Record(ctx, time.Since(imgStart).Seconds())
	_ = sse.Send(wire.EventImage, wire.ImageEvent{Image: *img})
}

// handleTTS synthesizes speech for a text and streams the audio back as it
// arrives from the provider.
func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)
	ip := clientIP(r)

	if s.speech == nil {
		writeError(w, http.StatusServiceUnavailable, wire.CodeTTSFailed, "Sprachausgabe ist nicht konfiguriert.", requestID)
		return
	}

	var req wire.TTSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Warn("tts request invalid body", "requestId", requestID, "ip", ip, "error", err)
		writeError(w, http.StatusBadRequest, wire.CodeBadRequest, "Ungültige Anfrage.", requestID)
		return
	}
	s.log.Info("tts request received", "requestId", requestID, "ip", ip, "textLength", len(req.Text))
	if strings.TrimSpace(req.Text) == "" {
		s.log.Warn("tts request missing text", "requestId", requestID, "ip", ip)
		writeError(w, http.StatusBadRequest, wire.CodeBadRequest, "text is required", requestID)
		return
	}

	start := time.Now()
	chunks, err := s.speech.Synthesize(r.Context(), req.Text)
	if err != nil {
		s.metrics.RecordProviderError(r.Context(), "speech", "synthesize")
		s.log.Error("tts synthesis failed", "requestId", requestID, "error", err)
		writeError(w, http.StatusBadGateway, wire.CodeTTSFailed, ttsFailureMessage, requestID)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	var written int64
	for chunk := range chunks {
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			s.log.Warn("tts client gone", "requestId", requestID, "error", err)
			for range chunks {
			}
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	s.metrics.TTSDuration.Record(r.Context(), time.Since(start).Seconds())
	s.log.Info("tts request completed",
		"requestId", requestID, "ip", ip,
		"bytes", written, "duration", time.Since(start))
}

// clientIP extracts the caller's address, honouring the first entry of an
// X-Forwarded-For header when a proxy sits in front of the server.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(ip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error envelope.
func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeJSON(w, status, wire.ErrorEvent{
		Error: wire.ErrorPayload{Code: code, Message: message, RequestID: requestID},
	})
}
