package chatd

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/showcase-dev/showcase/internal/models"
)

const maxRequestBytes = 64 << 10

// EventStore persists server events.
type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
}

type chatRequest struct {
	Question string `json:"question"`
	Language string `json:"language,omitempty"`
}

type chatResponse struct {
	Response          string   `json:"response"`
	Answer            string   `json:"answer"`
	Sources           []Source `json:"sources"`
	RemainingRequests int      `json:"remaining_requests"`
	Demo              bool     `json:"demo"`
	ProcessingTime    float64  `json:"processing_time"`
	Warnings          []string `json:"warnings,omitempty"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// UsageReporter aggregates recorded events.
type UsageReporter interface {
	Summarize(ctx context.Context, since *time.Time) (*models.UsageSummary, error)
	Daily(ctx context.Context, since, until time.Time, limit int) ([]*models.DailyUsage, error)
}

const statsDays = 7

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithEventStore records requests to store.
func WithEventStore(store EventStore) ServerOption {
	return func(s *Server) { s.events = store }
}

// WithUsageReporter enables GET /api/stats.
func WithUsageReporter(usage UsageReporter) ServerOption {
	return func(s *Server) { s.usage = usage }
}

// WithMaxQuestionLength caps question length in characters.
func WithMaxQuestionLength(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxQuestion = n
		}
	}
}

// WithServerLogger sets the logger.
func WithServerLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithClock overrides the time source used for processing time.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// Server handles the demo chat HTTP API.
type Server struct {
	kb          *KnowledgeBase
	limiter     *RateLimiter
	events      EventStore
	usage       UsageReporter
	maxQuestion int
	logger      zerolog.Logger
	now         func() time.Time
}

// NewServer creates a chat API server.
func NewServer(kb *KnowledgeBase, limiter *RateLimiter, opts ...ServerOption) (*Server, error) {
	if kb == nil {
		return nil, errors.New("knowledge base is required")
	}
	if limiter == nil {
		limiter = NewRateLimiter()
	}
	s := &Server{
		kb:          kb,
		limiter:     limiter,
		maxQuestion: 500,
		logger:      zerolog.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the HTTP routes wrapped with security headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	return securityHeaders(mux)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	client := clientKey(r)
	logger := s.logger.With().Str("client", client).Logger()

	var req chatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Detail: "Request body must be JSON with a question field"})
		return
	}

	lang := strings.ToLower(strings.TrimSpace(req.Language))
	if lang == "" {
		lang = "es"
	}
	if lang != "es" && lang != "en" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Detail: "language must be es or en"})
		return
	}

	// Length is request validation and never costs quota.
	if issue := lengthIssue(req.Question, s.maxQuestion); issue != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Detail: issue})
		return
	}

	allowed, remaining := s.limiter.Allow(client)
	if !allowed {
		logger.Warn().Msg("rate limit exceeded")
		s.record(r.Context(), &models.Event{Type: models.EventTypeRateLimited, ClientID: client})
		w.Header().Set("Retry-After", strconv.Itoa(int(s.limiter.Stats().WindowSeconds)))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error:  "rate_limited",
			Detail: "Rate limit exceeded. Please wait a few minutes before trying again.",
		})
		return
	}

	report := CheckInput(req.Question, s.maxQuestion)
	if !report.Safe {
		logger.Warn().Strs("issues", report.Issues).Str("risk", report.RiskLevel.String()).Msg("unsafe input rejected")
		s.record(r.Context(), newEvent(models.EventTypeInputRejected, client, models.RejectionPayload{
			Issues:    report.Issues,
			RiskLevel: report.RiskLevel.String(),
		}))
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "invalid_input",
			Detail: "Invalid input: " + strings.Join(report.Issues, ", "),
		})
		return
	}

	question := strings.TrimSpace(req.Question)
	s.record(r.Context(), newEvent(models.EventTypeQuestionReceived, client, models.QuestionPayload{
		Question: question,
		Language: lang,
	}))

	answer, sources := s.kb.Answer(question, lang)
	if sources == nil {
		sources = []Source{}
	}
	elapsed := s.now().Sub(start).Seconds()

	titles := make([]string, len(sources))
	for i, src := range sources {
		titles[i] = src.Title
	}
	s.record(r.Context(), newEvent(models.EventTypeAnswerSent, client, models.AnswerPayload{
		Sources:        titles,
		ProcessingTime: elapsed,
		Warnings:       report.Warnings,
	}))
	logger.Info().Str("lang", lang).Int("sources", len(sources)).Int("remaining", remaining).Msg("question answered")

	writeJSON(w, http.StatusOK, chatResponse{
		Response:          answer,
		Answer:            answer,
		Sources:           sources,
		RemainingRequests: remaining,
		Demo:              true,
		ProcessingTime:    elapsed,
		Warnings:          report.Warnings,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"rate_limit": s.limiter.Stats(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.usage == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Detail: "usage reporting is disabled"})
		return
	}

	now := s.now().UTC()
	since := now.AddDate(0, 0, -statsDays)
	summary, err := s.usage.Summarize(r.Context(), &since)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to summarize usage")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
		return
	}
	daily, err := s.usage.Daily(r.Context(), since, now.Add(time.Second), statsDays+1)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load daily usage")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
		return
	}
	if daily == nil {
		daily = []*models.DailyUsage{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary": summary,
		"daily":   daily,
	})
}

func (s *Server) record(ctx context.Context, event *models.Event) {
	if s.events == nil || event == nil {
		return
	}
	if err := s.events.Create(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("type", string(event.Type)).Msg("failed to record event")
	}
}

func newEvent(eventType models.EventType, client string, payload any) *models.Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data = nil
	}
	return &models.Event{Type: eventType, ClientID: client, Payload: data}
}

// clientKey prefers the first X-Forwarded-For hop over the socket address.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		h.Set("Content-Security-Policy",
			"default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; object-src 'none';")
		next.ServeHTTP(w, r)
	})
}
