package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Chat errors. They are logged and turned into transcript notices, never returned.
var (
	ErrRateLimited   = errors.New("rate limited")
	ErrRequestFailed = errors.New("request failed")
)

const maxResponseBytes = 1 << 20

// Outcome is the result of a Submit call.
type Outcome int

const (
	// OutcomeSkipped: blank input, a request already in flight, or a disposed widget.
	OutcomeSkipped Outcome = iota
	OutcomeAnswered
	OutcomeRateLimited
	OutcomeFailed
	// OutcomeDiscarded: the widget was disposed while the request was in flight.
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeAnswered:
		return "answered"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeFailed:
		return "failed"
	case OutcomeDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

type askRequest struct {
	Question string `json:"question"`
	Language string `json:"language,omitempty"`
}

type askResponse struct {
	Response          string   `json:"response"`
	Answer            string   `json:"answer"`
	Sources           []Source `json:"sources"`
	RemainingRequests *int     `json:"remaining_requests"`
}

type answer struct {
	content   string
	sources   []Source
	remaining *int
}

// Option configures a Widget.
type Option func(*Widget)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(w *Widget) {
		if client != nil {
			w.client = client
		}
	}
}

// WithLocale sets the locale for notices and source labels.
func WithLocale(l Locale) Option {
	return func(w *Widget) {
		w.locale = l
		w.notices = DefaultNotices(l)
	}
}

// WithNotices overrides the fixed notice copy.
func WithNotices(n Notices) Option {
	return func(w *Widget) { w.notices = n }
}

// WithLanguage adds a "language" field to each request.
func WithLanguage(lang string) Option {
	return func(w *Widget) { w.language = strings.TrimSpace(lang) }
}

// WithWelcome seeds the transcript with the locale's welcome message.
func WithWelcome() Option {
	return func(w *Widget) { w.welcome = true }
}

// WithFocus registers the hook that returns focus to the input field.
func WithFocus(fn func()) Option {
	return func(w *Widget) { w.focus = fn }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Widget) { w.logger = logger }
}

// Widget is one chat demo instance. At most one request is in flight.
type Widget struct {
	endpoint string
	client   *http.Client
	locale   Locale
	notices  Notices
	language string
	welcome  bool
	focus    func()
	logger   zerolog.Logger
	now      func() time.Time

	mu           sync.Mutex
	transcript   []Entry
	inFlight     bool
	remaining    int
	hasRemaining bool
	disposed     bool
}

// NewWidget creates a widget that posts questions to endpoint.
func NewWidget(endpoint string, opts ...Option) *Widget {
	w := &Widget{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		locale:   LocaleES,
		notices:  DefaultNotices(LocaleES),
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.welcome && w.notices.Welcome != "" {
		w.transcript = append(w.transcript, w.entry(AuthorAssistant, w.notices.Welcome, nil))
	}
	return w
}

// Locale returns the widget locale.
func (w *Widget) Locale() Locale {
	return w.locale
}

// Submit sends question and records the exchange in the transcript.
// Blank input or a request already in flight is ignored.
func (w *Widget) Submit(ctx context.Context, question string) Outcome {
	q := strings.TrimSpace(question)

	w.mu.Lock()
	if q == "" || w.inFlight || w.disposed {
		w.mu.Unlock()
		return OutcomeSkipped
	}
	w.inFlight = true
	w.transcript = append(w.transcript, w.entry(AuthorUser, q, nil))
	w.mu.Unlock()

	ans, err := w.ask(ctx, q)

	w.mu.Lock()
	w.inFlight = false
	if w.disposed {
		w.mu.Unlock()
		w.logger.Debug().Msg("response discarded after dispose")
		return OutcomeDiscarded
	}

	var outcome Outcome
	switch {
	case err == nil:
		outcome = OutcomeAnswered
		w.transcript = append(w.transcript, w.entry(AuthorAssistant, ans.content, ans.sources))
		if ans.remaining != nil {
			w.remaining = *ans.remaining
			w.hasRemaining = true
		}
	case errors.Is(err, ErrRateLimited):
		outcome = OutcomeRateLimited
		w.transcript = append(w.transcript, w.entry(AuthorAssistant, w.notices.RateLimited, nil))
	default:
		outcome = OutcomeFailed
		w.transcript = append(w.transcript, w.entry(AuthorAssistant, w.notices.Failed, nil))
	}
	focus := w.focus
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn().Err(err).Str("outcome", outcome.String()).Msg("chat request did not succeed")
	} else {
		w.logger.Debug().Int("sources", len(ans.sources)).Msg("chat answer received")
	}
	if focus != nil {
		focus()
	}
	return outcome
}

func (w *Widget) ask(ctx context.Context, question string) (*answer, error) {
	body, err := json.Marshal(askRequest{Question: question, Language: w.language})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrRequestFailed, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	var parsed askResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", ErrRequestFailed, err)
	}
	content := parsed.Response
	if content == "" {
		content = parsed.Answer
	}
	if content == "" {
		return nil, fmt.Errorf("%w: empty answer", ErrRequestFailed)
	}

	return &answer{content: content, sources: parsed.Sources, remaining: parsed.RemainingRequests}, nil
}

// Dispose detaches the widget. Responses arriving later are dropped.
func (w *Widget) Dispose() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.disposed = true
}

// Transcript returns a copy of the transcript.
func (w *Widget) Transcript() []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return cloneEntries(w.transcript)
}

// InFlight reports whether a request is pending.
func (w *Widget) InFlight() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inFlight
}

// Remaining returns the last quota counter reported by the server.
func (w *Widget) Remaining() (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.remaining, w.hasRemaining
}

func (w *Widget) entry(author Author, content string, sources []Source) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Author:    author,
		Content:   content,
		Sources:   sources,
		Timestamp: w.now(),
	}
}
