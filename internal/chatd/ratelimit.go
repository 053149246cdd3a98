// Package chatd serves the demo chat endpoint the chat widget talks to.
package chatd

import (
	"context"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// RateLimitConfig is a sliding-window limit per client.
type RateLimitConfig struct {
	// Requests is the number of requests allowed per window.
	Requests int

	// Window is the length of the sliding window.
	Window time.Duration
}

// DefaultRateLimit allows 10 requests per 5 minutes.
var DefaultRateLimit = RateLimitConfig{Requests: 10, Window: 5 * time.Minute}

// clientWindow holds the accepted request times of one client, oldest first.
type clientWindow struct {
	hits []time.Time
}

func (w *clientWindow) prune(now time.Time, window time.Duration) {
	cut := 0
	for cut < len(w.hits) && now.Sub(w.hits[cut]) >= window {
		cut++
	}
	if cut > 0 {
		w.hits = append(w.hits[:0], w.hits[cut:]...)
	}
}

// RateLimiter tracks per-client sliding windows.
type RateLimiter struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	clients map[string]*clientWindow
	now     func() time.Time
	enabled bool

	requestCount int64
	deniedCount  int64
	lastSweep    time.Time
}

// RateLimiterOption configures the RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithLimit sets the window configuration.
func WithLimit(cfg RateLimitConfig) RateLimiterOption {
	return func(rl *RateLimiter) {
		if cfg.Requests > 0 && cfg.Window > 0 {
			rl.cfg = cfg
		}
	}
}

// WithEnabled enables or disables rate limiting.
func WithEnabled(enabled bool) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.enabled = enabled
	}
}

// WithNow overrides the time source.
func WithNow(now func() time.Time) RateLimiterOption {
	return func(rl *RateLimiter) {
		if now != nil {
			rl.now = now
		}
	}
}

// NewRateLimiter creates a new rate limiter with the given options.
func NewRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		cfg:     DefaultRateLimit,
		clients: make(map[string]*clientWindow),
		now:     time.Now,
		enabled: true,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Allow records a request from client and reports whether it is within the
// limit, along with how many requests remain in the current window.
func (rl *RateLimiter) Allow(client string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.requestCount++
	if !rl.enabled {
		return true, rl.cfg.Requests
	}

	now := rl.now()
	rl.sweepLocked(now)

	w, ok := rl.clients[client]
	if !ok {
		w = &clientWindow{}
		rl.clients[client] = w
	}
	w.prune(now, rl.cfg.Window)

	if len(w.hits) >= rl.cfg.Requests {
		rl.deniedCount++
		return false, 0
	}
	w.hits = append(w.hits, now)
	return true, rl.cfg.Requests - len(w.hits)
}

// sweepLocked drops idle clients at most once per window.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.cfg.Window {
		return
	}
	rl.lastSweep = now
	for key, w := range rl.clients {
		w.prune(now, rl.cfg.Window)
		if len(w.hits) == 0 {
			delete(rl.clients, key)
		}
	}
}

// Stats summarizes limiter activity.
type Stats struct {
	Requests         int           `json:"requests"`
	Window           time.Duration `json:"-"`
	WindowSeconds    float64       `json:"window_seconds"`
	TrackedClients   int           `json:"tracked_clients"`
	TotalRequests    int64         `json:"total_requests"`
	DeniedRequests   int64         `json:"denied_requests"`
	DeniedPercentage float64       `json:"denied_percentage"`
	Enabled          bool          `json:"enabled"`
}

// Stats returns current statistics.
func (rl *RateLimiter) Stats() Stats {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	s := Stats{
		Requests:       rl.cfg.Requests,
		Window:         rl.cfg.Window,
		WindowSeconds:  rl.cfg.Window.Seconds(),
		TrackedClients: len(rl.clients),
		TotalRequests:  rl.requestCount,
		DeniedRequests: rl.deniedCount,
		Enabled:        rl.enabled,
	}
	if s.TotalRequests > 0 {
		s.DeniedPercentage = float64(s.DeniedRequests) / float64(s.TotalRequests) * 100
	}
	return s
}

// UnaryServerInterceptor applies the limit to gRPC calls, keyed by peer host.
func (rl *RateLimiter) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if ok, _ := rl.Allow(peerKey(ctx)); !ok {
			return nil, status.Errorf(codes.ResourceExhausted,
				"rate limit exceeded for method %s", info.FullMethod)
		}
		return handler(ctx, req)
	}
}

func peerKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}
