package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/IsaacBoateng/Private-blockchain/pkg/observability"
)

// RequestIDHeader carries the per-request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const (
	clientIdleTTL  = 3 * time.Minute
	retryAfterSecs = 5
)

// ClientRateLimiter holds one token bucket per client IP.
type ClientRateLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*client

	done chan struct{}
	once sync.Once
}

type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// NewClientRateLimiter allows rps requests per second per client IP with
// the given burst. Stop ends the idle-client sweep.
func NewClientRateLimiter(rps float64, burst int) *ClientRateLimiter {
	l := &ClientRateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*client),
		done:    make(chan struct{}),
	}
	go l.sweep(time.Minute)
	return l
}

func (l *ClientRateLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	c, ok := l.clients[ip]
	if !ok {
		c = &client{bucket: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	l.mu.Unlock()
	return c.bucket.AllowN(now, 1)
}

func (l *ClientRateLimiter) sweep(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-l.done:
			return
		case now := <-t.C:
			l.evictIdle(now)
		}
	}
}

func (l *ClientRateLimiter) evictIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) > clientIdleTTL {
			delete(l.clients, ip)
		}
	}
}

func (l *ClientRateLimiter) Stop() {
	l.once.Do(func() { close(l.done) })
}

// Middleware rejects requests over the caller's budget with 429.
func (l *ClientRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r), time.Now()) {
			WriteTooManyRequests(w, retryAfterSecs)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RequestID propagates the caller's X-Request-ID or assigns a UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

type statusError int

func (e statusError) Error() string { return http.StatusText(int(e)) }

// Instrument tracks each request to route as an operation. 5xx responses
// count as errors.
func Instrument(p *observability.Provider, route string, next http.Handler) http.Handler {
	if p == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, done := p.TrackOperation(r.Context(), route, attribute.String("http.route", route))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		if rec.status >= http.StatusInternalServerError {
			done(statusError(rec.status))
			return
		}
		done(nil)
	})
}
