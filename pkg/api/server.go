package api

import (
	"log/slog"
	"net/http"

	"github.com/IsaacBoateng/Private-blockchain/pkg/observability"
)

// Server exposes the ledger and the ownership protocol.
type Server struct {
	ledger    Ledger
	registrar Registrar
	stars     *StarValidator
	limiter   *ClientRateLimiter
	telemetry *observability.Provider
	logger    *slog.Logger
}

type Option func(*Server)

// WithRateLimit enables per-IP rate limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 && burst > 0 {
			s.limiter = NewClientRateLimiter(rps, burst)
		}
	}
}

func WithTelemetry(p *observability.Provider) Option {
	return func(s *Server) { s.telemetry = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func NewServer(ledger Ledger, registrar Registrar, opts ...Option) (*Server, error) {
	stars, err := NewStarValidator()
	if err != nil {
		return nil, err
	}
	s := &Server{
		ledger:    ledger,
		registrar: registrar,
		stars:     stars,
		logger:    slog.Default().With("component", "api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"GET /block/height/{height}", s.HandleBlockByHeight},
		{"GET /block/hash/{hash}", s.HandleBlockByHash},
		{"POST /requestValidation", s.HandleRequestValidation},
		{"POST /submitstar", s.HandleSubmitStar},
		{"GET /blocks/{address}", s.HandleBlocksByOwner},
		{"GET /chain/height", s.HandleHeight},
		{"GET /chain/validate", s.HandleValidate},
		{"GET /health", s.HandleHealth},
	}
	for _, rt := range routes {
		mux.Handle(rt.pattern, Instrument(s.telemetry, rt.pattern, rt.handler))
	}

	var h http.Handler = mux
	if s.limiter != nil {
		h = s.limiter.Middleware(h)
	}
	return RequestID(h)
}

// Close releases background resources.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}
