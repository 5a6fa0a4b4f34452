package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"pocketmoney/internal/log"
	"pocketmoney/internal/middleware/ratelimit"
	"pocketmoney/internal/middleware/security"
	"pocketmoney/internal/middleware/trace"
	"pocketmoney/internal/services"
)

// Options are the optional collaborators of a Server.
type Options struct {
	Logger  *log.Logger
	Limiter *ratelimit.Limiter
	// Ready reports whether dependencies such as the journal are usable.
	Ready func(context.Context) error
}

type Server struct {
	http.Server
	household *services.Household
	logger    *log.Logger
	detector  *security.Detector
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware
	ready     func(context.Context) error

	// streams is closed on shutdown to end open event streams.
	streams      chan struct{}
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, h *services.Household, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		household: h,
		logger:    logger,
		detector:  security.NewDetector(),
		limiter:   opts.Limiter,
		ready:     opts.Ready,
		streams:   make(chan struct{}),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ClientIP)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = s.tracer.Handler(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("GET /api/accounts/{id}/transactions", s.handleHistory)
	mux.HandleFunc("POST /api/accounts/{id}/transactions", s.handleRecordTransaction)
	mux.HandleFunc("POST /api/accounts/{id}/spend", s.handleSpend)
	mux.HandleFunc("POST /api/accounts/{id}/send", s.handleSend)
	mux.HandleFunc("GET /api/accounts/{id}/policy", s.handleGetPolicy)
	mux.HandleFunc("PATCH /api/accounts/{id}/policy", s.handleUpdatePolicy)
	mux.HandleFunc("GET /api/accounts/{id}/summary", s.handleSummary)
	mux.HandleFunc("POST /api/accounts/{id}/chore-suggestions", s.handleSuggestChores)
	mux.HandleFunc("GET /api/accounts/{id}/missions", s.handleMissionProgress)

	mux.HandleFunc("GET /api/chores", s.handleListChores)
	mux.HandleFunc("POST /api/chores", s.handleCreateChore)
	mux.HandleFunc("GET /api/chores/{id}", s.handleGetChore)
	mux.HandleFunc("POST /api/chores/{id}/{action}", s.handleTransitionChore)

	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("POST /api/goals", s.handleCreateGoal)
	mux.HandleFunc("GET /api/goals/{id}", s.handleGetGoal)
	mux.HandleFunc("POST /api/goals/{id}/contribute", s.handleContribute)
	mux.HandleFunc("POST /api/goals/{id}/withdraw", s.handleWithdraw)

	mux.HandleFunc("GET /api/missions", s.handleListMissions)
	mux.HandleFunc("POST /api/missions/{id}/start", s.handleStartMission)
	mux.HandleFunc("POST /api/missions/{id}/answer", s.handleAnswerMission)

	mux.HandleFunc("GET /api/events", s.handleEvents)
}

// Shutdown ends event streams, then shuts the HTTP server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.streams)
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
