package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
)

// Store is the record storage the handlers read and write directly.
type Store interface {
	Ping(ctx context.Context) error

	ListDebts(ctx context.Context) ([]core.DebtObligation, error)
	SaveDebt(ctx context.Context, d core.DebtObligation) error
	DeleteDebt(ctx context.Context, id string) error

	ListGoals(ctx context.Context) ([]core.Goal, error)
	SaveGoal(ctx context.Context, g core.Goal) error
	DeleteGoal(ctx context.Context, id string) error

	ListLedger(ctx context.Context, kind core.LedgerKind) ([]core.LedgerItem, error)
	SaveLedgerItem(ctx context.Context, it core.LedgerItem) error
	DeleteLedgerItem(ctx context.Context, kind core.LedgerKind, id string) error

	ListTransactions(ctx context.Context, since time.Time) ([]core.TransactionRecord, error)
	SaveOverride(ctx context.Context, o core.BucketOverride) error
}

// Deps are the collaborators of the server.
type Deps struct {
	Store       Store
	Planner     *services.Planner
	Importer    *services.ImportService
	Suggestions *services.SuggestionGate

	RateLimitRPM  int
	AllowedOrigin string

	// Now defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	http.Server

	store       Store
	planner     *services.Planner
	importer    *services.ImportService
	suggestions *services.SuggestionGate
	now         func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		store:       deps.Store,
		planner:     deps.Planner,
		importer:    deps.Importer,
		suggestions: deps.Suggestions,
		now:         now,
		detector:    security.NewDetector(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitRPM,
			Methods:           []string{http.MethodPost, http.MethodPut, http.MethodDelete},
		}),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.APIHeadersConfig())
	var h http.Handler = jsonErrors(mux)
	h = s.detect(h)
	h = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})(h)
	h = cors(deps.AllowedOrigin)(h)
	h = headers.Middleware(h)
	h = s.tracer.Middleware(h)
	s.Handler = h

	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/debts", s.handleListDebts)
	mux.HandleFunc("POST /api/debts", s.handleSaveDebt)
	mux.HandleFunc("DELETE /api/debts/{id}", s.handleDeleteDebt)

	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("POST /api/goals", s.handleSaveGoal)
	mux.HandleFunc("DELETE /api/goals/{id}", s.handleDeleteGoal)
	mux.HandleFunc("GET /api/goals/projections", s.handleProjections)

	mux.HandleFunc("GET /api/ledger/{kind}", s.handleListLedger)
	mux.HandleFunc("POST /api/ledger/{kind}", s.handleSaveLedgerItem)
	mux.HandleFunc("DELETE /api/ledger/{kind}/{id}", s.handleDeleteLedgerItem)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleImportTransactions)

	mux.HandleFunc("POST /api/simulations", s.handleSimulate)
	mux.HandleFunc("POST /api/simulations/compare", s.handleCompare)

	mux.HandleFunc("GET /api/buckets", s.handleBuckets)
	mux.HandleFunc("PUT /api/buckets/{id}/override", s.handleSaveOverride)

	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("POST /api/suggestions", s.handleSuggestions)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// detect logs requests matching known attack patterns. They are still served.
func (s *Server) detect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(), "Suspicious request",
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

// cors allows one configured origin. An empty origin disables CORS headers.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if origin == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Origin") == origin {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type")
				h.Add("Vary", "Origin")
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// jsonErrors rewrites the mux's plain-text 404 and 405 replies into the JSON
// error envelope.
func jsonErrors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&jsonErrorWriter{ResponseWriter: w}, r)
	})
}

type jsonErrorWriter struct {
	http.ResponseWriter
	swallow bool
}

func (w *jsonErrorWriter) WriteHeader(code int) {
	if (code == http.StatusNotFound || code == http.StatusMethodNotAllowed) &&
		strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain") {
		w.swallow = true
		msg := "not found"
		if code == http.StatusMethodNotAllowed {
			msg = "method not allowed"
		}
		ErrorResponse(code, msg).Write(w.ResponseWriter)
		return
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *jsonErrorWriter) Write(b []byte) (int, error) {
	if w.swallow {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	OK(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentHTTP).ErrorContext(ctx, "Readiness check failed", log.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, "database unavailable").Write(w)
		return
	}
	OK(map[string]string{"status": "ready"}).Write(w)
}
