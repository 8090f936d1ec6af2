package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"budgetcal/internal/cache"
	"budgetcal/internal/middleware/trace"
	"budgetcal/internal/services"
)

// OwnerHeader carries the caller's identity. Authentication sits in front of
// this service; here the header is only required and trusted.
const OwnerHeader = "X-Owner-Id"

type ownerContextKey struct{}

// Server exposes the calendar, template and account operations as a JSON
// API. Month views are cached per owner with an LRU and invalidated whole-
// owner on every mutation, since changing one month shifts the running
// balances of every later one.
type Server struct {
	http.Server

	budget      *services.BudgetService
	occurrences *services.OccurrenceService
	templates   *services.TemplateService
	accounts    *services.AccountService

	rateLimiter  *rateLimiter
	monthCache   *cache.LRUCache[*services.MonthView]
	cacheManager *cache.Manager
	shutdownOnce sync.Once
}

// Options tunes the server's caching.
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
}

func NewServer(addr string, budget *services.BudgetService, occurrences *services.OccurrenceService, templates *services.TemplateService, accounts *services.AccountService, opts Options) *Server {
	if opts.CacheSize < 1 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL < time.Second {
		opts.CacheTTL = 5 * time.Minute
	}

	mux := http.NewServeMux()
	s := &Server{
		budget:       budget,
		occurrences:  occurrences,
		templates:    templates,
		accounts:     accounts,
		rateLimiter:  newRateLimiter(),
		monthCache:   cache.NewLRUCache[*services.MonthView](opts.CacheSize, opts.CacheTTL),
		cacheManager: cache.NewManager(),
	}
	s.cacheManager.Register(s.monthCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/calendar/{year}/{month}", s.protected(s.handleGetCalendar))
	mux.HandleFunc("GET /api/calendar/{year}/{month}/balances", s.protected(s.handleGetBalances))

	mux.HandleFunc("POST /api/occurrences", s.protected(s.handleCreateOccurrence))
	mux.HandleFunc("GET /api/occurrences/{id}", s.protected(s.handleGetOccurrence))
	mux.HandleFunc("PUT /api/occurrences/{id}", s.protected(s.handleUpdateOccurrence))
	mux.HandleFunc("PATCH /api/occurrences/{id}/amount", s.protected(s.handleUpdateOccurrenceAmount))
	mux.HandleFunc("POST /api/occurrences/{id}/move", s.protected(s.handleMoveOccurrence))
	mux.HandleFunc("DELETE /api/occurrences/{id}", s.protected(s.handleDeleteOccurrence))

	mux.HandleFunc("POST /api/templates", s.protected(s.handleCreateTemplate))
	mux.HandleFunc("GET /api/templates", s.protected(s.handleListTemplates))
	mux.HandleFunc("GET /api/templates/{id}", s.protected(s.handleGetTemplate))
	mux.HandleFunc("PUT /api/templates/{id}", s.protected(s.handleUpdateTemplate))
	mux.HandleFunc("POST /api/templates/{id}/deactivate", s.protected(s.handleDeactivateTemplate))
	mux.HandleFunc("POST /api/templates/{id}/instances", s.protected(s.handleInstantiateTemplate))

	mux.HandleFunc("GET /api/account", s.protected(s.handleGetAccount))
	mux.HandleFunc("PUT /api/account/balance", s.protected(s.handleUpdateAccountBalance))
	mux.HandleFunc("PUT /api/account/name", s.protected(s.handleUpdateAccountName))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           trace.NewMiddleware().Handler(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// protected chains security headers, rate limiting on mutating methods, and
// the owner requirement in front of a handler.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		ownerID := r.Header.Get(OwnerHeader)
		if ownerID == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing " + OwnerHeader + " header"})
			return
		}

		if r.Method != http.MethodGet && !s.rateLimiter.allow(ownerID) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"owner_id", ownerID,
				"method", r.Method,
				"path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		ctx := context.WithValue(r.Context(), ownerContextKey{}, ownerID)
		next(w, r.WithContext(ctx))
	}
}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerContextKey{}).(string)
	return owner
}

// invalidateOwner drops every cached month view belonging to the owner.
func (s *Server) invalidateOwner(ownerID string) {
	if removed := s.monthCache.DeleteFunc(cache.OwnerPrefix(ownerID)); removed > 0 {
		slog.Debug("Invalidated cached month views",
			"owner_id", ownerID,
			"removed", removed)
	}
}

// Shutdown stops the cleanup goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
