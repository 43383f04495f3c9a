package http

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"spendlog/internal/config"
	"spendlog/internal/middleware/ratelimit"
	"spendlog/internal/middleware/security"
	"spendlog/internal/middleware/trace"
	"spendlog/internal/services"
	appweb "spendlog/web"
)

// maxBodyBytes caps JSON request bodies. Expense payloads are small; anything
// larger is rejected with 413.
const maxBodyBytes = 16 << 10

// Server wraps http.Server with the expense routes, middleware chain, and
// embedded web client.
type Server struct {
	http.Server

	cfg          *config.Config
	service      *services.ExpenseService
	limiter      *ratelimit.Limiter
	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg *config.Config, service *services.ExpenseService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		cfg:     cfg,
		service: service,
		limiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		started: time.Now(),
	}

	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Unmatched methods and paths under /api answer with the JSON envelope
	// instead of the mux's plain-text defaults.
	mux.HandleFunc("/api/", s.handleNotFound)
	mux.HandleFunc("/health", s.handleNotFound)

	// Web client (served from embedded FS).
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
		mux.Handle("GET /{$}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.ServeFileFS(w, r, appweb.StaticFS, "static/index.html")
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}
	mux.HandleFunc("/", s.handleNotFound)

	var handler http.Handler = mux
	handler = s.withBodyLimit(handler)
	handler = s.withWriteRateLimit(handler)
	handler = s.withRecovery(handler)
	handler = s.withCORS(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = trace.Middleware(handler)

	s.Server = http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        handler,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	return s
}

// Shutdown stops the rate limiter cleanup goroutine and drains the HTTP
// server. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.AllowedOrigin)
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, X-Requested-With")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				stack := debug.Stack()
				slog.ErrorContext(r.Context(), "Panic recovered",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
				)
				env := errorEnvelope{Success: false, Message: "Internal Server Error"}
				if s.cfg.IsDevelopment() {
					env.Stack = fmt.Sprintf("%v\n%s", rec, stack)
				}
				writeJSON(w, http.StatusInternalServerError, env)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withWriteRateLimit throttles mutating requests only; reads stay unmetered.
func (s *Server) withWriteRateLimit(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(trace.ClientIP, s.handleRateLimited)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			limited.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (s *Server) withBodyLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}
