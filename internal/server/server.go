package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/blockql/internal/session"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 1 << 20

const shutdownTimeout = 5 * time.Second

// Options configures a Server. Zero fields fall back to defaults.
type Options struct {
	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string

	Logger       *slog.Logger // default: slog.Default()
	MaxBodyBytes int64        // default: DefaultMaxBodyBytes
}

// Server routes HTTP requests to one shared session.
type Server struct {
	session *session.Session
	logger  *slog.Logger
	maxBody int64
	router  chi.Router
}

// New creates a Server for s.
func New(s *session.Session, opts Options) *Server {
	srv := &Server{
		session: s,
		logger:  opts.Logger,
		maxBody: opts.MaxBodyBytes,
	}
	if srv.logger == nil {
		srv.logger = slog.Default()
	}
	if srv.maxBody <= 0 {
		srv.maxBody = DefaultMaxBodyBytes
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RequestLogger(&chimw.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(srv.logger.Handler(), slog.LevelDebug),
		NoColor: true,
	}))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/schema", srv.handleSchema)
		r.Get("/joins", srv.handleJoins)
		r.Post("/toolbox", srv.handleToolbox)
		r.Post("/emit", srv.handleEmit)
		r.Post("/preview", srv.handlePreview)
		r.Get("/queries", srv.handleListQueries)
		r.Post("/queries", srv.handleSaveQuery)
		r.Get("/queries/{id}", srv.handleGetQuery)
		r.Delete("/queries/{id}", srv.handleDeleteQuery)
	})

	srv.router = r
	return srv
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	eg, egctx := errgroup.WithContext(ctx)

	httpSrv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return egctx },
	}
	s.logger.Info("http api listening", "addr", ln.Addr().String())

	eg.Go(func() error {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.logger.Info("http api stopped")
		return nil
	})

	return eg.Wait()
}
