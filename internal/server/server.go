// Package server serves the generated site over HTTP with live reload, build
// status and metrics endpoints.
package server

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	ferrors "git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/history"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
	"git.home.luguber.info/inful/mdsite/internal/rebuild"
	smw "git.home.luguber.info/inful/mdsite/internal/server/middleware"
)

// DefaultAddress is where the site is served unless configured otherwise.
const DefaultAddress = "0.0.0.0:8080"

// Options wires the server to the rest of the process. Only OutputDir is required.
type Options struct {
	Address    string
	OutputDir  string
	LiveReload bool
	// Status feeds /api/status and the build-failed page.
	Status *rebuild.Status
	// History feeds /api/builds; nil disables the endpoint.
	History history.Store
	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Server serves the output directory.
type Server struct {
	opts         Options
	logger       *slog.Logger
	hub          *LiveReloadHub
	errorAdapter *ferrors.HTTPErrorAdapter
	srv          *http.Server
	ln           net.Listener
}

// New constructs a server. Nothing is bound until Start.
func New(opts Options) *Server {
	if opts.Address == "" {
		opts.Address = DefaultAddress
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		opts:         opts,
		logger:       opts.Logger,
		errorAdapter: ferrors.NewHTTPErrorAdapter(opts.Logger),
	}
	if opts.LiveReload {
		s.hub = NewLiveReloadHub(opts.Logger)
	}
	return s
}

// Handler returns the complete handler tree, wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/builds", s.handleBuilds)
	if s.opts.Metrics != nil {
		mux.Handle("GET /metrics", s.opts.Metrics)
	}
	if s.hub != nil {
		mux.Handle("GET /livereload", s.hub)
		mux.HandleFunc("GET /livereload.js", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			_, _ = w.Write([]byte(LiveReloadScript))
		})
	}

	var site http.Handler = http.HandlerFunc(s.handleSite)
	if s.hub != nil {
		site = injectLiveReload(site)
	}
	mux.Handle("/", site)

	return smw.Chain(s.logger, s.errorAdapter)(mux)
}

// handleSite serves files from the output directory. Until a build has
// succeeded, a failed build is shown instead of a 404.
func (s *Server) handleSite(w http.ResponseWriter, r *http.Request) {
	if st := s.opts.Status; st != nil && !st.HasGoodBuild() && st.LastError() != nil {
		s.renderBuildErrorPage(w, st.LastError())
		return
	}
	// The directory is resolved per request so a swapped output tree is picked up.
	http.FileServer(http.Dir(s.opts.OutputDir)).ServeHTTP(w, r)
}

var buildErrorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="en">
    <head>
        <meta charset="utf-8">
        <title>Build failed</title>
    </head>
    <body>
        <h1>Build failed</h1>
        <p>Fix the error below and save to rebuild.</p>
        <pre>{{.}}</pre>
    </body>
</html>
`))

func (s *Server) renderBuildErrorPage(w http.ResponseWriter, buildErr error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	if err := buildErrorPage.Execute(w, buildErr.Error()); err != nil {
		s.logger.Debug("write build error page", logfields.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.opts.Status == nil {
		s.errorAdapter.WriteErrorResponse(w, r, ferrors.NotFoundError("build status unavailable").Build())
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Status.Snapshot())
}

func (s *Server) handleBuilds(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		s.errorAdapter.WriteErrorResponse(w, r, ferrors.NotFoundError("build history is disabled").Build())
		return
	}
	limit := history.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.errorAdapter.WriteErrorResponse(w, r, ferrors.ValidationError("limit must be a positive integer").
				WithContext("limit", raw).
				Build())
			return
		}
		limit = n
	}
	recs, err := s.opts.History.Recent(r.Context(), limit)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if recs == nil {
		recs = []history.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// BuildHook notifies live reload clients after each build.
func (s *Server) BuildHook() rebuild.Hook {
	return func(_ context.Context, res rebuild.Result) error {
		if s.hub == nil {
			return nil
		}
		if res.Err != nil {
			s.hub.Broadcast("error-" + res.ID)
		} else {
			s.hub.Broadcast(res.ID)
		}
		return nil
	}
}

// Start binds the listen address and serves in the background. Binding
// happens synchronously so an address in use fails fast.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.opts.Address)
	if err != nil {
		return ferrors.NetworkError("bind site server").WithCause(err).WithContext("address", s.opts.Address).Build()
	}
	s.ln = ln
	// No write timeout: live reload streams stay open.
	s.srv = &http.Server{
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Site server error", logfields.Error(err))
		}
	}()
	s.logger.Info("Serving site", logfields.Address(ln.Addr().String()), logfields.Output(s.opts.OutputDir))
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.opts.Address
}

// Stop closes live reload streams and shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Shutdown()
	}
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return ferrors.NetworkError("shut down site server").WithCause(err).Build()
	}
	s.logger.Info("Site server stopped")
	return nil
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// with a 5 second grace period.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Stop(shutdownCtx)
}
