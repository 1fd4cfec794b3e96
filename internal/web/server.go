package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/presetvault/internal/config"
	"github.com/hpungsan/presetvault/internal/logging"
	"github.com/hpungsan/presetvault/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates and configures the HTTP server for the preset library UI.
func NewServer(repo *ops.Repository, cfg *config.Config, version, bind string, port int) (*http.Server, error) {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	h := &Handlers{
		repo:     repo,
		cfg:      cfg,
		renderer: NewRenderer(templateSub, version),
	}

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           h.handler(staticSub),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// handler wraps the routes with security headers and rejects cross-site
// requests on every state-changing method.
func (h *Handlers) handler(static fs.FS) http.Handler {
	return securityHeaders(http.NewCrossOriginProtection().Handler(h.routes(static)))
}

// routes registers every handler using Go 1.22+ pattern syntax.
func (h *Handlers) routes(static fs.FS) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/presets", http.StatusFound)
	})
	mux.HandleFunc("GET /presets", h.HandleList)
	mux.HandleFunc("GET /presets/{id}", h.HandleDetail)
	mux.HandleFunc("GET /presets/{id}/download", h.HandleDownload)
	mux.HandleFunc("POST /presets/{id}/favorite", h.HandleFavorite)
	mux.HandleFunc("POST /presets/{id}/delete", h.HandleDelete)
	mux.HandleFunc("DELETE /presets/{id}", h.HandleDelete)
	mux.HandleFunc("GET /favorites", h.HandleFavorites)
	mux.HandleFunc("GET /recent", h.HandleRecent)
	mux.HandleFunc("GET /collections", h.HandleCollections)
	mux.HandleFunc("GET /collections/{id}", h.HandleCollection)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	return mux
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logging.Info().Str("addr", srv.Addr).Msg("preset library UI running")

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logging.Warn().Str("addr", srv.Addr).Msg("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logging.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
