package web

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/cjeanneret/GoVimba/internal/debug"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server for backend on addr. hub feeds the websocket
// frame streams and must be registered as a sink of the host loop.
func NewServer(addr string, backend Backend, broadcaster *StatusBroadcaster, hub *FrameHub, jpegQuality int) (*Server, error) {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("web: static files: %w", err)
	}
	return &Server{
		addr:     addr,
		handlers: NewHandlers(backend, broadcaster, hub, jpegQuality, subFS),
	}, nil
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	h := s.handlers
	mux := http.NewServeMux()

	mux.HandleFunc("GET /cameras", h.HandleCameras)
	mux.HandleFunc("POST /cameras/{id}/start", h.HandleStart)
	mux.HandleFunc("POST /cameras/{id}/stop", h.HandleStop)
	mux.HandleFunc("GET /cameras/{id}/frame.jpg", h.HandleFrame)
	mux.HandleFunc("GET /cameras/{id}/features", h.HandleFeatures)
	mux.HandleFunc("PUT /cameras/{id}/features/{name}", h.HandleSetFeature)
	mux.HandleFunc("GET /cameras/{id}/ws", h.HandleFrameStream)
	mux.HandleFunc("GET /status/stream", h.HandleStatusStream)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(h.staticFS))))
	mux.HandleFunc("GET /{$}", h.ServeIndex) // exact match for root only

	return mux
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		debug.Info("web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
