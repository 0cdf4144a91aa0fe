package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Router is what [Dashboard.Register] needs to mount its endpoints.
type Router interface {
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	http.Handler
}

// APIRouter mounts dashboard endpoints on an [http.ServeMux] using "METHOD /path" patterns.
// Requests with a known path but another method get 405 from the mux.
type APIRouter struct {
	mux   *http.ServeMux
	chain []Middleware
}

func NewAPIRouter() *APIRouter {
	return &APIRouter{mux: http.NewServeMux()}
}

// Use appends to the chain. The first middleware added sees the request first.
func (r *APIRouter) Use(middleware ...Middleware) {
	r.chain = append(r.chain, middleware...)
}

// Handle wraps handler in the current chain and mounts it for method and path.
func (r *APIRouter) Handle(method, path string, handler http.Handler) {
	for i := len(r.chain) - 1; i >= 0; i-- {
		handler = r.chain[i](handler)
	}
	r.mux.Handle(method+" "+path, handler)
}

func (r *APIRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// NewMockHandler builds the router serving d with request logging and panic recovery.
func NewMockHandler(d *Dashboard, logger *log.Logger) *APIRouter {
	r := NewAPIRouter()
	r.Use(Recover(logger), RequestLogger(logger))
	d.Register(r)
	return r
}

// ListenAndServe serves h on addr until ctx is done, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		logger.Info("server stopped")
		return nil
	}
}
