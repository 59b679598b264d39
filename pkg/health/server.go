// Package health serves the /health and /ready endpoints for process
// supervision.
package health

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type Server struct {
	srv *http.Server
}

func NewServer(host string, port int) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", handle)
	mux.HandleFunc("/ready", handle)

	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func handle(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

// Start blocks serving until Stop is called; it returns
// http.ErrServerClosed on a clean shutdown.
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) {
	_ = s.srv.Shutdown(ctx)
}
