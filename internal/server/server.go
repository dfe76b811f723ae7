package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"
)

// There is no write timeout: /video_feed and /ws hold their response open.
const (
	defaultPort       = "8080"
	maxHeaderBytes    = 1 << 20 // 1 MB
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	idleTimeout       = 60 * time.Second
)

// Server owns the dashboard's HTTP listener.
type Server struct {
	httpServer *http.Server
}

// New prepares a server for port, which may be "8080", ":8080" or "host:port".
func New(port string, handler http.Handler) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              listenAddr(port),
		Handler:           handler,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
	}}
}

func listenAddr(port string) string {
	switch {
	case port == "":
		return ":" + defaultPort
	case strings.Contains(port, ":"):
		return port
	default:
		return ":" + port
	}
}

func (s *Server) Addr() string { return s.httpServer.Addr }

// Run listens on Addr and blocks. It returns nil after Shutdown.
func (s *Server) Run() error {
	return ignoreClosed(s.httpServer.ListenAndServe())
}

// Serve is Run on an existing listener.
func (s *Server) Serve(l net.Listener) error {
	return ignoreClosed(s.httpServer.Serve(l))
}

// OnShutdown registers f to run when Shutdown starts, e.g. to close
// hijacked websocket connections that Shutdown does not track.
func (s *Server) OnShutdown(f func()) {
	s.httpServer.RegisterOnShutdown(f)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
