// Package server exposes the chat pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcpchat/notion-chat/pkg/chat"
	"github.com/mcpchat/notion-chat/pkg/config"
	"github.com/mcpchat/notion-chat/pkg/logging"
	"github.com/mcpchat/notion-chat/pkg/mcp"
	"github.com/mcpchat/notion-chat/pkg/sse"
	"github.com/mcpchat/notion-chat/pkg/version"
)

const (
	// ChatStreamPath is the streaming chat endpoint.
	ChatStreamPath = "/api/v1/chat/stream"
	// HealthPath is the health check endpoint.
	HealthPath = "/health"

	maxRequestBytes = 1 << 20
)

// ChatStreamer runs one chat request against a sink.
type ChatStreamer interface {
	Stream(ctx context.Context, req chat.ChatRequest, sink chat.Sink) error
}

// StatusReporter reports the state of the shared MCP sessions.
type StatusReporter interface {
	Status() mcp.Status
}

// Options holds the HTTP settings of the server.
type Options struct {
	Addr            string
	AppName         string
	PingInterval    time.Duration
	ShutdownTimeout time.Duration
}

// OptionsFromSettings derives server options from the loaded settings.
func OptionsFromSettings(s *config.Settings) Options {
	return Options{
		Addr:            s.Addr(),
		AppName:         s.AppName,
		PingInterval:    s.PingInterval,
		ShutdownTimeout: s.ShutdownTimeout,
	}
}

// Server serves the chat stream and health endpoints.
type Server struct {
	opts   Options
	chat   ChatStreamer
	mcp    StatusReporter
	logger logging.Logger
	newID  func() string
}

// New creates a server. status may be nil, in which case health reports
// the MCP sessions as disconnected.
func New(opts Options, streamer ChatStreamer, status StatusReporter) *Server {
	if opts.PingInterval <= 0 {
		opts.PingInterval = sse.DefaultPingInterval
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		opts:   opts,
		chat:   streamer,
		mcp:    status,
		logger: logging.NewComponentLogger("server"),
		newID:  uuid.NewString,
	}
}

// Handler returns the routed handler wrapped in CORS and access logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+ChatStreamPath, s.handleChatStream)
	mux.HandleFunc("GET "+HealthPath, s.handleHealth)
	return s.accessLog(cors(mux))
}

// ListenAndServe listens on the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully. Open streams are cancelled so they can send their StreamEnd.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	baseCtx, cancelStreams := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelStreams()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelStreams)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server", "timeout", s.opts.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	requestID := s.newID()
	w.Header().Set("X-Request-ID", requestID)
	log := s.logger.With("request_id", requestID)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		log.Info("failed to read chat request", "error", err)
		writeError(w, status, err.Error(), chat.KindInvalidInput)
		return
	}
	req, err := chat.DecodeRequest(body)
	if err != nil {
		log.Info("rejected chat request", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error(), chat.ErrorKind(err))
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		log.Error("cannot stream response", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error(), chat.KindExecutionFailure)
		return
	}

	ctx, cancel := context.WithCancel(chat.WithRequestID(r.Context(), requestID))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		writer.KeepAlive(ctx, s.opts.PingInterval)
	}()

	if err := s.chat.Stream(ctx, req, writer); err != nil {
		log.Debug("client went away during stream", "error", err)
	}
	cancel()
	wg.Wait()
}

type healthResponse struct {
	Status    string `json:"status"`
	AppName   string `json:"app_name"`
	Version   string `json:"version"`
	MCPStatus string `json:"mcp_status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := mcp.StatusDisconnected
	if s.mcp != nil {
		status = s.mcp.Status()
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		AppName:   s.opts.AppName,
		Version:   version.Version,
		MCPStatus: string(status),
	})
}

type errorResponse struct {
	Detail    string    `json:"detail"`
	ErrorType string    `json:"error_type,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func writeError(w http.ResponseWriter, status int, detail, errorType string) {
	writeJSON(w, status, errorResponse{
		Detail:    detail,
		ErrorType: errorType,
		Timestamp: time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
