// Package ingest accepts live meeting transcript chunks over WebSocket
// and feeds them into a running session.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/callistohq/callisto/internal/buildinfo"
)

// QueryProcessor handles a routed line of input. *session.Session
// satisfies this.
type QueryProcessor interface {
	ProcessQuery(ctx context.Context, query string) string
}

// Chunk is one transcript fragment pushed by a capture client. Source
// is "SCREEN" for on-screen text and "MIC" for voice.
type Chunk struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Reply acknowledges one processed chunk.
type Reply struct {
	Status   string `json:"status"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Server is the transcript ingest endpoint.
type Server struct {
	address   string
	port      int
	processor QueryProcessor
	logger    *slog.Logger
	server    *http.Server
	upgrader  websocket.Upgrader
}

// NewServer creates an ingest server bound to address:port.
func NewServer(address string, port int, processor QueryProcessor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address:   address,
		port:      port,
		processor: processor,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Start begins serving. It blocks until the listener fails or Shutdown
// is called.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /transcript", s.handleTranscript)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("transcript ingest listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	}); err != nil {
		s.logger.Debug("failed to write health response", "error", err)
	}
}

// handleTranscript upgrades the connection and pumps chunks into the
// session until the client goes away.
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	s.logger.Info("transcript client connected", "remote", r.RemoteAddr)

	for {
		var chunk Chunk
		if err := conn.ReadJSON(&chunk); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("transcript client error", "remote", r.RemoteAddr, "error", err)
			} else {
				s.logger.Info("transcript client disconnected", "remote", r.RemoteAddr)
			}
			return
		}

		reply := s.process(r.Context(), chunk)
		if err := conn.WriteJSON(reply); err != nil {
			s.logger.Warn("failed to write reply", "remote", r.RemoteAddr, "error", err)
			return
		}
	}
}

// process validates and routes a chunk through the session's normal
// input path, so ingest honors the same vocabulary as the CLI.
func (s *Server) process(ctx context.Context, chunk Chunk) Reply {
	source := strings.ToUpper(strings.TrimSpace(chunk.Source))
	if source != "SCREEN" && source != "MIC" {
		return Reply{Status: "error", Error: fmt.Sprintf("unknown source %q", chunk.Source)}
	}
	if strings.TrimSpace(chunk.Text) == "" {
		return Reply{Status: "error", Error: "empty transcript text"}
	}

	response := s.processor.ProcessQuery(ctx, source+": "+chunk.Text)
	return Reply{Status: "ok", Response: response}
}
