// Package broadcast mirrors a telemetry.Channel's snapshot to
// spectators outside the TTY: a one-shot JSON poll endpoint and a
// websocket stream, both read-only with respect to the optimizer.
// This is additive to the Progress Display (display package); it never
// participates in bracket or classification logic.
package broadcast

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/b-samee/MaximumTakeOffMassOptimizer/telemetry"
)

// Document is the JSON shape served by both /snapshot and /stream.
type Document struct {
	Epoch     int                  `json:"epoch"`
	MassLower float64              `json:"mass_lower"`
	MassUpper float64              `json:"mass_upper"`
	Masses    []float64            `json:"masses"`
	Cells     []telemetry.Snapshot `json:"cells"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server serves the current Document over HTTP. Publish is called by
// the optimizer's poll loop exactly when it refreshes the TTY display;
// Server never polls the channel itself.
type Server struct {
	mu      sync.RWMutex
	current Document
	router  *mux.Router
	srv     *http.Server
}

// NewServer builds a Server; call ListenAndServe to actually bind.
func NewServer() *Server {
	s := &Server{}
	r := mux.NewRouter()
	r.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)
	s.router = r
	return s
}

// Publish updates the document spectators will see. Safe to call from
// the optimizer's poll loop on every tick.
func (s *Server) Publish(doc Document) {
	s.mu.Lock()
	s.current = doc
	s.mu.Unlock()
}

func (s *Server) snapshot() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshot())
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		if err := conn.WriteJSON(s.snapshot()); err != nil {
			return
		}
	}
}

// ListenAndServe binds addr and blocks until the server stops or errors.
// Intended to be run in its own goroutine by the caller.
func (s *Server) ListenAndServe(addr string) error {
	s.srv = &http.Server{Addr: addr, Handler: s.router}
	return s.srv.ListenAndServe()
}

// Shutdown stops accepting new connections, logging any shutdown error.
func (s *Server) Shutdown() {
	if s.srv == nil {
		return
	}
	if err := s.srv.Close(); err != nil {
		log.Printf("telemetry broadcast: shutdown error: %s", err)
	}
}
