package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"
)

// StatusServer serves /health and Prometheus /metrics over HTTP.
type StatusServer struct {
	game      *Game
	metrics   *Metrics
	mux       *http.ServeMux
	httpSrv   *http.Server
	startTime time.Time
}

// NewStatusServer creates the HTTP status endpoint for g on addr.
func NewStatusServer(g *Game, m *Metrics, addr string) *StatusServer {
	ss := &StatusServer{
		game:      g,
		metrics:   m,
		mux:       http.NewServeMux(),
		startTime: time.Now(),
	}
	ss.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           ss.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Health endpoint
	ss.mux.HandleFunc("GET /health", ss.handleHealth)

	// Prometheus metrics endpoint
	ss.mux.Handle("GET /metrics", m.Handler())
	return ss
}

// Handler returns the mux, for tests.
func (ss *StatusServer) Handler() http.Handler { return ss.mux }

// Start begins listening in the background.
func (ss *StatusServer) Start() {
	go func() {
		log.Printf("web: status endpoint on %s", ss.httpSrv.Addr)
		if err := ss.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("web: status server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the HTTP server.
func (ss *StatusServer) Stop(ctx context.Context) error {
	return ss.httpSrv.Shutdown(ctx)
}

func (ss *StatusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	clans := 0
	if ss.game.Clans != nil {
		clans = ss.game.Clans.Roster.Len()
	}
	commands, sent := 0, 0
	for _, d := range ss.game.Conns.AllDescriptors() {
		c, b := d.Stats()
		commands += c
		sent += b
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":            "ok",
		"version":           Version,
		"uptime_seconds":    time.Since(ss.startTime).Seconds(),
		"players_connected": ss.game.Conns.PlayerCount(),
		"clans":             clans,
		"commands_entered":  commands,
		"bytes_sent":        sent,
	})
}
