// Package api serves a running sketch over HTTP.
// GET endpoints are public (read-only observation).
// POST /api/v1/idea is public but rate-limited; speed and export
// require a bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/mindbike/internal/engine"
	"github.com/talgya/mindbike/internal/persistence"
	"github.com/talgya/mindbike/internal/render"
	"github.com/talgya/mindbike/internal/sketch"
)

// MaxIdeaLen bounds the text accepted by POST /api/v1/idea.
const MaxIdeaLen = 500

// SessionLister is the slice of the store the API reads from.
type SessionLister interface {
	RecentSessions(ctx context.Context, limit int) ([]persistence.SessionInfo, error)
}

// Server serves one session over HTTP.
type Server struct {
	Session   *engine.Session
	Eng       *engine.Engine
	DB        SessionLister // nil disables /sessions
	Port      int
	AdminKey  string // Bearer token for admin POST endpoints. Empty = disabled.
	ExportDir string

	// IdeasPerHour caps POST /api/v1/idea per client. 0 uses the default.
	IdeasPerHour int
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	perHour := s.IdeasPerHour
	if perHour <= 0 {
		perHour = 120
	}
	quota := NewIdeaQuota(perHour, time.Hour)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/trajectory", s.handleTrajectory)
	mux.HandleFunc("/api/v1/trajectory.txt", s.handleTrajectoryText)
	mux.HandleFunc("/api/v1/snapshot.png", s.handleSnapshot)
	mux.HandleFunc("/api/v1/frame.png", s.handleFrame)
	mux.HandleFunc("/api/v1/sessions", s.handleSessions)
	mux.HandleFunc("/api/v1/idea", withQuota(quota, s.handleIdea))

	// Admin endpoints.
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/export", s.adminOnly(s.handleExport))

	return corsMiddleware(mux)
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set MINDBIKE_CORS_ORIGINS to a comma-separated list of extra origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("MINDBIKE_CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no MINDBIKE_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	v := s.Session.View()

	status := map[string]any{
		"name":           "Bicycle for the Mind",
		"session":        s.Session.ID,
		"seed":           s.Session.Seed(),
		"analyzer":       s.Session.AnalyzerName(),
		"phase":          v.Phase.String(),
		"prompt":         v.Phase.Prompt(),
		"frame":          v.Frame,
		"input_locked":   v.InputLocked,
		"in_flight":      v.InFlight,
		"ideas":          len(v.Ideas),
		"total_distance": sketch.TotalDistance(v.Ideas),
		"particles":      len(v.Particles),
		"palette":        len(v.Palette),
		"width":          v.Width,
		"height":         v.Height,
	}
	if s.Eng != nil {
		status["speed"] = s.Eng.Speed()
		status["running"] = s.Eng.Running()
		status["elapsed"] = engine.Elapsed(v.Frame, s.Eng.FPS)
	}
	writeJSON(w, status)
}

func (s *Server) handleTrajectory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.Ideas())
}

func (s *Server) handleTrajectoryText(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := sketch.WriteLog(w, s.Session.Ideas()); err != nil {
		slog.Warn("trajectory write failed", "error", err)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writePNG(w, s.Session.Snapshot())
}

// handleFrame renders the live frame; ?hover=N shows the tooltip for idea N.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	hover := 0
	if q := r.URL.Query().Get("hover"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			http.Error(w, "invalid hover index", http.StatusBadRequest)
			return
		}
		hover = n
	}
	writePNG(w, s.Session.Frame(hover))
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	sessions, err := s.DB.RecentSessions(r.Context(), limit)
	if err != nil {
		slog.Error("list sessions failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, sessions)
}

func (s *Server) handleIdea(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(req.Text) > MaxIdeaLen {
		http.Error(w, fmt.Sprintf("idea must be at most %d bytes", MaxIdeaLen), http.StatusBadRequest)
		return
	}

	// Analysis outlives the request; the session owns its completion.
	_, err := s.Session.Submit(context.WithoutCancel(r.Context()), req.Text)
	switch {
	case errors.Is(err, sketch.ErrEmptyIdea):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, sketch.ErrInputLocked):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		slog.Error("idea submit failed", "error", err)
		http.Error(w, "submit failed", http.StatusInternalServerError)
		return
	}

	slog.Info("idea accepted", "text", sketch.NormalizeIdea(req.Text), "remote", r.RemoteAddr)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]any{"accepted": true, "phase": s.Session.View().Phase.String()})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "engine not available", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 10 {
			http.Error(w, "speed must be 0-10", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	out, err := s.Session.Export(s.ExportDir)
	if err != nil {
		slog.Error("export failed", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, out)
}

func writePNG(w http.ResponseWriter, img image.Image) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := render.EncodePNG(w, img); err != nil {
		slog.Warn("png encode failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
