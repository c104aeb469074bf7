// Package api provides the HTTP API for querying realm state.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/talgya/hegemon/internal/actions"
	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/engine"
	"github.com/talgya/hegemon/internal/officials"
	"github.com/talgya/hegemon/internal/persistence"
	"github.com/talgya/hegemon/internal/vassal"
)

const (
	maxSSEConns  = 2
	sseCatchUp   = 50
	maxSpeed     = 1000
	adminPerMin  = 120
	defaultLimit = 50
	maxLimit     = 500
)

// Server serves the realm over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB
	Econ     economy.Economy // Saved alongside the realm when it can report its state
	Hub      *Hub
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
	RelayKey string // Bearer token for the SSE and websocket streams. Empty = streaming disabled.

	// Origins allowed by CORS in addition to the local dev servers.
	CORSOrigins []string

	// Active SSE connection count (atomic).
	sseConns int32
}

// Handler builds the routing table.
func (s *Server) Handler() http.Handler {
	adminLimiter := NewRateLimiter(adminPerMin, time.Minute)
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return s.adminOnly(RateLimitMiddleware(adminLimiter, h))
	}

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/report", s.handleReport)
	mux.HandleFunc("/api/v1/strata", s.handleStrata)
	mux.HandleFunc("/api/v1/stratum/", s.handleStratumDetail)
	mux.HandleFunc("/api/v1/vassals", s.handleVassals)
	mux.HandleFunc("/api/v1/vassal/", s.handleVassalDetail)
	mux.HandleFunc("/api/v1/preview", s.handlePreview)
	mux.HandleFunc("/api/v1/actions", s.handleActions)
	mux.HandleFunc("/api/v1/officials", s.handleOfficials)
	mux.HandleFunc("/api/v1/events", s.handleEvents)

	// Streams (GET, require the relay key).
	mux.HandleFunc("/api/v1/stream", s.handleStream)
	mux.HandleFunc("/api/v1/ws", s.handleWs)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", admin(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", admin(s.handleSnapshot))
	mux.HandleFunc("/api/v1/action", admin(s.handleAction))
	mux.HandleFunc("/api/v1/tax", admin(s.handleTax))
	mux.HandleFunc("/api/v1/subsidy", admin(s.handleSubsidy))
	mux.HandleFunc("/api/v1/official", admin(s.handleOfficial))
	mux.HandleFunc("/api/v1/official/dismiss", admin(s.handleDismiss))
	mux.HandleFunc("/api/v1/vassal/establish", admin(s.handleEstablish))
	mux.HandleFunc("/api/v1/vassal/release", admin(s.handleRelease))
	mux.HandleFunc("/api/v1/vassal/measure", admin(s.handleMeasure))
	mux.HandleFunc("/api/v1/vassal/governor", admin(s.handleGovernor))
	mux.HandleFunc("/api/v1/vassal/policy", admin(s.handlePolicy))

	return corsMiddleware(s.CORSOrigins, mux)
}

// Start begins serving the HTTP API in a goroutine. The server shuts down
// when ctx is done.
func (s *Server) Start(ctx context.Context) {
	if s.Hub != nil {
		go s.Hub.Run(ctx)
		go s.Hub.Relay(ctx, s.Sim)
	}

	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "relay_auth", s.RelayKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowedOrigins[origin] = true
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

func bearer(r *http.Request, key string) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == key
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no HEGEMON_ADMIN_KEY set)", http.StatusForbidden)
				return
			}

			if !bearer(r, s.AdminKey) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

// relayOnly checks the relay key on a stream request and writes the error
// response if it fails. Browsers cannot set headers on websockets, so the
// key may also come as ?key=.
func (s *Server) relayOnly(w http.ResponseWriter, r *http.Request) bool {
	if s.RelayKey == "" {
		http.Error(w, "streaming disabled (no relay key)", http.StatusForbidden)
		return false
	}
	if !bearer(r, s.RelayKey) && r.URL.Query().Get("key") != s.RelayKey {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Sim.Status()
	status := map[string]any{
		"name":            "Hegemon",
		"day":             st.Day,
		"date":            st.Date,
		"era":             st.Era,
		"treasury":        st.Treasury,
		"stability":       st.Stability,
		"at_war":          st.AtWar,
		"strata":          st.Strata,
		"rebelling":       st.Rebelling,
		"active_demands":  st.ActiveDemands,
		"active_promises": st.ActivePromises,
		"vassals":         st.Vassals,
		"last_net":        st.LastNet,
	}
	if s.Eng != nil {
		status["speed"] = s.Eng.Speed()
		status["running"] = s.Eng.Running()
	}
	writeJSON(w, status)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.LastReport())
}

func (s *Server) handleStrata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Strata())
}

func (s *Server) handleStratumDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/stratum/")
	if id == "" {
		http.Error(w, "stratum id required", http.StatusBadRequest)
		return
	}
	v, err := s.Sim.Stratum(economy.StratumID(id))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, v)
}

func (s *Server) handleVassals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Vassals())
}

func (s *Server) handleVassalDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/vassal/")
	if id == "" {
		http.Error(w, "nation id required", http.StatusBadRequest)
		return
	}
	v, err := s.Sim.Vassal(economy.NationID(id))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, v)
}

// handlePreview scores a governor without appointing them. The official is
// either ?official=<id> or given by attributes.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	nation := economy.NationID(q.Get("nation"))
	mandate, err := vassal.ParseMandate(q.Get("mandate"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var o officials.Official
	if id := officials.OfficialID(q.Get("official")); id != "" {
		found := false
		for _, cand := range s.Sim.Officials() {
			if cand.ID == id {
				o, found = cand, true
				break
			}
		}
		if !found {
			writeError(w, fmt.Errorf("%w: %q", engine.ErrUnknownOfficial, id))
			return
		}
	} else {
		o.ID = "preview"
		for name, dst := range map[string]*float64{
			"prestige":       &o.Prestige,
			"administrative": &o.Administrative,
			"military":       &o.Military,
			"loyalty":        &o.Loyalty,
		} {
			if v := q.Get(name); v != "" {
				f, err := strconv.ParseFloat(v, 64)
				if err != nil {
					http.Error(w, fmt.Sprintf("invalid %s", name), http.StatusBadRequest)
					return
				}
				*dst = f
			}
		}
	}

	eff, err := s.Sim.PreviewGovernor(nation, o, mandate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, eff)
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Actions())
}

func (s *Server) handleOfficials(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Officials())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= maxLimit {
			limit = n
		}
	}
	writeJSON(w, s.Sim.Events(limit, r.URL.Query().Get("category")))
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
		if !decode(w, r, &req) {
			return
		}
		if req.Speed < 0 || req.Speed > maxSpeed {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	if err := s.DB.SaveWorldState(s.Sim, s.Econ); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"day":     s.Sim.Day(),
		"message": "snapshot saved",
	})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		Stratum economy.StratumID `json:"stratum"`
		Action  string            `json:"action"`
	}
	if !decode(w, r, &req) {
		return
	}
	out, err := s.Sim.InvokeAction(req.Stratum, req.Action)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, out)
}

func (s *Server) handleTax(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		Stratum    economy.StratumID `json:"stratum"`
		Multiplier float64           `json:"head_tax_multiplier"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Sim.SetHeadTax(req.Stratum, req.Multiplier); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) handleSubsidy(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		Stratum   economy.StratumID `json:"stratum"`
		PerCapita float64           `json:"per_capita"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Sim.SetSubsidy(req.Stratum, req.PerCapita); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) handleOfficial(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var o officials.Official
	if !decode(w, r, &o) {
		return
	}
	if err := s.Sim.PutOfficial(o); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, o)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		ID officials.OfficialID `json:"id"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Sim.DismissOfficial(req.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) handleEstablish(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		Nation economy.NationID `json:"nation"`
		Type   *vassal.Type     `json:"type"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Type == nil {
		http.Error(w, "type required", http.StatusBadRequest)
		return
	}
	v, err := s.Sim.EstablishVassal(req.Nation, *req.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, v)
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		Nation economy.NationID `json:"nation"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Sim.ReleaseVassal(req.Nation); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) handleMeasure(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		Nation  economy.NationID  `json:"nation"`
		Measure *vassal.MeasureID `json:"measure"`
		Active  bool              `json:"active"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Measure == nil {
		http.Error(w, "measure required", http.StatusBadRequest)
		return
	}
	if err := s.Sim.SetMeasure(req.Nation, *req.Measure, req.Active); err != nil {
		writeError(w, err)
		return
	}
	s.writeVassal(w, req.Nation)
}

func (s *Server) handleGovernor(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		Nation   economy.NationID     `json:"nation"`
		Official officials.OfficialID `json:"official"`
		Mandate  *vassal.Mandate      `json:"mandate"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Mandate == nil {
		http.Error(w, "mandate required", http.StatusBadRequest)
		return
	}
	if err := s.Sim.AssignGovernor(req.Nation, req.Official, *req.Mandate); err != nil {
		writeError(w, err)
		return
	}
	s.writeVassal(w, req.Nation)
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req struct {
		Nation economy.NationID `json:"nation"`
		engine.VassalPolicy
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Sim.SetVassalPolicy(req.Nation, req.VassalPolicy); err != nil {
		writeError(w, err)
		return
	}
	s.writeVassal(w, req.Nation)
}

func (s *Server) writeVassal(w http.ResponseWriter, nation economy.NationID) {
	v, err := s.Sim.Vassal(nation)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, v)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.relayOnly(w, r) {
		return
	}

	// Connection limit.
	current := atomic.AddInt32(&s.sseConns, 1)
	if current > maxSSEConns {
		atomic.AddInt32(&s.sseConns, -1)
		http.Error(w, "too many SSE connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.sseConns, -1)

	// SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	subID, ch := s.Sim.Subscribe()
	defer s.Sim.Unsubscribe(subID)

	// Catch-up on recent events.
	for _, e := range s.Sim.Events(sseCatchUp, "") {
		writeSSEEvent(w, e)
	}
	flusher.Flush()

	slog.Info("SSE client connected", "sub_id", subID)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			writeSSEEvent(w, e)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Info("SSE client disconnected", "sub_id", subID)
			return
		}
	}
}

func (s *Server) handleWs(w http.ResponseWriter, r *http.Request) {
	if s.Hub == nil {
		http.Error(w, "websocket disabled", http.StatusServiceUnavailable)
		return
	}
	if !s.relayOnly(w, r) {
		return
	}
	s.Hub.serveWs(w, r)
}

// writeSSEEvent writes a single event in SSE format.
func writeSSEEvent(w http.ResponseWriter, e engine.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", e.Seq, e.Category, data)
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrNotVassal),
		errors.Is(err, engine.ErrUnknownOfficial),
		errors.Is(err, economy.ErrUnknownStratum),
		errors.Is(err, economy.ErrUnknownNation):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrAlreadyVassal),
		errors.Is(err, actions.ErrOnCooldown),
		errors.Is(err, actions.ErrInsufficientFunds),
		errors.Is(err, actions.ErrPrecondition):
		status = http.StatusConflict
	case errors.Is(err, actions.ErrUnknownAction),
		errors.Is(err, economy.ErrOutOfRange),
		errors.Is(err, vassal.ErrUnknownType),
		errors.Is(err, vassal.ErrUnknownMeasure),
		errors.Is(err, vassal.ErrUnknownMandate),
		errors.Is(err, vassal.ErrUnknownPolicy):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrNoPolicy):
		status = http.StatusNotImplemented
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
