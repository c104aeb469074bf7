package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/engine"
	"github.com/talgya/hegemon/internal/officials"
	"github.com/talgya/hegemon/internal/persistence"
	"github.com/talgya/hegemon/internal/vassal"
)

const testAdminKey = "crown-seal"

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	model := economy.NewModel(economy.ModelState{
		Seed:    3,
		BaseTax: 2,
		Player:  economy.PlayerSnapshot{Treasury: 2000, Wealth: 40000, Military: 50, Stability: 70},
		Prices:  map[economy.Resource]float64{economy.ResGrain: 1},
		Strata: map[economy.StratumID]*economy.StratumProfile{
			"peasants": {BaseIncome: 8, HeadTaxMultiplier: 1, Influence: 10, Approval: 45},
		},
		Nations: map[economy.NationID]*economy.NationProfile{
			"vel": {Wealth: 6000, Military: 10, Satisfaction: map[economy.SocialClass]float64{economy.ClassCommoner: 50}},
		},
	})
	sim, err := engine.New(engine.Options{
		Economy: model,
		Officials: officials.NewRegistry([]officials.Official{
			{ID: "aldric", Name: "Aldric", Prestige: 60, Administrative: 50, Military: 40, Loyalty: 70},
		}),
	})
	require.NoError(t, err)
	sim.TickDay(1)

	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := &Server{Sim: sim, DB: db, Econ: model, AdminKey: testAdminKey, RelayKey: "relay"}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func post(t *testing.T, ts *httptest.Server, path, key, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestStatus(t *testing.T) {
	_, ts := newTestServer(t)

	resp := get(t, ts, "/api/v1/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, "Hegemon", body["name"])
	assert.EqualValues(t, 1, body["day"])
	assert.EqualValues(t, 1, body["strata"])
}

func TestStratumLookup(t *testing.T) {
	_, ts := newTestServer(t)

	resp := get(t, ts, "/api/v1/stratum/peasants")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var v engine.StratumView
	decodeBody(t, resp, &v)
	assert.Equal(t, economy.StratumID("peasants"), v.Stratum)
	assert.NotEmpty(t, v.Actions)

	assert.Equal(t, http.StatusNotFound, get(t, ts, "/api/v1/stratum/monks").StatusCode)
	assert.Equal(t, http.StatusNotFound, get(t, ts, "/api/v1/vassal/vel").StatusCode)
}

func TestAdminAuth(t *testing.T) {
	s, ts := newTestServer(t)
	body := `{"stratum":"peasants","action":"propaganda"}`

	assert.Equal(t, http.StatusUnauthorized, post(t, ts, "/api/v1/action", "", body).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, post(t, ts, "/api/v1/action", "wrong", body).StatusCode)

	s.AdminKey = ""
	assert.Equal(t, http.StatusForbidden, post(t, ts, "/api/v1/action", testAdminKey, body).StatusCode)
}

func TestActionErrors(t *testing.T) {
	_, ts := newTestServer(t)

	resp := post(t, ts, "/api/v1/action", testAdminKey, `{"stratum":"peasants","action":"propaganda"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]any
	decodeBody(t, resp, &out)
	assert.EqualValues(t, 200, out["cost"])

	// Cooldown, then a stage precondition on a calm stratum.
	assert.Equal(t, http.StatusConflict,
		post(t, ts, "/api/v1/action", testAdminKey, `{"stratum":"peasants","action":"propaganda"}`).StatusCode)
	assert.Equal(t, http.StatusConflict,
		post(t, ts, "/api/v1/action", testAdminKey, `{"stratum":"peasants","action":"crackdown"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest,
		post(t, ts, "/api/v1/action", testAdminKey, `{"stratum":"peasants","action":"bribe"}`).StatusCode)
	assert.Equal(t, http.StatusNotFound,
		post(t, ts, "/api/v1/action", testAdminKey, `{"stratum":"monks","action":"propaganda"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest,
		post(t, ts, "/api/v1/action", testAdminKey, `{not json`).StatusCode)

	resp = get(t, ts, "/api/v1/events?category=action")
	var events []engine.Event
	decodeBody(t, resp, &events)
	assert.Len(t, events, 1)
}

func TestVassalRoutes(t *testing.T) {
	_, ts := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest,
		post(t, ts, "/api/v1/vassal/establish", testAdminKey, `{"nation":"vel","type":"dominion"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest,
		post(t, ts, "/api/v1/vassal/establish", testAdminKey, `{"nation":"vel"}`).StatusCode)
	assert.Equal(t, http.StatusNotFound,
		post(t, ts, "/api/v1/vassal/establish", testAdminKey, `{"nation":"atlantis","type":"puppet"}`).StatusCode)

	resp := post(t, ts, "/api/v1/vassal/establish", testAdminKey, `{"nation":"vel","type":"tributary"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, http.StatusConflict,
		post(t, ts, "/api/v1/vassal/establish", testAdminKey, `{"nation":"vel","type":"puppet"}`).StatusCode)

	resp = post(t, ts, "/api/v1/vassal/measure", testAdminKey, `{"nation":"vel","measure":"garrison","active":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var v engine.VassalView
	decodeBody(t, resp, &v)
	assert.True(t, v.Measures[vassal.MeasureGarrison].Active)

	resp = post(t, ts, "/api/v1/vassal/governor", testAdminKey, `{"nation":"vel","official":"aldric","mandate":"pacify"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &v)
	assert.Equal(t, "Aldric", v.GovernorName)
	require.NotNil(t, v.Governor)

	assert.Equal(t, http.StatusNotFound,
		post(t, ts, "/api/v1/vassal/governor", testAdminKey, `{"nation":"vel","official":"nobody","mandate":"pacify"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest,
		post(t, ts, "/api/v1/vassal/policy", testAdminKey, `{"nation":"vel","tribute_rate":3}`).StatusCode)
	assert.Equal(t, http.StatusOK,
		post(t, ts, "/api/v1/vassal/policy", testAdminKey, `{"nation":"vel","labor":"free","tribute_rate":1.5}`).StatusCode)

	resp = get(t, ts, "/api/v1/preview?nation=vel&mandate=exploit&official=aldric")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = get(t, ts, "/api/v1/preview?nation=vel&mandate=exploit&prestige=90&loyalty=20")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, http.StatusBadRequest, get(t, ts, "/api/v1/preview?nation=vel&mandate=plunder").StatusCode)
	assert.Equal(t, http.StatusBadRequest, get(t, ts, "/api/v1/preview?nation=vel&mandate=pacify&loyalty=high").StatusCode)

	assert.Equal(t, http.StatusOK,
		post(t, ts, "/api/v1/vassal/release", testAdminKey, `{"nation":"vel"}`).StatusCode)
	assert.Equal(t, http.StatusNotFound,
		post(t, ts, "/api/v1/vassal/release", testAdminKey, `{"nation":"vel"}`).StatusCode)
}

func TestTaxAndSnapshot(t *testing.T) {
	s, ts := newTestServer(t)

	assert.Equal(t, http.StatusOK,
		post(t, ts, "/api/v1/tax", testAdminKey, `{"stratum":"peasants","head_tax_multiplier":1.4}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest,
		post(t, ts, "/api/v1/tax", testAdminKey, `{"stratum":"peasants","head_tax_multiplier":9}`).StatusCode)
	assert.Equal(t, http.StatusNotFound,
		post(t, ts, "/api/v1/subsidy", testAdminKey, `{"stratum":"monks","per_capita":2}`).StatusCode)

	assert.Equal(t, http.StatusMethodNotAllowed, get(t, ts, "/api/v1/snapshot").StatusCode)
	require.Equal(t, http.StatusOK, post(t, ts, "/api/v1/snapshot", testAdminKey, "").StatusCode)
	assert.True(t, s.DB.HasWorldState())
	_, ok, err := s.DB.LoadEconomy()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSpeedNeedsEngine(t *testing.T) {
	s, ts := newTestServer(t)
	assert.Equal(t, http.StatusServiceUnavailable,
		post(t, ts, "/api/v1/speed", testAdminKey, `{"speed":5}`).StatusCode)

	s.Eng = engine.NewEngine(1, time.Hour, 1)
	assert.Equal(t, http.StatusBadRequest,
		post(t, ts, "/api/v1/speed", testAdminKey, `{"speed":5000}`).StatusCode)
	resp := post(t, ts, "/api/v1/speed", testAdminKey, `{"speed":5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5.0, s.Eng.Speed())
}

func TestStreamAuth(t *testing.T) {
	s, ts := newTestServer(t)
	assert.Equal(t, http.StatusUnauthorized, get(t, ts, "/api/v1/stream").StatusCode)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, ts, "/api/v1/ws?key=relay").StatusCode)

	s.RelayKey = ""
	assert.Equal(t, http.StatusForbidden, get(t, ts, "/api/v1/stream").StatusCode)
}

func TestWebsocketReceivesPublished(t *testing.T) {
	s, ts := newTestServer(t)
	s.Hub = NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Hub.Run(ctx)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws?key=relay"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Registration completes after the handshake, so publish until a frame lands.
	var msg Message
	for i := 0; i < 50; i++ {
		s.Hub.Publish("event", engine.Event{Seq: 7, Category: engine.CatWar})
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		if err := conn.ReadJSON(&msg); err == nil {
			break
		}
	}
	assert.Equal(t, "event", msg.Type)
	payload, ok := msg.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, engine.CatWar, payload["category"])
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 61, rl.RetryAfter("a"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("a"))
}

func TestClientAddr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "[::1]:5000"
	assert.Equal(t, "::1", clientAddr(r))

	r.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	assert.Equal(t, "10.0.0.1", clientAddr(r))
}

func TestCORSOrigins(t *testing.T) {
	h := corsMiddleware([]string{" https://hegemon.example ", ""}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for origin, allowed := range map[string]bool{
		"https://hegemon.example": true,
		"http://localhost:5173":   true,
		"https://elsewhere.test":  false,
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if allowed {
			assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"), origin)
		} else {
			assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), origin)
		}
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/action", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
