package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apirest "github.com/kasuganosora/raidtable/api/rest"
	"github.com/kasuganosora/raidtable/api/sse"
	"github.com/kasuganosora/raidtable/audit"
	"github.com/kasuganosora/raidtable/cache"
	"github.com/kasuganosora/raidtable/config"
	"github.com/kasuganosora/raidtable/game/battle"
	"github.com/kasuganosora/raidtable/game/encounter"
	mw "github.com/kasuganosora/raidtable/middleware"
	"github.com/kasuganosora/raidtable/resource"
	"github.com/kasuganosora/raidtable/scheduler"
	"github.com/kasuganosora/raidtable/testutil"
)

const (
	testAdminKey = "integration-admin-key"
	presetPath   = "../presets/default.yaml"
)

// TestServer wraps a real HTTP server with every subsystem wired together.
type TestServer struct {
	DB      *gorm.DB
	Cache   cache.Cache
	PubSub  cache.PubSub
	Manager *encounter.Manager
	Audit   *audit.Service
	Sched   *scheduler.Scheduler
	Server  *httptest.Server
	URL     string // http://127.0.0.1:<port>
	Sec     config.SecurityConfig
}

// NewTestServer creates a fully wired server for integration testing.
// It mirrors the dependency wiring in main.go.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// ---- Infrastructure ----
	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	sec := config.SecurityConfig{
		JWTSecret:      "integration-test-secret",
		GMTokenTTL:     time.Hour,
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
		AllowedOrigins: []string{}, // allow all origins
	}

	presets, err := resource.LoadPresetTable(presetPath)
	require.NoError(t, err)

	// ---- Services ----
	auditSvc := audit.New(db, logger)
	reports := encounter.NewReportStore(db)
	mgr := encounter.NewManager(encounter.Config{
		Rules:        battle.DefaultRules,
		TurnOrder:    "roster",
		MaxActive:    50,
		LastRoundTTL: time.Hour,
		HistoryLen:   20,
		Seed:         42,
		Presets:      presets,
		Cache:        c,
		PubSub:       pubsub,
		Reports:      reports,
		Logger:       logger,
	})

	sched := scheduler.New(logger)
	sched.AddTicker("encounter_sweep", time.Hour, func(context.Context) {
		mgr.EvictIdle(2 * time.Hour)
	})

	// ---- Gin HTTP Server ----
	rlCtx, rlCancel := context.WithCancel(context.Background())
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger), mw.CORS(sec.AllowedOrigins))
	r.Use(mw.RateLimit(rlCtx, sec.RateLimitRPS, sec.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes (mirrors main.go) ----
	encH := apirest.NewEncounterHandler(mgr, presets, reports, auditSvc, sec, logger)
	adminH := apirest.NewAdminHandler(mgr, auditSvc, sched, logger)
	sseH := sse.NewHandler(pubsub, mgr, sec, logger)

	api := r.Group("/api")
	{
		api.GET("/skills", encH.Skills)
		api.GET("/presets", encH.Presets)

		encG := api.Group("/encounters")
		encG.POST("", encH.Create)
		encG.GET("/:id", encH.State)
		encG.GET("/:id/log", encH.Log)
		encG.GET("/:id/last-round", encH.LastRound)
		encG.GET("/:id/history", encH.History)
		encG.GET("/:id/reports", encH.Reports)
		encG.GET("/:id/stream", sseH.ServeStream)
		encG.POST("/:id/players", encH.AddPlayer)
		encG.DELETE("/:id/players/:pid", encH.RemovePlayer)
		encG.POST("/:id/monsters", encH.AddMonster)
		encG.DELETE("/:id/monsters/:mid", encH.RemoveMonster)
		encG.DELETE("/:id/roster", encH.ClearRoster)
		encG.PUT("/:id/actions/:pid", encH.SubmitAction)
		encG.POST("/:id/actions/autofill", encH.AutoFill)
		encG.DELETE("/:id/actions", encH.ClearActions)
		encG.POST("/:id/round/start", encH.StartRound)
		encG.POST("/:id/round/resolve", encH.ResolveRound)
		encG.POST("/:id/undo", encH.Undo)
		encG.POST("/:id/reset", encH.Reset)

		gmG := encG.Group("/:id/admin", mw.GMAuth(sec, "id"))
		gmG.POST("/hp", encH.SetHP)
		gmG.POST("/toggle", encH.ToggleDown)
		gmG.POST("/stat", encH.AdjustStat)
		gmG.POST("/clear-status", encH.ClearStatus)
		gmG.POST("/damage", encH.Damage)
		gmG.POST("/note", encH.Note)
		gmG.DELETE("/log", encH.ClearLog)
	}

	opG := r.Group("/admin", mw.IPWhitelist(sec.AdminIPs), mw.AdminKey(testAdminKey))
	{
		opG.GET("/encounters", adminH.ListEncounters)
		opG.DELETE("/encounters/:id", adminH.RemoveEncounter)
		opG.GET("/audit", adminH.ListAudit)
		opG.GET("/scheduler", adminH.ListSchedulerTasks)
	}

	// ---- Start server ----
	server := httptest.NewServer(r)
	ts := &TestServer{
		DB:      db,
		Cache:   c,
		PubSub:  pubsub,
		Manager: mgr,
		Audit:   auditSvc,
		Sched:   sched,
		Server:  server,
		URL:     server.URL,
		Sec:     sec,
	}
	t.Cleanup(func() {
		server.Close()
		rlCancel()
		sched.Stop()
		auditSvc.Stop(context.Background())
	})
	return ts
}

// --- HTTP helpers ---

func (ts *TestServer) send(t *testing.T, method, path string, body interface{}, headers ...string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, bodyReader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func bearer(token string) []string {
	if token == "" {
		return nil
	}
	return []string{"Authorization", "Bearer " + token}
}

// PostJSON sends a POST request with JSON body and optional GM token.
func (ts *TestServer) PostJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	return ts.send(t, http.MethodPost, path, body, bearer(token)...)
}

// Get sends a GET request with optional GM token.
func (ts *TestServer) Get(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	return ts.send(t, http.MethodGet, path, nil, bearer(token)...)
}

// Put sends a PUT request with JSON body and optional GM token.
func (ts *TestServer) Put(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	return ts.send(t, http.MethodPut, path, body, bearer(token)...)
}

// Delete sends a DELETE request with optional GM token.
func (ts *TestServer) Delete(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	return ts.send(t, http.MethodDelete, path, nil, bearer(token)...)
}

// Admin sends an operator request carrying the admin key.
func (ts *TestServer) Admin(t *testing.T, method, path string) *http.Response {
	t.Helper()
	return ts.send(t, method, path, nil, mw.AdminKeyHeader, testAdminKey)
}

// ReadJSON reads and decodes a JSON response body into the given target.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// --- Encounter helpers ---

// Created is the answer to POST /api/encounters.
type Created struct {
	Encounter encounter.Summary `json:"encounter"`
	GMToken   string            `json:"gm_token"`
	State     battle.View       `json:"state"`
}

// Command is the answer to every encounter command.
type Command struct {
	Applied bool        `json:"applied"`
	ID      string      `json:"id"`
	Count   *int        `json:"count"`
	State   battle.View `json:"state"`
}

// CreateEncounter creates an encounter, seeded from preset when non-empty.
func (ts *TestServer) CreateEncounter(t *testing.T, preset string) Created {
	t.Helper()
	resp := ts.PostJSON(t, "/api/encounters", map[string]interface{}{"preset": preset}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out Created
	ReadJSON(t, resp, &out)
	return out
}

// Command posts a command and decodes the answer.
func (ts *TestServer) Command(t *testing.T, method, path string, body interface{}, token string) Command {
	t.Helper()
	resp := ts.send(t, method, path, body, bearer(token)...)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out Command
	ReadJSON(t, resp, &out)
	return out
}

// --- SSE client ---

// Event is one server-sent event.
type Event struct {
	Name string
	ID   string
	Data string
}

// StreamClient reads an encounter's event stream in the background.
type StreamClient struct {
	t      *testing.T
	cancel context.CancelFunc
	events chan Event
}

// ConnectStream opens GET /api/encounters/:id/stream.
func (ts *TestServer) ConnectStream(t *testing.T, encounterID string, since int) *StreamClient {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	url := ts.URL + "/api/encounters/" + encounterID + "/stream"
	if since > 0 {
		url += "?since=" + strconv.Itoa(since)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sc := &StreamClient{t: t, cancel: cancel, events: make(chan Event, 256)}
	go sc.readLoop(resp.Body)
	t.Cleanup(sc.Close)
	return sc
}

func (sc *StreamClient) readLoop(body io.ReadCloser) {
	defer body.Close()
	defer close(sc.events)
	scanner := bufio.NewScanner(body)
	var ev Event
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if ev.Name != "" {
				sc.events <- ev
			}
			ev = Event{}
		case strings.HasPrefix(line, "event: "):
			ev.Name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "id: "):
			ev.ID = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "data: "):
			ev.Data = strings.TrimPrefix(line, "data: ")
		}
	}
}

// Expect waits for an event named name whose data contains substr.
func (sc *StreamClient) Expect(name, substr string, timeout time.Duration) Event {
	sc.t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-sc.events:
			if !ok {
				sc.t.Fatalf("stream closed while waiting for %s %q", name, substr)
			}
			if ev.Name == name && strings.Contains(ev.Data, substr) {
				return ev
			}
		case <-deadline:
			sc.t.Fatalf("timed out waiting for %s %q", name, substr)
			return Event{}
		}
	}
}

// Close ends the stream.
func (sc *StreamClient) Close() {
	sc.cancel()
}
