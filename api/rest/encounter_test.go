package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kasuganosora/raidtable/api/rest"
	"github.com/kasuganosora/raidtable/audit"
	"github.com/kasuganosora/raidtable/config"
	"github.com/kasuganosora/raidtable/game/battle"
	"github.com/kasuganosora/raidtable/game/encounter"
	mw "github.com/kasuganosora/raidtable/middleware"
	"github.com/kasuganosora/raidtable/resource"
	"github.com/kasuganosora/raidtable/scheduler"
	"github.com/kasuganosora/raidtable/testutil"
)

const testPresets = `
presets:
  - name: drill
    players:
      - {name: Ana, role: TANK, stats: {vit: 7, atk: 7, def: 7, agi: 7}, actives: [GUARD, PROTECT], ultimate: UNYIELDING}
      - {name: Bo, role: DPS, stats: {vit: 7, atk: 7, def: 7, agi: 7}, actives: [MADNESS, OBSESSION], ultimate: MERCY}
    monsters:
      - {name: Dummy, hp: 5000, stats: {vit: 1, atk: 1, def: 1, agi: 1}}
`

const adminKey = "operator-key"

type testEnv struct {
	r     *gin.Engine
	mgr   *encounter.Manager
	audit *audit.Service
	sched *scheduler.Scheduler
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	presets, err := resource.ParsePresets([]byte(testPresets))
	require.NoError(t, err)

	sec := config.SecurityConfig{JWTSecret: "rest-test-secret", GMTokenTTL: time.Hour}
	reports := encounter.NewReportStore(db)
	mgr := encounter.NewManager(encounter.Config{
		Seed: 5, Presets: presets, Cache: c, PubSub: ps, Reports: reports, Logger: logger,
	})
	auditSvc := audit.New(db, logger)
	t.Cleanup(func() { auditSvc.Stop(context.Background()) })
	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)

	h := rest.NewEncounterHandler(mgr, presets, reports, auditSvc, sec, logger)
	adminH := rest.NewAdminHandler(mgr, auditSvc, sched, logger)

	r := gin.New()
	r.Use(mw.TraceID())
	api := r.Group("/api")
	api.GET("/skills", h.Skills)
	api.GET("/presets", h.Presets)
	encG := api.Group("/encounters")
	encG.POST("", h.Create)
	encG.GET("/:id", h.State)
	encG.GET("/:id/log", h.Log)
	encG.GET("/:id/last-round", h.LastRound)
	encG.GET("/:id/history", h.History)
	encG.GET("/:id/reports", h.Reports)
	encG.POST("/:id/players", h.AddPlayer)
	encG.DELETE("/:id/players/:pid", h.RemovePlayer)
	encG.POST("/:id/monsters", h.AddMonster)
	encG.DELETE("/:id/monsters/:mid", h.RemoveMonster)
	encG.DELETE("/:id/roster", h.ClearRoster)
	encG.PUT("/:id/actions/:pid", h.SubmitAction)
	encG.POST("/:id/actions/autofill", h.AutoFill)
	encG.DELETE("/:id/actions", h.ClearActions)
	encG.POST("/:id/round/start", h.StartRound)
	encG.POST("/:id/round/resolve", h.ResolveRound)
	encG.POST("/:id/undo", h.Undo)
	encG.POST("/:id/reset", h.Reset)

	gmG := encG.Group("/:id/admin", mw.GMAuth(sec, "id"))
	gmG.POST("/hp", h.SetHP)
	gmG.POST("/toggle", h.ToggleDown)
	gmG.POST("/stat", h.AdjustStat)
	gmG.POST("/clear-status", h.ClearStatus)
	gmG.POST("/damage", h.Damage)
	gmG.POST("/note", h.Note)
	gmG.DELETE("/log", h.ClearLog)

	opG := r.Group("/admin", mw.AdminKey(adminKey))
	opG.GET("/encounters", adminH.ListEncounters)
	opG.DELETE("/encounters/:id", adminH.RemoveEncounter)
	opG.GET("/audit", adminH.ListAudit)
	opG.GET("/scheduler", adminH.ListSchedulerTasks)

	return &testEnv{r: r, mgr: mgr, audit: auditSvc, sched: sched}
}

func (e *testEnv) do(method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

type created struct {
	Encounter encounter.Summary `json:"encounter"`
	GMToken   string            `json:"gm_token"`
	State     battle.View       `json:"state"`
}

type command struct {
	Applied bool        `json:"applied"`
	ID      string      `json:"id"`
	Count   *int        `json:"count"`
	State   battle.View `json:"state"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (e *testEnv) create(t *testing.T, preset string) created {
	t.Helper()
	w := e.do(http.MethodPost, "/api/encounters", gin.H{"preset": preset})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[created](t, w)
}

// ---- Catalog ----

func TestSkillsAndPresets(t *testing.T) {
	env := newEnv(t)
	w := env.do(http.MethodGet, "/api/skills", nil)
	require.Equal(t, http.StatusOK, w.Code)
	skills := decode[struct {
		Skills []map[string]interface{} `json:"skills"`
	}](t, w)
	assert.Len(t, skills.Skills, 19)

	w = env.do(http.MethodGet, "/api/presets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"drill"`)
}

// ---- Lifecycle ----

func TestCreate_Preset(t *testing.T) {
	env := newEnv(t)
	res := env.create(t, "drill")
	assert.NotEmpty(t, res.Encounter.ID)
	assert.NotEmpty(t, res.GMToken)
	assert.Len(t, res.State.Players, 2)
	assert.Len(t, res.State.Monsters, 1)
	assert.Equal(t, battle.PhaseHint, res.State.Phase)

	claims, err := mw.ParseGMToken(res.GMToken, "rest-test-secret")
	require.NoError(t, err)
	assert.Equal(t, res.Encounter.ID, claims.EncounterID)
}

func TestCreate_NoBody(t *testing.T) {
	env := newEnv(t)
	w := env.do(http.MethodPost, "/api/encounters", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	res := decode[created](t, w)
	assert.Empty(t, res.State.Players)
}

func TestCreate_UnknownPreset(t *testing.T) {
	env := newEnv(t)
	w := env.do(http.MethodPost, "/api/encounters", gin.H{"preset": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownEncounter(t *testing.T) {
	env := newEnv(t)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/encounters/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/api/encounters/missing/round/start", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/encounters/missing/log", nil).Code)
}

// ---- Round flow ----

func TestRoundFlow(t *testing.T) {
	env := newEnv(t)
	enc := env.create(t, "drill")
	base := "/api/encounters/" + enc.Encounter.ID

	// resolving in HINT is refused but still answers 200 with the state
	w := env.do(http.MethodPost, base+"/round/resolve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[command](t, w).Applied)

	w = env.do(http.MethodPost, base+"/round/start", nil)
	cmd := decode[command](t, w)
	require.True(t, cmd.Applied)
	assert.Equal(t, battle.PhasePlayer, cmd.State.Phase)
	assert.Len(t, cmd.State.Intents, 1)

	tank := cmd.State.Players[0].ID
	w = env.do(http.MethodPut, base+"/actions/"+tank, gin.H{"type": "defend"})
	cmd = decode[command](t, w)
	assert.True(t, cmd.Applied)
	assert.Equal(t, battle.ActDefend, cmd.State.Actions[tank].Type)

	w = env.do(http.MethodPost, base+"/actions/autofill", nil)
	cmd = decode[command](t, w)
	assert.True(t, cmd.Applied)
	require.NotNil(t, cmd.Count)
	assert.Equal(t, 1, *cmd.Count)

	w = env.do(http.MethodPost, base+"/round/resolve", nil)
	cmd = decode[command](t, w)
	require.True(t, cmd.Applied)
	assert.Equal(t, 2, cmd.State.Round)
	assert.Equal(t, battle.PhaseHint, cmd.State.Phase)
	assert.True(t, cmd.State.CanUndo)

	w = env.do(http.MethodGet, base+"/last-round", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[battle.View](t, w).Round)

	w = env.do(http.MethodGet, base+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	hist := decode[struct {
		Rounds []string `json:"rounds"`
	}](t, w)
	require.Len(t, hist.Rounds, 1)

	w = env.do(http.MethodGet, base+"/reports", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"round":1`)

	w = env.do(http.MethodPost, base+"/undo", nil)
	cmd = decode[command](t, w)
	assert.True(t, cmd.Applied)
	assert.Equal(t, 1, cmd.State.Round)
	assert.Equal(t, battle.PhasePlayer, cmd.State.Phase)

	w = env.do(http.MethodPost, base+"/reset", nil)
	cmd = decode[command](t, w)
	assert.True(t, cmd.Applied)
	assert.Equal(t, battle.PhaseHint, cmd.State.Phase)
}

func TestLastRound_NoneYet(t *testing.T) {
	env := newEnv(t)
	enc := env.create(t, "drill")
	w := env.do(http.MethodGet, "/api/encounters/"+enc.Encounter.ID+"/last-round", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLog_Since(t *testing.T) {
	env := newEnv(t)
	enc := env.create(t, "")
	base := "/api/encounters/" + enc.Encounter.ID
	env.do(http.MethodPost, base+"/players", gin.H{
		"name": "Cy", "role": "SUPPORT", "stats": gin.H{"vit": 7, "atk": 7, "def": 7, "agi": 7},
		"actives": []string{"REVIVE", "BLESS"}, "ultimate": "REST",
	})
	env.do(http.MethodPost, base+"/monsters", gin.H{"name": "Rat", "hp_base": 100})

	w := env.do(http.MethodGet, base+"/log", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[struct {
		Entries []battle.LogEntry `json:"entries"`
		LastSeq int               `json:"last_seq"`
	}](t, w)
	require.Len(t, all.Entries, 2)
	assert.Equal(t, 2, all.LastSeq)

	w = env.do(http.MethodGet, base+"/log?since=1", nil)
	some := decode[struct {
		Entries []battle.LogEntry `json:"entries"`
	}](t, w)
	require.Len(t, some.Entries, 1)
	assert.Contains(t, some.Entries[0].Text, "Rat")

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, base+"/log?since=abc", nil).Code)
}

// ---- Roster ----

func TestRoster(t *testing.T) {
	env := newEnv(t)
	enc := env.create(t, "")
	base := "/api/encounters/" + enc.Encounter.ID

	w := env.do(http.MethodPost, base+"/players", gin.H{
		"name": "Cy", "role": "support", "stats": gin.H{"vit": 7, "atk": 7, "def": 7, "agi": 7},
		"actives": []string{"revive", "bless"}, "ultimate": "rest",
	})
	cmd := decode[command](t, w)
	require.True(t, cmd.Applied)
	require.NotEmpty(t, cmd.ID)
	assert.Len(t, cmd.State.Players, 1)

	w = env.do(http.MethodPost, base+"/players", gin.H{"name": "Bad", "role": "BARD"})
	cmd = decode[command](t, w)
	assert.False(t, cmd.Applied)
	assert.Empty(t, cmd.ID)

	w = env.do(http.MethodPost, base+"/monsters", gin.H{"name": "Rat", "hp_base": 100})
	cmd = decode[command](t, w)
	require.True(t, cmd.Applied)
	rat := cmd.ID

	w = env.do(http.MethodDelete, base+"/monsters/"+rat, nil)
	cmd = decode[command](t, w)
	assert.True(t, cmd.Applied)
	assert.Empty(t, cmd.State.Monsters)

	w = env.do(http.MethodDelete, base+"/players/nobody", nil)
	assert.False(t, decode[command](t, w).Applied)

	w = env.do(http.MethodDelete, base+"/roster", nil)
	cmd = decode[command](t, w)
	assert.True(t, cmd.Applied)
	assert.Empty(t, cmd.State.Players)
}

func TestAddPlayer_BadJSON(t *testing.T) {
	env := newEnv(t)
	enc := env.create(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/encounters/"+enc.Encounter.ID+"/players", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ---- GM overrides ----

func TestGM_RequiresToken(t *testing.T) {
	env := newEnv(t)
	a := env.create(t, "drill")
	b := env.create(t, "drill")
	path := "/api/encounters/" + a.Encounter.ID + "/admin/note"

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, path, gin.H{"text": "hi"}).Code)
	assert.Equal(t, http.StatusForbidden,
		env.do(http.MethodPost, path, gin.H{"text": "hi"}, "Authorization", "Bearer "+b.GMToken).Code)
	assert.Equal(t, http.StatusOK,
		env.do(http.MethodPost, path, gin.H{"text": "hi"}, "Authorization", "Bearer "+a.GMToken).Code)
}

func TestGM_Overrides(t *testing.T) {
	env := newEnv(t)
	enc := env.create(t, "drill")
	base := "/api/encounters/" + enc.Encounter.ID + "/admin"
	auth := []string{"Authorization", "Bearer " + enc.GMToken}
	tank := enc.State.Players[0].ID
	dummy := enc.State.Monsters[0].ID

	w := env.do(http.MethodPost, base+"/hp", gin.H{"id": tank, "hp": 50}, auth...)
	cmd := decode[command](t, w)
	require.True(t, cmd.Applied)
	assert.Equal(t, 50, cmd.State.Players[0].HP)

	w = env.do(http.MethodPost, base+"/damage", gin.H{"id": dummy, "amount": 100}, auth...)
	cmd = decode[command](t, w)
	require.True(t, cmd.Applied)
	assert.Equal(t, 4900, cmd.State.Monsters[0].HP)

	w = env.do(http.MethodPost, base+"/stat", gin.H{"id": tank, "stat": "ATK", "delta": 3}, auth...)
	cmd = decode[command](t, w)
	require.True(t, cmd.Applied)
	assert.Equal(t, 10, cmd.State.Players[0].Effective.Atk)

	w = env.do(http.MethodPost, base+"/toggle", gin.H{"id": tank}, auth...)
	cmd = decode[command](t, w)
	require.True(t, cmd.Applied)
	assert.True(t, cmd.State.Players[0].Down)

	w = env.do(http.MethodPost, base+"/clear-status", gin.H{"id": tank}, auth...)
	assert.True(t, decode[command](t, w).Applied)

	w = env.do(http.MethodPost, base+"/hp", gin.H{"id": tank}, auth...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodDelete, base+"/log", nil, auth...)
	cmd = decode[command](t, w)
	require.True(t, cmd.Applied)
	assert.Equal(t, 1, cmd.State.LogSize)
}

// ---- Operator ----

func TestOperator_Routes(t *testing.T) {
	env := newEnv(t)
	enc := env.create(t, "drill")
	key := []string{mw.AdminKeyHeader, adminKey}

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/admin/encounters", nil).Code)

	w := env.do(http.MethodGet, "/admin/encounters", nil, key...)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Encounters []encounter.Summary `json:"encounters"`
		Count      int                 `json:"count"`
	}](t, w)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, enc.Encounter.ID, list.Encounters[0].ID)

	env.sched.AddTicker("encounter_sweep", time.Hour, func(context.Context) {})
	w = env.do(http.MethodGet, "/admin/scheduler", nil, key...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "encounter_sweep")

	w = env.do(http.MethodDelete, "/admin/encounters/"+enc.Encounter.ID, nil, key...)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodDelete, "/admin/encounters/"+enc.Encounter.ID, nil, key...)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOperator_Audit(t *testing.T) {
	env := newEnv(t)
	enc := env.create(t, "drill")
	env.do(http.MethodPost, "/api/encounters/"+enc.Encounter.ID+"/round/start", nil)

	// flush the batch worker
	env.audit.Stop(context.Background())

	w := env.do(http.MethodGet, "/admin/audit?encounter_id="+enc.Encounter.ID, nil, mw.AdminKeyHeader, adminKey)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Entries []struct {
			Action  string `json:"action"`
			Applied bool   `json:"applied"`
			Actor   string `json:"actor"`
		} `json:"entries"`
	}](t, w)
	require.Len(t, body.Entries, 2)
	assert.Equal(t, "start_round", body.Entries[0].Action)
	assert.True(t, body.Entries[0].Applied)
	assert.Equal(t, audit.ActorPublic, body.Entries[0].Actor)
	assert.Equal(t, "create", body.Entries[1].Action)

	w = env.do(http.MethodGet, "/admin/audit?limit=-1", nil, mw.AdminKeyHeader, adminKey)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
