package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/raidtable/audit"
	"github.com/kasuganosora/raidtable/config"
	"github.com/kasuganosora/raidtable/game/battle"
	"github.com/kasuganosora/raidtable/game/encounter"
	"github.com/kasuganosora/raidtable/game/skill"
	mw "github.com/kasuganosora/raidtable/middleware"
	"github.com/kasuganosora/raidtable/model"
	"github.com/kasuganosora/raidtable/resource"
)

// ReportLister reads archived rounds.
type ReportLister interface {
	ListByEncounter(ctx context.Context, encounterID string) ([]model.RoundReport, error)
}

// EncounterHandler serves the encounter commands and queries.
type EncounterHandler struct {
	mgr     *encounter.Manager
	presets *resource.PresetTable
	reports ReportLister
	audit   *audit.Service
	sec     config.SecurityConfig
	logger  *zap.Logger
}

// NewEncounterHandler creates an EncounterHandler. reports and auditSvc may be nil.
func NewEncounterHandler(
	mgr *encounter.Manager,
	presets *resource.PresetTable,
	reports ReportLister,
	auditSvc *audit.Service,
	sec config.SecurityConfig,
	logger *zap.Logger,
) *EncounterHandler {
	return &EncounterHandler{mgr: mgr, presets: presets, reports: reports, audit: auditSvc, sec: sec, logger: logger}
}

// commandResponse is returned by every command.
type commandResponse struct {
	Applied bool        `json:"applied"`
	State   battle.View `json:"state"`
	ID      string      `json:"id,omitempty"`
	Count   *int        `json:"count,omitempty"`
}

// result carries what a command callback reports back.
type result struct {
	applied bool
	id      string
	count   *int
}

// command runs fn on the encounter, audits it and answers with the new state.
func (h *EncounterHandler) command(c *gin.Context, action string, req interface{}, fn func(e *battle.Encounter) result) {
	start := time.Now()
	id := c.Param("id")

	var res result
	var view battle.View
	err := h.mgr.Do(c.Request.Context(), id, func(e *battle.Encounter) error {
		res = fn(e)
		view = e.View()
		return nil
	})

	entry := audit.AuditEntry{
		TraceID:     mw.GetTraceID(c),
		EncounterID: id,
		Actor:       actor(c),
		Action:      action,
		Request:     req,
		Applied:     res.applied,
		IP:          c.ClientIP(),
		Round:       view.Round,
		DurationMs:  int(time.Since(start).Milliseconds()),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	h.record(entry)

	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, commandResponse{Applied: res.applied, State: view, ID: res.id, Count: res.count})
}

func (h *EncounterHandler) record(entry audit.AuditEntry) {
	if h.audit != nil {
		h.audit.Log(entry)
	}
}

func actor(c *gin.Context) string {
	if mw.GetGMTokenID(c) != "" {
		return audit.ActorGM
	}
	return audit.ActorPublic
}

func (h *EncounterHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, encounter.ErrEncounterNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "encounter not found"})
	case errors.Is(err, encounter.ErrTooManyEncounters):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many active encounters"})
	case errors.Is(err, encounter.ErrNoLastRound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no resolved round yet"})
	case errors.Is(err, resource.ErrPresetNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown preset"})
	default:
		h.logger.Error("encounter request failed",
			zap.String("trace_id", mw.GetTraceID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// ---- Catalog ----

// Skills handles GET /api/skills.
func (h *EncounterHandler) Skills(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"skills": skill.All()})
}

// Presets handles GET /api/presets.
func (h *EncounterHandler) Presets(c *gin.Context) {
	list := h.presets.All()
	if list == nil {
		list = []*resource.Preset{}
	}
	c.JSON(http.StatusOK, gin.H{"presets": list})
}

// ---- Lifecycle ----

type createEncounterRequest struct {
	Preset string `json:"preset"`
	Seed   int64  `json:"seed"`
}

// Create handles POST /api/encounters. The response carries the GM token
// that unlocks the admin overrides of the new encounter.
func (h *EncounterHandler) Create(c *gin.Context) {
	var req createEncounterRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	sum, err := h.mgr.Create(c.Request.Context(), encounter.CreateOptions{Preset: req.Preset, Seed: req.Seed})
	h.record(audit.AuditEntry{
		TraceID:     mw.GetTraceID(c),
		EncounterID: sum.ID,
		Actor:       audit.ActorPublic,
		Action:      "create",
		Request:     req,
		Applied:     err == nil,
		Error:       errString(err),
		IP:          c.ClientIP(),
		Round:       sum.Round,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	token, err := mw.GenerateGMToken(sum.ID, h.sec.JWTSecret, h.sec.GMTokenTTL)
	if err != nil {
		h.mgr.Remove(sum.ID)
		h.fail(c, err)
		return
	}
	view, err := h.mgr.View(c.Request.Context(), sum.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"encounter": sum,
		"gm_token":  token,
		"state":     view,
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// State handles GET /api/encounters/:id.
func (h *EncounterHandler) State(c *gin.Context) {
	view, err := h.mgr.View(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Log handles GET /api/encounters/:id/log?since=<seq>.
func (h *EncounterHandler) Log(c *gin.Context) {
	since, err := strconv.Atoi(c.DefaultQuery("since", "0"))
	if err != nil || since < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
		return
	}
	var lines []battle.LogEntry
	var last int
	err = h.mgr.Do(c.Request.Context(), c.Param("id"), func(e *battle.Encounter) error {
		lines = e.Log(since)
		last = e.LastSeq()
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if lines == nil {
		lines = []battle.LogEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": lines, "last_seq": last})
}

// LastRound handles GET /api/encounters/:id/last-round.
func (h *EncounterHandler) LastRound(c *gin.Context) {
	raw, err := h.mgr.LastRound(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// History handles GET /api/encounters/:id/history.
func (h *EncounterHandler) History(c *gin.Context) {
	lines, err := h.mgr.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if lines == nil {
		lines = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"rounds": lines})
}

// Reports handles GET /api/encounters/:id/reports.
func (h *EncounterHandler) Reports(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusOK, gin.H{"reports": []model.RoundReport{}})
		return
	}
	list, err := h.reports.ListByEncounter(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": list})
}

// ---- Roster ----

// AddPlayer handles POST /api/encounters/:id/players.
func (h *EncounterHandler) AddPlayer(c *gin.Context) {
	var req battle.PlayerSpec
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.command(c, "add_player", req, func(e *battle.Encounter) result {
		id, ok := e.AddPlayer(req)
		return result{applied: ok, id: id}
	})
}

// RemovePlayer handles DELETE /api/encounters/:id/players/:pid.
func (h *EncounterHandler) RemovePlayer(c *gin.Context) {
	pid := c.Param("pid")
	h.command(c, "remove_player", gin.H{"player": pid}, func(e *battle.Encounter) result {
		return result{applied: e.RemovePlayer(pid)}
	})
}

// AddMonster handles POST /api/encounters/:id/monsters.
func (h *EncounterHandler) AddMonster(c *gin.Context) {
	var req battle.MonsterSpec
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.command(c, "add_monster", req, func(e *battle.Encounter) result {
		id, ok := e.AddMonster(req)
		return result{applied: ok, id: id}
	})
}

// RemoveMonster handles DELETE /api/encounters/:id/monsters/:mid.
func (h *EncounterHandler) RemoveMonster(c *gin.Context) {
	mid := c.Param("mid")
	h.command(c, "remove_monster", gin.H{"monster": mid}, func(e *battle.Encounter) result {
		return result{applied: e.RemoveMonster(mid)}
	})
}

// ClearRoster handles DELETE /api/encounters/:id/roster.
func (h *EncounterHandler) ClearRoster(c *gin.Context) {
	h.command(c, "clear_roster", nil, func(e *battle.Encounter) result {
		e.ClearRoster()
		return result{applied: true}
	})
}

// ---- Actions ----

// SubmitAction handles PUT /api/encounters/:id/actions/:pid.
func (h *EncounterHandler) SubmitAction(c *gin.Context) {
	var req battle.Action
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Type = battle.ActionType(strings.ToUpper(strings.TrimSpace(string(req.Type))))
	pid := c.Param("pid")
	h.command(c, "submit_action", gin.H{"player": pid, "action": req}, func(e *battle.Encounter) result {
		return result{applied: e.SubmitAction(pid, req)}
	})
}

// AutoFill handles POST /api/encounters/:id/actions/autofill.
func (h *EncounterHandler) AutoFill(c *gin.Context) {
	h.command(c, "autofill_actions", nil, func(e *battle.Encounter) result {
		applied := e.Phase() == battle.PhasePlayer
		n := e.AutoFillActions()
		return result{applied: applied, count: &n}
	})
}

// ClearActions handles DELETE /api/encounters/:id/actions.
func (h *EncounterHandler) ClearActions(c *gin.Context) {
	h.command(c, "clear_actions", nil, func(e *battle.Encounter) result {
		e.ClearActions()
		return result{applied: true}
	})
}

// ---- Rounds ----

// StartRound handles POST /api/encounters/:id/round/start.
func (h *EncounterHandler) StartRound(c *gin.Context) {
	h.command(c, "start_round", nil, func(e *battle.Encounter) result {
		return result{applied: e.StartRound()}
	})
}

// ResolveRound handles POST /api/encounters/:id/round/resolve.
func (h *EncounterHandler) ResolveRound(c *gin.Context) {
	h.command(c, "resolve_round", nil, func(e *battle.Encounter) result {
		return result{applied: e.ResolveRound()}
	})
}

// Undo handles POST /api/encounters/:id/undo.
func (h *EncounterHandler) Undo(c *gin.Context) {
	h.command(c, "undo", nil, func(e *battle.Encounter) result {
		return result{applied: e.Undo()}
	})
}

// Reset handles POST /api/encounters/:id/reset.
func (h *EncounterHandler) Reset(c *gin.Context) {
	h.command(c, "reset", nil, func(e *battle.Encounter) result {
		e.Reset()
		return result{applied: true}
	})
}
