package rest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/raidtable/game/battle"
	"github.com/kasuganosora/raidtable/game/skill"
)

// GM overrides. Routes are protected by middleware.GMAuth.

type targetRequest struct {
	ID string `json:"id" binding:"required"`
}

type setHPRequest struct {
	ID string `json:"id" binding:"required"`
	HP *int   `json:"hp" binding:"required"`
}

type adjustStatRequest struct {
	ID    string `json:"id" binding:"required"`
	Stat  string `json:"stat" binding:"required"`
	Delta int    `json:"delta"`
}

type damageRequest struct {
	ID     string `json:"id" binding:"required"`
	Amount int    `json:"amount"`
}

type noteRequest struct {
	Text string `json:"text"`
}

func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// SetHP handles POST /api/encounters/:id/admin/hp.
func (h *EncounterHandler) SetHP(c *gin.Context) {
	var req setHPRequest
	if !bind(c, &req) {
		return
	}
	h.command(c, "gm_set_hp", req, func(e *battle.Encounter) result {
		return result{applied: e.SetHP(req.ID, *req.HP)}
	})
}

// ToggleDown handles POST /api/encounters/:id/admin/toggle.
func (h *EncounterHandler) ToggleDown(c *gin.Context) {
	var req targetRequest
	if !bind(c, &req) {
		return
	}
	h.command(c, "gm_toggle_down", req, func(e *battle.Encounter) result {
		return result{applied: e.ToggleDown(req.ID)}
	})
}

// AdjustStat handles POST /api/encounters/:id/admin/stat.
func (h *EncounterHandler) AdjustStat(c *gin.Context) {
	var req adjustStatRequest
	if !bind(c, &req) {
		return
	}
	stat := skill.Stat(strings.ToLower(strings.TrimSpace(req.Stat)))
	h.command(c, "gm_adjust_stat", req, func(e *battle.Encounter) result {
		return result{applied: e.AdjustTempStat(req.ID, stat, req.Delta)}
	})
}

// ClearStatus handles POST /api/encounters/:id/admin/clear-status.
func (h *EncounterHandler) ClearStatus(c *gin.Context) {
	var req targetRequest
	if !bind(c, &req) {
		return
	}
	h.command(c, "gm_clear_status", req, func(e *battle.Encounter) result {
		return result{applied: e.ClearStatus(req.ID)}
	})
}

// Damage handles POST /api/encounters/:id/admin/damage. A negative amount heals.
func (h *EncounterHandler) Damage(c *gin.Context) {
	var req damageRequest
	if !bind(c, &req) {
		return
	}
	h.command(c, "gm_damage", req, func(e *battle.Encounter) result {
		return result{applied: e.ApplySignedDamage(req.ID, req.Amount)}
	})
}

// Note handles POST /api/encounters/:id/admin/note.
func (h *EncounterHandler) Note(c *gin.Context) {
	var req noteRequest
	if !bind(c, &req) {
		return
	}
	h.command(c, "gm_note", req, func(e *battle.Encounter) result {
		return result{applied: e.AddNote(req.Text)}
	})
}

// ClearLog handles DELETE /api/encounters/:id/admin/log.
func (h *EncounterHandler) ClearLog(c *gin.Context) {
	h.command(c, "gm_clear_log", nil, func(e *battle.Encounter) result {
		e.ClearLog()
		return result{applied: true}
	})
}
