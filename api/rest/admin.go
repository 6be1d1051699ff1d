package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/raidtable/audit"
	"github.com/kasuganosora/raidtable/game/encounter"
	mw "github.com/kasuganosora/raidtable/middleware"
	"github.com/kasuganosora/raidtable/scheduler"
)

// AdminHandler handles operator REST endpoints.
// Routes should be protected by middleware.AdminKey.
type AdminHandler struct {
	mgr    *encounter.Manager
	audit  *audit.Service
	sched  *scheduler.Scheduler
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(
	mgr *encounter.Manager,
	auditSvc *audit.Service,
	sched *scheduler.Scheduler,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{mgr: mgr, audit: auditSvc, sched: sched, logger: logger}
}

// ListEncounters returns every live encounter.
// GET /admin/encounters
func (h *AdminHandler) ListEncounters(c *gin.Context) {
	list := h.mgr.List()
	c.JSON(http.StatusOK, gin.H{"encounters": list, "count": len(list)})
}

// RemoveEncounter drops an encounter from the registry.
// DELETE /admin/encounters/:id
func (h *AdminHandler) RemoveEncounter(c *gin.Context) {
	id := c.Param("id")
	ok := h.mgr.Remove(id)
	if h.audit != nil {
		h.audit.Log(audit.AuditEntry{
			TraceID:     mw.GetTraceID(c),
			EncounterID: id,
			Actor:       audit.ActorOperator,
			Action:      "remove_encounter",
			Applied:     ok,
			IP:          c.ClientIP(),
		})
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "encounter not found"})
		return
	}
	h.logger.Info("operator removed encounter", zap.String("encounter", id))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ListAudit returns recent audit rows.
// GET /admin/audit?encounter_id=&action=&limit=
func (h *AdminHandler) ListAudit(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit disabled"})
		return
	}
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	rows, err := h.audit.ListRecent(c.Request.Context(), audit.Query{
		EncounterID: c.Query("encounter_id"),
		Action:      c.Query("action"),
		Limit:       limit,
	})
	if err != nil {
		h.logger.Error("list audit", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": rows, "count": len(rows)})
}

// ListSchedulerTasks returns all registered ticker tasks.
// GET /admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.ListTickers()})
}
