package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/raidtable/cache"
	"github.com/kasuganosora/raidtable/config"
	"github.com/kasuganosora/raidtable/game/battle"
	"github.com/kasuganosora/raidtable/game/encounter"
	mw "github.com/kasuganosora/raidtable/middleware"
)

const keepaliveEvery = 30 * time.Second

// Handler streams encounter log lines as server-sent events.
type Handler struct {
	pubsub    cache.PubSub
	mgr       *encounter.Manager
	sec       config.SecurityConfig
	logger    *zap.Logger
	keepalive time.Duration
}

// NewHandler creates a new SSE Handler.
func NewHandler(pubsub cache.PubSub, mgr *encounter.Manager, sec config.SecurityConfig, logger *zap.Logger) *Handler {
	return &Handler{pubsub: pubsub, mgr: mgr, sec: sec, logger: logger, keepalive: keepaliveEvery}
}

// ServeStream handles GET /api/encounters/:id/stream?since=<seq>.
// It sends a "state" event, replays log lines after since, then pushes every
// new line as a "log" event until the client goes away.
func (h *Handler) ServeStream(c *gin.Context) {
	if origin := c.GetHeader("Origin"); origin != "" && !mw.OriginAllowed(h.sec.AllowedOrigins, origin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
		return
	}
	since, err := strconv.Atoi(c.DefaultQuery("since", "0"))
	if err != nil || since < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
		return
	}
	id := c.Param("id")
	if _, err := h.mgr.Get(id); err != nil {
		if errors.Is(err, encounter.ErrEncounterNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "encounter not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	// Subscribe before reading the backlog so no line falls in between.
	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, encounter.LogChannel(id))
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.String("encounter", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subscribe failed"})
		return
	}
	defer unsub()

	var view battle.View
	var backlog []battle.LogEntry
	err = h.mgr.Do(c.Request.Context(), id, func(e *battle.Encounter) error {
		view = e.View()
		backlog = e.Log(since)
		return nil
	})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "encounter not found"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	state, _ := json.Marshal(view)
	writeEvent(c, "state", 0, state)
	last := since
	for _, l := range backlog {
		data, _ := json.Marshal(l)
		writeEvent(c, "log", l.Seq, data)
		last = l.Seq
	}
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			var l battle.LogEntry
			if err := json.Unmarshal([]byte(msg.Payload), &l); err != nil {
				h.logger.Warn("sse bad payload", zap.String("encounter", id), zap.Error(err))
				continue
			}
			if l.Seq <= last {
				continue
			}
			last = l.Seq
			writeEvent(c, "log", l.Seq, []byte(msg.Payload))
			c.Writer.Flush()

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}

func writeEvent(c *gin.Context, event string, id int, data []byte) {
	if id > 0 {
		fmt.Fprintf(c.Writer, "id: %d\n", id)
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data)
}
