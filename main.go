package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/raidtable/api/rest"
	"github.com/kasuganosora/raidtable/api/sse"
	"github.com/kasuganosora/raidtable/audit"
	"github.com/kasuganosora/raidtable/cache"
	"github.com/kasuganosora/raidtable/config"
	dbadapter "github.com/kasuganosora/raidtable/db"
	"github.com/kasuganosora/raidtable/game/battle"
	"github.com/kasuganosora/raidtable/game/encounter"
	mw "github.com/kasuganosora/raidtable/middleware"
	"github.com/kasuganosora/raidtable/model"
	"github.com/kasuganosora/raidtable/resource"
	"github.com/kasuganosora/raidtable/scheduler"
	"go.uber.org/zap"
)

func main() {
	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	if _, err := os.Stat(cfgPath); err != nil && len(os.Args) <= 1 {
		// No config file: run on defaults and environment.
		cfgPath = ""
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}
	if cfg.Security.JWTSecret == "" {
		cfg.Security.JWTSecret = randomSecret()
		logger.Warn("security.jwt_secret is not set; GM tokens will not survive a restart")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		auditSvc.Stop(ctx)
	}()

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Presets ----
	presets, err := resource.LoadPresetTable(cfg.Server.PresetPath)
	if err != nil {
		logger.Warn("preset load warning", zap.String("path", cfg.Server.PresetPath), zap.Error(err))
	} else {
		logger.Info("presets loaded", zap.Int("count", presets.Count()))
	}

	// ---- Encounters ----
	reports := encounter.NewReportStore(db)
	mgr := encounter.NewManager(encounter.Config{
		Rules: battle.Rules{
			MaxPlayers:  cfg.Rules.MaxPlayers,
			MaxMonsters: cfg.Rules.MaxMonsters,
			StatBudget:  cfg.Rules.StatBudget,
		},
		TurnOrder:    cfg.Rules.TurnOrder,
		MaxActive:    cfg.Encounter.MaxActive,
		LastRoundTTL: cfg.Encounter.LastRoundTTL,
		HistoryLen:   cfg.Encounter.HistoryLen,
		Seed:         cfg.Encounter.Seed,
		Presets:      presets,
		Cache:        c,
		PubSub:       pubsub,
		Reports:      reports,
		Logger:       logger,
	})

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	sched.AddTicker("encounter_sweep", cfg.Scheduler.SweepInterval, func(context.Context) {
		if n := mgr.EvictIdle(cfg.Encounter.IdleTimeout); n > 0 {
			logger.Info("idle encounters evicted", zap.Int("count", n))
		}
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger), mw.CORS(cfg.Security.AllowedOrigins))
	r.Use(mw.RateLimit(rootCtx, cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok", "encounters": mgr.Count()})
	})

	// ---- REST API routes ----
	encH := apirest.NewEncounterHandler(mgr, presets, reports, auditSvc, cfg.Security, logger)
	adminH := apirest.NewAdminHandler(mgr, auditSvc, sched, logger)
	sseH := sse.NewHandler(pubsub, mgr, cfg.Security, logger)

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

		// GM overrides need the token minted when the encounter was created.
		gmG := encG.Group("/:id/admin", mw.GMAuth(cfg.Security, "id"))
		gmG.POST("/hp", encH.SetHP)
		gmG.POST("/toggle", encH.ToggleDown)
		gmG.POST("/stat", encH.AdjustStat)
		gmG.POST("/clear-status", encH.ClearStatus)
		gmG.POST("/damage", encH.Damage)
		gmG.POST("/note", encH.Note)
		gmG.DELETE("/log", encH.ClearLog)
	}

	opG := r.Group("/admin", mw.IPWhitelist(cfg.Security.AdminIPs), mw.AdminKey(cfg.Server.AdminKey))
	{
		opG.GET("/encounters", adminH.ListEncounters)
		opG.DELETE("/encounters/:id", adminH.RemoveEncounter)
		opG.GET("/audit", adminH.ListAudit)
		opG.GET("/scheduler", adminH.ListSchedulerTasks)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("jwt secret: %v", err)
	}
	return hex.EncodeToString(b)
}
