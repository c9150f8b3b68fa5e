package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/scenarioplayer/api/rest"
	"github.com/kasuganosora/scenarioplayer/api/sse"
	"github.com/kasuganosora/scenarioplayer/cache"
	"github.com/kasuganosora/scenarioplayer/config"
	dbadapter "github.com/kasuganosora/scenarioplayer/db"
	"github.com/kasuganosora/scenarioplayer/game/backlog"
	"github.com/kasuganosora/scenarioplayer/game/flag"
	"github.com/kasuganosora/scenarioplayer/game/player"
	"github.com/kasuganosora/scenarioplayer/game/scenario"
	"github.com/kasuganosora/scenarioplayer/logging"
	mw "github.com/kasuganosora/scenarioplayer/middleware"
	"github.com/kasuganosora/scenarioplayer/model"
	"github.com/kasuganosora/scenarioplayer/plugin/hook"
	"github.com/kasuganosora/scenarioplayer/resource"
	"github.com/kasuganosora/scenarioplayer/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		cfgPath = "" // defaults + environment
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	logger, err := logging.New(cfg.Log, cfg.Server.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
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

	// ---- Assets ----
	res := resource.NewLoader(cfg.Assets)
	if err := res.Load(); err != nil {
		logger.Warn("asset load warning", zap.Error(err))
	} else {
		logger.Info("assets loaded", zap.Int("characters", len(res.Characters())))
	}

	// ---- Story state ----
	profile := cfg.Playback.Profile
	flags := flag.NewStore(profile, flag.Chain{flag.NewCacheBackend(c), flag.NewGormBackend(db)}, logger)
	loadCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := flags.Load(loadCtx); err != nil {
		logger.Warn("flag load failed; starting empty", zap.Error(err))
	}
	cancel()
	eventDB := scenario.NewGormEventRegistry(db, profile)
	events := scenario.EventRegistries{eventDB, scenario.NewCacheEventRegistry(c, profile)}
	choices := scenario.NewGormChoiceLog(db, profile)

	backlogSvc := backlog.New(db, c, cfg.Backlog, logger)
	defer backlogSvc.Stop(context.Background())

	// ---- Hooks / SSE ----
	hooks := hook.NewHookCenter()
	sseH := sse.NewHandler(pubsub, logger)
	sseH.Attach(hooks)

	// ---- Sessions ----
	sm := player.NewSessionManager(logger)
	defer sm.CloseAllSessions()
	newSession := func(id string) *player.Session {
		return player.NewSession(id, cfg.Playback, player.Deps{
			Scripts: res,
			Names:   res,
			Assets:  res,
			Flags:   flags,
			Choices: choices,
			Events:  events,
			Backlog: backlogSvc,
			Hooks:   hooks,
		}, logger)
	}

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	sched.AddFrameLoop("session_frames", time.Duration(cfg.Server.FrameMs)*time.Millisecond, sm.TickAll)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.AllowOrigins(cfg.Server.AllowedOrigins))
	r.Use(mw.RateLimit(rate.Limit(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst, mw.ByClientIP))

	handlers := apirest.Handlers{
		Scripts:  apirest.NewScriptHandler(res, player.NewCompiler(res, cfg.Playback.FallbackText, logger), c, cfg.Server.IRCacheTTL, logger),
		Sessions: apirest.NewSessionHandler(sm, newSession, sched, cfg.Server.SessionIdle, logger),
		Story:    apirest.NewStoryHandler(flags, eventDB, backlogSvc, logger),
		Admin:    apirest.NewAdminHandler(sm, sched, logger),
		Events:   sseH.ServeEvents,
	}
	apirest.Routes(r.Group("/api"), handlers, sm, cfg.Server.AdminKey)

	// Assets for a browser preview client.
	if cfg.Assets.Root != "" {
		r.Static("/assets", cfg.Assets.Root)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		logger.Info("Server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}
