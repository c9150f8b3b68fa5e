// Command player plays a scenario script in the terminal.
//
//	player [-config config.yaml] [-persist] [-auto] [-log player.log] <script>
//
// <script> is a file path, or a script name resolved under assets.script_dir.
// With -persist, flags, choices, unlocked events and the backlog are stored
// in the configured database under the playback profile.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kasuganosora/scenarioplayer/cache"
	"github.com/kasuganosora/scenarioplayer/config"
	dbadapter "github.com/kasuganosora/scenarioplayer/db"
	"github.com/kasuganosora/scenarioplayer/game/backlog"
	gflag "github.com/kasuganosora/scenarioplayer/game/flag"
	"github.com/kasuganosora/scenarioplayer/game/player"
	"github.com/kasuganosora/scenarioplayer/game/scenario"
	"github.com/kasuganosora/scenarioplayer/logging"
	"github.com/kasuganosora/scenarioplayer/model"
	"github.com/kasuganosora/scenarioplayer/resource"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "config file")
	persist := flag.Bool("persist", false, "store story state in the configured database")
	auto := flag.Bool("auto", false, "start in auto mode")
	logFile := flag.String("log", "", "write logs to this file")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: player [flags] <script file or name>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	// The terminal belongs to the UI; logs only go to a file.
	cfg.Log.File = *logFile
	logger, err := logging.NewFile(cfg.Log, *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	res := resource.NewLoader(cfg.Assets)
	if err := res.Load(); err != nil {
		logger.Warn("asset load warning", zap.Error(err))
	}

	deps := player.Deps{Scripts: res, Names: res, Assets: res}
	if *persist {
		stop, err := persistentDeps(cfg, logger, &deps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "persist: %v\n", err)
			os.Exit(1)
		}
		defer stop()
	}

	sess := player.NewSession("tui", cfg.Playback, deps, logger)
	defer sess.Close()
	if err := load(sess, flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	sess.SetAutoMode(*auto)
	sess.Advance()

	frame := time.Duration(cfg.Server.FrameMs) * time.Millisecond
	p := tea.NewProgram(newPlayerModel(sess, frame), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		logger.Error("ui", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// load prefers an existing file and falls back to a named script.
func load(sess *player.Session, arg string) error {
	data, err := os.ReadFile(arg)
	if err == nil {
		sess.LoadSource(arg, string(data))
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return sess.LoadScript(context.Background(), arg)
}

// persistentDeps fills the story stores from the configured database and
// returns a func that flushes them.
func persistentDeps(cfg *config.Config, logger *zap.Logger, deps *player.Deps) (func(), error) {
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := model.AutoMigrate(db); err != nil {
		return nil, err
	}
	c, err := cache.NewCache(cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	})
	if err != nil {
		return nil, err
	}

	profile := cfg.Playback.Profile
	flags := gflag.NewStore(profile, gflag.NewGormBackend(db), logger)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := flags.Load(ctx); err != nil {
		return nil, err
	}
	bl := backlog.New(db, c, cfg.Backlog, logger)

	deps.Flags = flags
	deps.Choices = scenario.NewGormChoiceLog(db, profile)
	deps.Events = scenario.NewGormEventRegistry(db, profile)
	deps.Backlog = bl
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		bl.Stop(ctx)
	}, nil
}
