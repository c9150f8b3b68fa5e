// Package logging builds the process zap logger from config: console or JSON
// to stderr, optionally tee'd to a size-rotated file.
package logging

import (
	"os"
	"strings"

	"github.com/kasuganosora/scenarioplayer/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lj "gopkg.in/natefinch/lumberjack.v2"
)

// New returns a logger for cfg. debug forces debug level and the
// development encoder regardless of cfg.Level.
func New(cfg config.LogConfig, debug bool) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(levelName(cfg.Level))); err != nil {
		return nil, err
	}
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var consoleEnc zapcore.Encoder
	if strings.EqualFold(cfg.Format, "json") {
		consoleEnc = zapcore.NewJSONEncoder(encCfg)
	} else {
		devCfg := zap.NewDevelopmentEncoderConfig()
		devCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEnc = zapcore.NewConsoleEncoder(devCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), level),
	}
	if core := fileCore(cfg, encCfg, level); core != nil {
		cores = append(cores, core)
	}
	return zap.New(zapcore.NewTee(cores...), options(debug)...), nil
}

// NewFile returns a logger that writes only to cfg.File, for processes that
// own the terminal. An empty File yields a no-op logger.
func NewFile(cfg config.LogConfig, debug bool) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(levelName(cfg.Level))); err != nil {
		return nil, err
	}
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := fileCore(cfg, encCfg, level)
	if core == nil {
		return zap.NewNop(), nil
	}
	return zap.New(core, options(debug)...), nil
}

func fileCore(cfg config.LogConfig, encCfg zapcore.EncoderConfig, level zap.AtomicLevel) zapcore.Core {
	f := strings.TrimSpace(cfg.File)
	if f == "" {
		return nil
	}
	w := &lj.Logger{
		Filename:   f,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), level)
}

func options(debug bool) []zap.Option {
	opts := []zap.Option{zap.AddCaller()}
	if debug {
		opts = append(opts, zap.Development())
	}
	return opts
}

func levelName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return "info"
	case "warning":
		return "warn"
	}
	return s
}
