package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Assets   AssetsConfig   `mapstructure:"assets"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Backlog  BacklogConfig  `mapstructure:"backlog"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int     `mapstructure:"port"`
	Debug          bool    `mapstructure:"debug"`
	AdminKey       string  `mapstructure:"admin_key"` // empty disables /api/admin
	FrameMs        int     `mapstructure:"frame_ms"` // session tick interval
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	// AllowedOrigins lists the SSE origins that are permitted.
	// An empty slice allows all origins (useful for local development only).
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	IRCacheTTL     time.Duration `mapstructure:"ir_cache_ttl"`
	// SessionIdle closes sessions that saw no request for this long.
	SessionIdle time.Duration `mapstructure:"session_idle"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | sqlite_memory | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

// AssetsConfig locates scripts and presentation assets on disk.
type AssetsConfig struct {
	Root          string `mapstructure:"root"`           // asset root: bg/, chara/, bgm/, se/
	ScriptDir     string `mapstructure:"script_dir"`     // *.txt scenario scripts
	CharacterFile string `mapstructure:"character_file"` // YAML id → display name registry
	ScriptExt     string `mapstructure:"script_ext"`
}

// PlaybackConfig holds reveal timing and layout. Times are milliseconds.
type PlaybackConfig struct {
	Profile          string `mapstructure:"profile"` // flag/save slot
	CharDelay        int    `mapstructure:"char_delay"`
	PunctuationDelay int    `mapstructure:"punctuation_delay"`
	ParagraphDelay   int    `mapstructure:"paragraph_delay"`
	SkipDivisor      int    `mapstructure:"skip_divisor"`
	AutoWait         int    `mapstructure:"auto_wait"`
	MaxScrollBlocks  int    `mapstructure:"max_scroll_blocks"`
	TranscriptWidth  int    `mapstructure:"transcript_width"`
	FallbackText     string `mapstructure:"fallback_text"`
}

// BacklogConfig tunes the asynchronous history writer.
type BacklogConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	RecentLines   int           `mapstructure:"recent_lines"` // mirrored into the cache list
}

type LogConfig struct {
	Level      string `mapstructure:"level"`  // debug | info | warn | error
	Format     string `mapstructure:"format"` // console | json
	File       string `mapstructure:"file"`   // empty = stderr only
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.frame_ms", 16)
	v.SetDefault("server.rate_limit_rps", 100)
	v.SetDefault("server.rate_limit_burst", 200)
	v.SetDefault("server.ir_cache_ttl", "10m")
	v.SetDefault("server.session_idle", "30m")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/player.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("assets.root", "./assets")
	v.SetDefault("assets.script_dir", "./assets/scenario")
	v.SetDefault("assets.character_file", "./assets/characters.yaml")
	v.SetDefault("assets.script_ext", ".txt")
	v.SetDefault("playback.profile", "default")
	v.SetDefault("playback.char_delay", 40)
	v.SetDefault("playback.punctuation_delay", 300)
	v.SetDefault("playback.paragraph_delay", 500)
	v.SetDefault("playback.skip_divisor", 50)
	v.SetDefault("playback.auto_wait", 1500)
	v.SetDefault("playback.max_scroll_blocks", 3)
	v.SetDefault("playback.transcript_width", 60)
	v.SetDefault("playback.fallback_text", "……")
	v.SetDefault("backlog.batch_size", 100)
	v.SetDefault("backlog.flush_interval", "2s")
	v.SetDefault("backlog.recent_lines", 200)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)
}

// Load reads config from the given YAML file path. An empty path yields the
// defaults. Environment variables prefixed with SCENARIO_ override file
// values (SCENARIO_SERVER_PORT=9000).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("scenario")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		// defaults alone always decode
		panic(err)
	}
	return cfg
}
