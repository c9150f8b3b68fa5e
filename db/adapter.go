// Package db opens the gorm database that persists flags, choices, event
// unlocks and the backlog.
package db

import (
	"fmt"

	"github.com/kasuganosora/scenarioplayer/config"
	dbmysql "github.com/kasuganosora/scenarioplayer/db/mysql"
	dbsqlite "github.com/kasuganosora/scenarioplayer/db/sqlite"
	"gorm.io/gorm"
)

const (
	ModeSQLite       = "sqlite"
	ModeSQLiteMemory = "sqlite_memory"
	ModeMySQL        = "mysql"
)

// Open returns a *gorm.DB for the configured database mode.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeSQLiteMemory:
		return dbsqlite.OpenMemory()
	case ModeMySQL:
		return dbmysql.Open(cfg.MySQLDSN, cfg.MySQLMaxOpen, cfg.MySQLMaxIdle, cfg.MySQLMaxLife)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
