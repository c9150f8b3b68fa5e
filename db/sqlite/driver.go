package sqlite

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
}

// Open creates a GORM *DB backed by a SQLite file, creating its directory.
func Open(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}
	return gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), gormConfig())
}

// OpenMemory creates a private in-memory database. Each call gets its own
// named shared-cache database so pooled connections see the same tables.
func OpenMemory() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:mem_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// one connection keeps the in-memory database alive and writes serialised
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}
