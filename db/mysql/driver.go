package mysql

import (
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultMaxOpen = 20
	defaultMaxIdle = 5
)

// Open creates a GORM *DB backed by MySQL with a connection pool. Zero pool
// settings fall back to small defaults.
func Open(dsn string, maxOpen, maxIdle int, maxLife time.Duration) (*gorm.DB, error) {
	dsn, err := normalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpen
	}
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdle
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	if maxLife > 0 {
		sqlDB.SetConnMaxLifetime(maxLife)
	}
	return db, nil
}

// normalizeDSN forces parseTime, which the timestamp columns need, and a
// 4-byte utf8 collation so dialogue text round-trips unchanged.
func normalizeDSN(dsn string) (string, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql: parse dsn: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Collation == "" || cfg.Collation == "utf8mb4_general_ci" {
		cfg.Collation = "utf8mb4_unicode_ci"
	}
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}
	return cfg.FormatDSN(), nil
}
