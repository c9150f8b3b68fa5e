package mysql

import (
	"testing"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDSN(t *testing.T) {
	dsn, err := normalizeDSN("player:secret@tcp(db:3306)/story")
	require.NoError(t, err)

	cfg, err := gomysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, "utf8mb4_unicode_ci", cfg.Collation)
	assert.Equal(t, "story", cfg.DBName)
	assert.Equal(t, "db:3306", cfg.Addr)
}

func TestNormalizeDSNKeepsExplicitCollation(t *testing.T) {
	dsn, err := normalizeDSN("u@tcp(localhost:3306)/s?collation=utf8mb4_bin")
	require.NoError(t, err)
	cfg, err := gomysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "utf8mb4_bin", cfg.Collation)
}

func TestNormalizeDSNRejectsGarbage(t *testing.T) {
	_, err := normalizeDSN("not a dsn")
	assert.Error(t, err)
}
