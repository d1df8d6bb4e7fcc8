package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/booking-engine/internal/config"
)

func TestNewGormDB_SQLite(t *testing.T) {
	gdb, err := NewGormDB(&config.DBConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)

	assert.False(t, IsPostgres(gdb))
	assert.NoError(t, Ping(context.Background(), gdb))

	var n int
	require.NoError(t, gdb.Raw("SELECT 1").Scan(&n).Error)
	assert.Equal(t, 1, n)
}
