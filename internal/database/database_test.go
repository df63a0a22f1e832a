package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbots/programmable/internal/config"
	"github.com/gridbots/programmable/internal/model"
)

func TestConnectSqlite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "archive.db")
	m := NewManager(zerolog.Nop())

	err := m.Connect(config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{Path: path},
	})
	require.NoError(t, err)
	defer m.Close()

	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	assert.FileExists(t, path)

	require.NoError(t, m.Setup())
	for _, tbl := range model.DatabaseModels {
		assert.True(t, m.DB.Migrator().HasTable(tbl))
	}
}

func TestConnectInMemory(t *testing.T) {
	m := NewManager(zerolog.Nop())

	require.NoError(t, m.Connect(config.StorageConfig{Type: "sqlite"}))
	defer m.Close()
	require.NoError(t, m.Setup())

	require.NoError(t, m.DB.Create(&model.ProgramRecord{ObjectID: 1, Source: "{ }"}).Error)
	var count int64
	require.NoError(t, m.DB.Model(&model.ProgramRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestConnectUnknownType(t *testing.T) {
	m := NewManager(zerolog.Nop())

	err := m.Connect(config.StorageConfig{Type: "oracle"})
	assert.Error(t, err)
	assert.False(t, m.IsValid)
}

func TestSetupWithoutConnection(t *testing.T) {
	m := NewManager(zerolog.Nop())

	assert.Error(t, m.Setup())
	assert.NoError(t, m.Close())
}
