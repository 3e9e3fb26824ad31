package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProps(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quill.properties")
	require.NoError(t, os.WriteFile(path, []byte(content), 0666))
	return path
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 64, cfg.PoolSize)
	assert.Equal(t, 2, cfg.ReplacerK)
	assert.Equal(t, "quill.db", cfg.DBFile)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Load(t *testing.T) {
	path := writeProps(t, `
pool.size = 128
replacer.k = 3
db.file = /tmp/engine.db
page.cache.bytes = 1048576
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.PoolSize)
	assert.Equal(t, 3, cfg.ReplacerK)
	assert.Equal(t, "/tmp/engine.db", cfg.DBFile)
	assert.Equal(t, int64(1048576), cfg.PageCacheBytes)
	assert.Equal(t, "quill.wal", cfg.LogFile, "unset keys keep their defaults")
}

func TestConfig_Invalid(t *testing.T) {
	_, err := Load(writeProps(t, "pool.size = 0\n"))
	assert.Error(t, err)

	_, err = Load(writeProps(t, "replacer.k = 0\n"))
	assert.Error(t, err)

	_, err = Load(writeProps(t, "page.cache.bytes = -1\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.properties"))
	assert.Error(t, err)
}
