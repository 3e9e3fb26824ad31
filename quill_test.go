package quill

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quilldb/quill/common"
	"github.com/quilldb/quill/config"
)

// TestEngine_Lifecycle opens an engine, writes a page through a guard,
// closes, reopens, and reads the page back from disk.
func TestEngine_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DBFile = filepath.Join(dir, "engine.db")
	cfg.LogFile = filepath.Join(dir, "engine.wal")
	cfg.PoolSize = 4
	cfg.PageCacheBytes = 1 << 20

	engine, err := Open(cfg, nil)
	require.NoError(t, err)

	guard := engine.BufferPool.NewPageGuarded()
	require.NotNil(t, guard)
	pid := guard.PageID()
	copy(guard.DataMut(), []byte("hello quill"))
	guard.Drop()

	require.NoError(t, engine.Close())

	engine, err = Open(cfg, nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, engine.Close()) }()

	frame := engine.BufferPool.FetchPage(pid, common.AccessLookup)
	require.NotNil(t, frame)
	assert.True(t, bytes.HasPrefix(frame.Data(), []byte("hello quill")))
	require.True(t, engine.BufferPool.UnpinPage(pid, false, common.AccessLookup))
}

// TestEngine_RejectsBadConfig ensures validation runs before any file is
// touched.
func TestEngine_RejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.PoolSize = 0
	_, err := Open(cfg, nil)
	assert.Error(t, err)
}
