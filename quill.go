// Package quill wires the storage engine core together: a file-backed disk
// manager, the append-only log, and the buffer pool serving page access to
// everything above it.
package quill

import (
	"go.uber.org/zap"

	"github.com/quilldb/quill/config"
	"github.com/quilldb/quill/logging"
	"github.com/quilldb/quill/storage"
)

// Engine is the top-level container for the storage core.
type Engine struct {
	Config      config.Config
	DiskManager *storage.FileDiskManager
	LogManager  *logging.LogManager
	BufferPool  *storage.BufferPoolManager
	logger      *zap.Logger
}

// Open builds an engine from the given configuration. A nil logger disables
// logging.
func Open(cfg config.Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	diskManager, err := storage.NewFileDiskManager(cfg.DBFile, cfg.PageCacheBytes, logger)
	if err != nil {
		return nil, err
	}
	logManager, err := logging.NewLogManager(cfg.LogFile)
	if err != nil {
		_ = diskManager.Shutdown()
		return nil, err
	}

	bufferPool := storage.NewBufferPoolManager(cfg.PoolSize, diskManager, cfg.ReplacerK, logManager, logger)
	logger.Info("engine opened",
		zap.Int("pool_size", cfg.PoolSize),
		zap.Int("replacer_k", cfg.ReplacerK),
		zap.String("db_file", cfg.DBFile))

	return &Engine{
		Config:      cfg,
		DiskManager: diskManager,
		LogManager:  logManager,
		BufferPool:  bufferPool,
		logger:      logger,
	}, nil
}

// Close flushes every resident page and shuts the collaborators down.
func (e *Engine) Close() error {
	e.BufferPool.FlushAllPages()
	if err := e.LogManager.Close(); err != nil {
		_ = e.DiskManager.Shutdown()
		return err
	}
	if err := e.DiskManager.Shutdown(); err != nil {
		return err
	}
	e.logger.Info("engine closed")
	return nil
}
