// Package config loads engine options from Java-style .properties files.
package config

import (
	"fmt"

	"github.com/magiconair/properties"
)

// Config carries the options recognized by the storage engine core.
type Config struct {
	// PoolSize is the number of frames in the buffer pool.
	PoolSize int `properties:"pool.size,default=64"`
	// ReplacerK is the K parameter of the LRU-K replacement policy.
	ReplacerK int `properties:"replacer.k,default=2"`
	// DBFile is the path of the page file backing the disk manager.
	DBFile string `properties:"db.file,default=quill.db"`
	// PageCacheBytes bounds the disk manager's read cache. Zero disables it.
	PageCacheBytes int64 `properties:"page.cache.bytes,default=0"`
	// LogFile is the path of the append-only log.
	LogFile string `properties:"log.file,default=quill.wal"`
}

// Default returns the configuration used when no properties file is given.
func Default() Config {
	return Config{
		PoolSize:  64,
		ReplacerK: 2,
		DBFile:    "quill.db",
		LogFile:   "quill.wal",
	}
}

// Load reads a properties file and decodes it into a Config. Keys not present
// in the file keep their defaults.
func Load(path string) (Config, error) {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := p.Decode(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects option combinations the engine cannot run with.
func (c Config) Validate() error {
	if c.PoolSize < 1 {
		return fmt.Errorf("pool.size must be at least 1, got %d", c.PoolSize)
	}
	if c.ReplacerK < 1 {
		return fmt.Errorf("replacer.k must be at least 1, got %d", c.ReplacerK)
	}
	if c.PageCacheBytes < 0 {
		return fmt.Errorf("page.cache.bytes must not be negative, got %d", c.PageCacheBytes)
	}
	return nil
}
