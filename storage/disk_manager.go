package storage

import (
	"io"
	"os"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"

	"github.com/quilldb/quill/common"
)

// DiskManager abstracts the block device backing the buffer pool. Reads of
// pages that were never written must observe zeros: the buffer pool reads a
// freshly allocated page from disk before its first write and relies on this
// zero-on-read contract.
//
// Implementations must be safe for concurrent use.
type DiskManager interface {
	// ReadPage reads the page identified by pid into buf. The slice must be
	// exactly common.PageSize bytes.
	ReadPage(pid common.PageID, buf []byte) error
	// WritePage writes buf to the page identified by pid. The slice must be
	// exactly common.PageSize bytes.
	WritePage(pid common.PageID, buf []byte) error
	// Shutdown flushes and releases underlying resources. Idempotent.
	Shutdown() error
}

// FileDiskManager stores pages in a single OS file at offset pid*PageSize.
// Writes past the current end extend the file; reads past it return zeros,
// which gives never-written pages the required zero-on-read behavior for
// free.
//
// An optional ristretto read cache absorbs repeated reads of the same page.
// Writes invalidate the cached copy rather than update it, so the cache can
// never serve stale data: a read after a write either hits the file or a
// copy installed after the write.
type FileDiskManager struct {
	file   *os.File
	cache  *ristretto.Cache[int64, []byte]
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

var _ DiskManager = (*FileDiskManager)(nil)

// NewFileDiskManager opens (or creates) the page file at path. cacheBytes
// bounds the read cache; zero disables caching. A nil logger disables
// logging.
func NewFileDiskManager(path string, cacheBytes int64, logger *zap.Logger) (*FileDiskManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, err
	}
	dm := &FileDiskManager{file: f, logger: logger}
	if cacheBytes > 0 {
		// 10 counters per expected page keeps the admission stats useful.
		numCounters := 10 * (cacheBytes / int64(common.PageSize))
		if numCounters < 64 {
			numCounters = 64
		}
		cache, err := ristretto.NewCache(&ristretto.Config[int64, []byte]{
			NumCounters: numCounters,
			MaxCost:     cacheBytes,
			BufferItems: 64,
		})
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		dm.cache = cache
	}
	return dm, nil
}

// ReadPage reads the page into buf, consulting the read cache first.
func (dm *FileDiskManager) ReadPage(pid common.PageID, buf []byte) error {
	common.Assert(len(buf) == common.PageSize, "read buffer must be exactly one page")
	common.Assert(pid.IsValid(), "read of invalid page id")

	if dm.cache != nil {
		if cached, ok := dm.cache.Get(int64(pid)); ok {
			copy(buf, cached)
			return nil
		}
	}

	offset := int64(pid) * int64(common.PageSize)
	n, err := dm.file.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return err
	}
	// Anything past the end of the file has never been written: zero it.
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}

	if dm.cache != nil {
		cached := make([]byte, common.PageSize)
		copy(cached, buf)
		dm.cache.Set(int64(pid), cached, int64(common.PageSize))
	}
	return nil
}

// WritePage writes buf to the page's file offset and drops any cached copy.
func (dm *FileDiskManager) WritePage(pid common.PageID, buf []byte) error {
	common.Assert(len(buf) == common.PageSize, "write buffer must be exactly one page")
	common.Assert(pid.IsValid(), "write of invalid page id")

	offset := int64(pid) * int64(common.PageSize)
	if _, err := dm.file.WriteAt(buf, offset); err != nil {
		return err
	}
	if dm.cache != nil {
		dm.cache.Del(int64(pid))
	}
	return nil
}

// Shutdown syncs and closes the page file. Safe to call more than once.
func (dm *FileDiskManager) Shutdown() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.closed {
		return nil
	}
	dm.closed = true
	if dm.cache != nil {
		dm.cache.Close()
	}
	if err := dm.file.Sync(); err != nil {
		_ = dm.file.Close()
		return err
	}
	dm.logger.Debug("disk manager shut down")
	return dm.file.Close()
}

// MemoryDiskManager keeps pages in a map. It exists for tests that should
// not touch the filesystem, and mirrors the zero-on-read contract of the
// file-backed manager.
type MemoryDiskManager struct {
	mu    sync.Mutex
	pages map[common.PageID][]byte
}

var _ DiskManager = (*MemoryDiskManager)(nil)

// NewMemoryDiskManager returns an empty in-memory disk manager.
func NewMemoryDiskManager() *MemoryDiskManager {
	return &MemoryDiskManager{pages: make(map[common.PageID][]byte)}
}

func (dm *MemoryDiskManager) ReadPage(pid common.PageID, buf []byte) error {
	common.Assert(len(buf) == common.PageSize, "read buffer must be exactly one page")
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if page, ok := dm.pages[pid]; ok {
		copy(buf, page)
		return nil
	}
	for i := range buf {
		buf[i] = 0
	}
	return nil
}

func (dm *MemoryDiskManager) WritePage(pid common.PageID, buf []byte) error {
	common.Assert(len(buf) == common.PageSize, "write buffer must be exactly one page")
	dm.mu.Lock()
	defer dm.mu.Unlock()
	page := make([]byte, common.PageSize)
	copy(page, buf)
	dm.pages[pid] = page
	return nil
}

func (dm *MemoryDiskManager) Shutdown() error {
	return nil
}
