package storage

import (
	"sync"

	mapset "github.com/deckarep/golang-set"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/quilldb/quill/common"
	"github.com/quilldb/quill/logging"
)

// BufferPoolManager caches disk pages in a bounded pool of frames sitting
// between the access methods and the disk manager. It owns the page-id to
// frame-id directory, the free list, the LRU-K replacer, and every frame's
// pin/dirty bookkeeping.
//
// A single mutex serializes all public operations, and disk I/O happens while
// holding it. That trades throughput for simplicity: there are no in-flight
// states to reason about, and no operation can observe a frame mid-transition.
// A higher-throughput design would perform I/O outside the latch behind
// per-frame "I/O in progress" markers and shard the page table.
type BufferPoolManager struct {
	latch       sync.Mutex
	poolSize    int
	frames      []Frame
	replacer    *LRUKReplacer
	pageTable   map[common.PageID]common.FrameID
	frameToPage map[common.FrameID]common.PageID
	freeList    []common.FrameID
	nextPageID  common.PageID
	usedPageIDs mapset.Set

	disk       DiskManager
	logManager *logging.LogManager
	logger     *zap.Logger

	// Statistics are kept in striped counters so monitoring can read them
	// without taking the pool latch.
	hits      *xsync.Counter
	misses    *xsync.Counter
	evictions *xsync.Counter
	flushes   *xsync.Counter
}

// PoolStats is a point-in-time snapshot of the pool's counters.
type PoolStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Flushes   int64
}

// NewBufferPoolManager creates a pool of poolSize frames over the given disk
// manager, with an LRU-K replacer parameterized by replacerK. The log manager
// handle is retained for callers that expect the pool to carry one; the pool
// itself never invokes it. A nil logger disables logging.
func NewBufferPoolManager(poolSize int, disk DiskManager, replacerK int, logManager *logging.LogManager, logger *zap.Logger) *BufferPoolManager {
	common.Assert(poolSize > 0, "buffer pool needs at least one frame, got %d", poolSize)
	if logger == nil {
		logger = zap.NewNop()
	}

	bpm := &BufferPoolManager{
		poolSize:    poolSize,
		frames:      make([]Frame, poolSize),
		replacer:    NewLRUKReplacer(poolSize, replacerK),
		pageTable:   make(map[common.PageID]common.FrameID, poolSize),
		frameToPage: make(map[common.FrameID]common.PageID, poolSize),
		freeList:    make([]common.FrameID, 0, poolSize),
		usedPageIDs: mapset.NewThreadUnsafeSet(),
		disk:        disk,
		logManager:  logManager,
		logger:      logger,
		hits:        xsync.NewCounter(),
		misses:      xsync.NewCounter(),
		evictions:   xsync.NewCounter(),
		flushes:     xsync.NewCounter(),
	}
	for i := 0; i < poolSize; i++ {
		bpm.frames[i].pageID = common.InvalidPageID
		bpm.freeList = append(bpm.freeList, common.FrameID(i))
	}
	return bpm
}

// NewPage allocates a fresh page, pins it in a frame, and returns the frame.
// Returns nil if every frame is pinned and nothing can be evicted.
func (bpm *BufferPoolManager) NewPage() *Frame {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	fid, ok := bpm.obtainFrameLocked()
	if !ok {
		return nil
	}

	pid := bpm.allocatePageIDLocked()
	bpm.pageTable[pid] = fid
	bpm.frameToPage[fid] = pid
	bpm.usedPageIDs.Add(pid)

	frame := &bpm.frames[fid]
	frame.pageID = pid
	frame.resetMemory()
	// The disk manager guarantees zero-on-read for never-written ids, so this
	// read is a no-op for a brand-new page but keeps the path identical to a
	// fetch miss.
	err := bpm.disk.ReadPage(pid, frame.data[:])
	common.Assert(err == nil, "disk read of page %d failed: %v", pid, err)
	frame.pinCount = 1
	frame.isDirty = false

	bpm.replacer.RecordAccess(fid)
	bpm.replacer.SetEvictable(fid, false)
	return frame
}

// FetchPage pins the page with the given id, reading it from disk if it is
// not resident. Returns nil if no frame can be obtained for a non-resident
// page.
func (bpm *BufferPoolManager) FetchPage(pid common.PageID, _ common.AccessType) *Frame {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	fid, resident := bpm.pageTable[pid]
	if !resident {
		fid, resident = bpm.obtainFrameLocked()
		if !resident {
			return nil
		}
		bpm.pageTable[pid] = fid
		bpm.frameToPage[fid] = pid
		bpm.usedPageIDs.Add(pid)

		frame := &bpm.frames[fid]
		frame.pageID = pid
		// The shared tail below increments the pin; pre-set zero so a miss
		// ends up at exactly one pin.
		frame.pinCount = 0
		frame.isDirty = false
		frame.resetMemory()
		err := bpm.disk.ReadPage(pid, frame.data[:])
		common.Assert(err == nil, "disk read of page %d failed: %v", pid, err)
		bpm.misses.Inc()
	} else {
		bpm.hits.Inc()
	}

	frame := &bpm.frames[fid]
	frame.pinCount++
	bpm.replacer.RecordAccess(fid)
	bpm.replacer.SetEvictable(fid, frame.pinCount == 0)
	return frame
}

// UnpinPage releases one pin on the page. If isDirty is set the page is
// marked modified so it will be written back before its frame is reused.
// Returns false if the page is not resident or already has no pins.
func (bpm *BufferPoolManager) UnpinPage(pid common.PageID, isDirty bool, _ common.AccessType) bool {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()

	fid, ok := bpm.pageTable[pid]
	if !ok {
		return false
	}
	frame := &bpm.frames[fid]
	if frame.pinCount == 0 {
		bpm.logger.Warn("unpin of unpinned page", zap.Int32("page", int32(pid)))
		return false
	}
	frame.pinCount--
	if isDirty {
		frame.isDirty = true
	}
	bpm.replacer.SetEvictable(fid, frame.pinCount == 0)
	return true
}

// FlushPage writes the page back to disk if it is dirty and clears the dirty
// flag. Returns false only if the page is not resident.
func (bpm *BufferPoolManager) FlushPage(pid common.PageID) bool {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()
	return bpm.flushPageLocked(pid)
}

// FlushAllPages writes every resident dirty page back to disk.
func (bpm *BufferPoolManager) FlushAllPages() {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()
	for pid := range bpm.pageTable {
		bpm.flushPageLocked(pid)
	}
}

// DeletePage evicts the page from the pool and frees its frame. Returns true
// if the page is not resident (nothing to do) and false if it is pinned.
func (bpm *BufferPoolManager) DeletePage(pid common.PageID) bool {
	bpm.latch.Lock()
	defer bpm.latch.Unlock()
	return bpm.deletePageLocked(pid)
}

// Stats returns a snapshot of the pool counters. Does not take the latch.
func (bpm *BufferPoolManager) Stats() PoolStats {
	return PoolStats{
		Hits:      bpm.hits.Value(),
		Misses:    bpm.misses.Value(),
		Evictions: bpm.evictions.Value(),
		Flushes:   bpm.flushes.Value(),
	}
}

// PoolSize returns the number of frames in the pool.
func (bpm *BufferPoolManager) PoolSize() int {
	return bpm.poolSize
}

// DiskManager returns the underlying disk manager.
func (bpm *BufferPoolManager) DiskManager() DiskManager {
	return bpm.disk
}

// obtainFrameLocked produces a free frame, evicting a victim if the free
// list is empty. Returns false if no frame is evictable either.
func (bpm *BufferPoolManager) obtainFrameLocked() (common.FrameID, bool) {
	if len(bpm.freeList) == 0 {
		fid, ok := bpm.replacer.Evict()
		if !ok {
			return 0, false
		}
		victim, ok := bpm.frameToPage[fid]
		common.Assert(ok, "evicted frame %d has no page table entry", fid)
		common.Assert(bpm.deletePageLocked(victim), "eviction of unpinned page %d failed", victim)
		bpm.evictions.Inc()
		bpm.logger.Debug("evicted page",
			zap.Int32("page", int32(victim)),
			zap.Uint32("frame", uint32(fid)))
	}
	common.Assert(len(bpm.freeList) > 0, "free list empty after successful eviction")

	fid := bpm.freeList[0]
	bpm.freeList = bpm.freeList[1:]
	return fid, true
}

// allocatePageIDLocked hands out the next unused page id. Ids are never
// freed, so the skip loop usually steps past only the previously allocated
// id; ids that FetchPage marked in use ahead of the counter are skipped too.
func (bpm *BufferPoolManager) allocatePageIDLocked() common.PageID {
	for bpm.usedPageIDs.Contains(bpm.nextPageID) {
		bpm.nextPageID++
	}
	return bpm.nextPageID
}

func (bpm *BufferPoolManager) flushPageLocked(pid common.PageID) bool {
	fid, ok := bpm.pageTable[pid]
	if !ok {
		return false
	}
	frame := &bpm.frames[fid]
	if frame.isDirty {
		err := bpm.disk.WritePage(pid, frame.data[:])
		common.Assert(err == nil, "disk write of page %d failed: %v", pid, err)
		frame.isDirty = false
		bpm.flushes.Inc()
	}
	return true
}

func (bpm *BufferPoolManager) deletePageLocked(pid common.PageID) bool {
	fid, ok := bpm.pageTable[pid]
	if !ok {
		return true
	}
	frame := &bpm.frames[fid]
	if frame.pinCount > 0 {
		return false
	}

	bpm.flushPageLocked(pid)

	frame.resetMemory()
	frame.pageID = common.InvalidPageID
	frame.pinCount = 0
	frame.isDirty = false

	bpm.replacer.Remove(fid)
	delete(bpm.pageTable, pid)
	delete(bpm.frameToPage, fid)
	bpm.freeList = append(bpm.freeList, fid)
	return true
}
