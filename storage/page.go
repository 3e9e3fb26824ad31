package storage

import (
	"sync"

	"github.com/quilldb/quill/common"
)

// Frame is a fixed-size in-memory slot able to hold one disk page, plus the
// bookkeeping the buffer pool needs to manage it: the identity of the
// resident page, a pin count gating eviction, a dirty flag gating write-back,
// and a reader-writer latch protecting the page content.
//
// The bookkeeping fields (pageID, pinCount, isDirty) are owned by the buffer
// pool and only ever written under the pool's latch; the exported accessors
// read them without taking that latch. The content
// latch is an orthogonal mechanism used by the guard layer: it is acquired
// after pinning and released before unpinning, never while holding the pool
// latch.
type Frame struct {
	data     [common.PageSize]byte
	pageID   common.PageID
	pinCount uint32
	isDirty  bool
	latch    sync.RWMutex
}

// PageID returns the id of the page currently resident in the frame, or
// InvalidPageID if the frame is free.
func (f *Frame) PageID() common.PageID {
	return f.pageID
}

// PinCount returns the number of outstanding pins on the frame.
func (f *Frame) PinCount() uint32 {
	return f.pinCount
}

// IsDirty reports whether the frame's contents differ from the on-disk copy.
func (f *Frame) IsDirty() bool {
	return f.isDirty
}

// Data returns the page content. Callers must hold a pin, and must
// coordinate concurrent access through the content latch (or the read/write
// guards, which do so automatically).
func (f *Frame) Data() []byte {
	return f.data[:]
}

// RLatch acquires the content latch in shared mode.
func (f *Frame) RLatch() { f.latch.RLock() }

// RUnlatch releases a shared content latch.
func (f *Frame) RUnlatch() { f.latch.RUnlock() }

// WLatch acquires the content latch in exclusive mode.
func (f *Frame) WLatch() { f.latch.Lock() }

// WUnlatch releases an exclusive content latch.
func (f *Frame) WUnlatch() { f.latch.Unlock() }

// resetMemory zeroes the page content.
func (f *Frame) resetMemory() {
	for i := range f.data {
		f.data[i] = 0
	}
}
