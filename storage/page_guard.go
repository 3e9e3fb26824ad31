package storage

import (
	"github.com/quilldb/quill/common"
)

// noCopy trips `go vet -copylocks` when a guard is copied. Each guard
// represents exactly one pin; a copy would release it twice.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// BasicPageGuard ties a pin's lifetime to a scope. Obtain one from
// NewPageGuarded or FetchPageBasic and release it with `defer guard.Drop()`;
// the pin is released exactly once no matter how many times Drop runs.
//
// Guards must not be copied. Go has no move-only types, so single ownership
// is enforced by convention plus the noCopy vet marker: hand the pointer off
// and stop using it, the way you would a moved-from handle.
type BasicPageGuard struct {
	noCopy  noCopy
	bpm     *BufferPoolManager
	frame   *Frame
	isDirty bool
}

// PageID returns the id of the guarded page.
func (g *BasicPageGuard) PageID() common.PageID {
	common.Assert(g.frame != nil, "use of dropped page guard")
	return g.frame.PageID()
}

// Data returns a read view of the page content.
func (g *BasicPageGuard) Data() []byte {
	common.Assert(g.frame != nil, "use of dropped page guard")
	return g.frame.Data()
}

// DataMut returns the page content for modification and records the dirty
// hint so the unpin marks the page for write-back.
func (g *BasicPageGuard) DataMut() []byte {
	common.Assert(g.frame != nil, "use of dropped page guard")
	g.isDirty = true
	return g.frame.Data()
}

// SetDirty records the dirty hint without exposing the content.
func (g *BasicPageGuard) SetDirty() {
	common.Assert(g.frame != nil, "use of dropped page guard")
	g.isDirty = true
}

// Drop releases the pin early. Idempotent: after the first call the guard is
// empty and further calls do nothing.
func (g *BasicPageGuard) Drop() {
	if g == nil || g.frame == nil {
		return
	}
	g.bpm.UnpinPage(g.frame.PageID(), g.isDirty, common.AccessUnknown)
	g.bpm = nil
	g.frame = nil
	g.isDirty = false
}

// ReadPageGuard holds a pin plus the page's content latch in shared mode.
// Dropping releases the latch first, then the pin.
type ReadPageGuard struct {
	guard BasicPageGuard
}

// PageID returns the id of the guarded page.
func (g *ReadPageGuard) PageID() common.PageID {
	return g.guard.PageID()
}

// Data returns a read view of the page content, valid until Drop.
func (g *ReadPageGuard) Data() []byte {
	return g.guard.Data()
}

// Drop releases the read latch and the pin. Idempotent.
func (g *ReadPageGuard) Drop() {
	if g == nil || g.guard.frame == nil {
		return
	}
	g.guard.frame.RUnlatch()
	g.guard.Drop()
}

// WritePageGuard holds a pin plus the page's content latch in exclusive
// mode. Dropping releases the latch first, then the pin.
type WritePageGuard struct {
	guard BasicPageGuard
}

// PageID returns the id of the guarded page.
func (g *WritePageGuard) PageID() common.PageID {
	return g.guard.PageID()
}

// Data returns a read view of the page content.
func (g *WritePageGuard) Data() []byte {
	return g.guard.Data()
}

// DataMut returns the page content for modification and records the dirty
// hint.
func (g *WritePageGuard) DataMut() []byte {
	return g.guard.DataMut()
}

// Drop releases the write latch and the pin. Idempotent.
func (g *WritePageGuard) Drop() {
	if g == nil || g.guard.frame == nil {
		return
	}
	g.guard.frame.WUnlatch()
	g.guard.Drop()
}

// NewPageGuarded allocates a fresh page and wraps its pin in a guard.
// Returns nil if no frame is available.
func (bpm *BufferPoolManager) NewPageGuarded() *BasicPageGuard {
	frame := bpm.NewPage()
	if frame == nil {
		return nil
	}
	return &BasicPageGuard{bpm: bpm, frame: frame}
}

// FetchPageBasic fetches a page and wraps its pin in a guard. Returns nil if
// no frame is available.
func (bpm *BufferPoolManager) FetchPageBasic(pid common.PageID) *BasicPageGuard {
	frame := bpm.FetchPage(pid, common.AccessUnknown)
	if frame == nil {
		return nil
	}
	return &BasicPageGuard{bpm: bpm, frame: frame}
}

// FetchPageRead fetches a page, pins it, and acquires its content latch in
// shared mode. The latch is taken after pinning and outside the pool latch,
// so a blocked latch never stalls the pool. Returns nil if no frame is
// available.
func (bpm *BufferPoolManager) FetchPageRead(pid common.PageID) *ReadPageGuard {
	frame := bpm.FetchPage(pid, common.AccessUnknown)
	if frame == nil {
		return nil
	}
	frame.RLatch()
	return &ReadPageGuard{guard: BasicPageGuard{bpm: bpm, frame: frame}}
}

// FetchPageWrite fetches a page, pins it, and acquires its content latch in
// exclusive mode. Returns nil if no frame is available.
func (bpm *BufferPoolManager) FetchPageWrite(pid common.PageID) *WritePageGuard {
	frame := bpm.FetchPage(pid, common.AccessUnknown)
	if frame == nil {
		return nil
	}
	frame.WLatch()
	return &WritePageGuard{guard: BasicPageGuard{bpm: bpm, frame: frame}}
}
