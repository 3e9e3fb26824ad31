package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quilldb/quill/common"
)

// TestPageGuard_Basic walks a basic guard through its lifecycle: the guard
// adds a pin on top of the raw NewPage pin and Drop removes exactly it.
func TestPageGuard_Basic(t *testing.T) {
	bpm := newTestPool(t, 5, 2)

	f := bpm.NewPage()
	require.NotNil(t, f)
	pid := f.PageID()
	assert.Equal(t, uint32(1), f.PinCount())

	guard := bpm.FetchPageBasic(pid)
	require.NotNil(t, guard)
	assert.Equal(t, pid, guard.PageID())
	assert.Equal(t, uint32(2), f.PinCount())

	guard.Drop()
	assert.Equal(t, uint32(1), f.PinCount(), "dropping the guard releases only its own pin")

	guard.Drop()
	assert.Equal(t, uint32(1), f.PinCount(), "Drop is idempotent")
}

// TestPageGuard_NewPageGuarded checks the guarded allocation path end to
// end, including the dirty hint flowing into the unpin.
func TestPageGuard_NewPageGuarded(t *testing.T) {
	bpm := newTestPool(t, 5, 2)

	guard := bpm.NewPageGuarded()
	require.NotNil(t, guard)
	copy(guard.DataMut(), []byte("guarded"))
	pid := guard.PageID()
	guard.Drop()

	bpm.latch.Lock()
	fid := bpm.pageTable[pid]
	dirty := bpm.frames[fid].isDirty
	bpm.latch.Unlock()
	assert.True(t, dirty, "DataMut must propagate the dirty hint on drop")

	f := bpm.FetchPage(pid, common.AccessUnknown)
	require.NotNil(t, f)
	assert.Equal(t, uint32(1), f.PinCount(), "guard pin was fully released")
}

// TestPageGuard_ReadersCoexist verifies the latch contract: two read
// guards for the same page coexist, and a write guard blocks until both are
// dropped.
func TestPageGuard_ReadersCoexist(t *testing.T) {
	bpm := newTestPool(t, 5, 2)

	f := bpm.NewPage()
	require.NotNil(t, f)
	pid := f.PageID()
	require.True(t, bpm.UnpinPage(pid, false, common.AccessUnknown))

	r1 := bpm.FetchPageRead(pid)
	require.NotNil(t, r1)
	r2 := bpm.FetchPageRead(pid)
	require.NotNil(t, r2)
	assert.Equal(t, uint32(2), f.PinCount())

	acquired := make(chan struct{})
	go func() {
		w := bpm.FetchPageWrite(pid)
		close(acquired)
		w.Drop()
	}()

	select {
	case <-acquired:
		t.Fatal("write guard acquired while read guards are held")
	case <-time.After(20 * time.Millisecond):
	}

	r1.Drop()
	select {
	case <-acquired:
		t.Fatal("write guard acquired while a read guard is still held")
	case <-time.After(20 * time.Millisecond):
	}

	r2.Drop()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("write guard did not proceed after all read guards dropped")
	}
}

// TestPageGuard_WriterExcludesReader is the mirror case: a held write guard
// stalls a reader until dropped.
func TestPageGuard_WriterExcludesReader(t *testing.T) {
	bpm := newTestPool(t, 5, 2)

	f := bpm.NewPage()
	require.NotNil(t, f)
	pid := f.PageID()
	require.True(t, bpm.UnpinPage(pid, false, common.AccessUnknown))

	w := bpm.FetchPageWrite(pid)
	require.NotNil(t, w)
	copy(w.DataMut(), []byte("writer"))

	acquired := make(chan struct{})
	done := make(chan struct{})
	go func() {
		r := bpm.FetchPageRead(pid)
		close(acquired)
		r.Drop()
		close(done)
	}()

	select {
	case <-acquired:
		t.Fatal("read guard acquired while the write guard is held")
	case <-time.After(20 * time.Millisecond):
	}

	w.Drop()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("read guard did not proceed after the write guard dropped")
	}

	<-done
	assert.Equal(t, uint32(0), f.PinCount(), "all guard pins released")
}

// TestPageGuard_DropRestoresEvictability makes sure a page whose guards are
// all dropped becomes evictable again.
func TestPageGuard_DropRestoresEvictability(t *testing.T) {
	bpm := newTestPool(t, 1, 2)

	guard := bpm.NewPageGuarded()
	require.NotNil(t, guard)

	assert.Nil(t, bpm.NewPage(), "pinned page must block the only frame")

	guard.Drop()
	assert.NotNil(t, bpm.NewPage(), "dropping the guard frees the frame for eviction")
}

// TestPageGuard_ReadGuardData sanity-checks the read view through a guard.
func TestPageGuard_ReadGuardData(t *testing.T) {
	bpm := newTestPool(t, 5, 2)

	w := bpm.NewPageGuarded()
	require.NotNil(t, w)
	pid := w.PageID()
	copy(w.DataMut(), []byte("visible"))
	w.Drop()

	r := bpm.FetchPageRead(pid)
	require.NotNil(t, r)
	assert.Equal(t, []byte("visible"), r.Data()[:7])
	assert.Equal(t, pid, r.PageID())
	r.Drop()
	r.Drop()
}
