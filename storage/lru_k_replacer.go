package storage

import (
	"sync"

	"github.com/tidwall/btree"

	"github.com/quilldb/quill/common"
)

// lruKNode tracks the access history of one frame. history holds up to k
// timestamps, most recent first; a node with fewer than k entries has
// infinite backward K-distance and is preferred for eviction.
//
// While a node sits in the candidate tree its history must not change: the
// tree is keyed on the timestamps, so the replacer always deletes a node
// before touching its history and re-inserts it afterwards.
type lruKNode struct {
	fid       common.FrameID
	history   []uint64
	evictable bool
}

// oldest returns the earliest retained access timestamp.
func (n *lruKNode) oldest() uint64 {
	return n.history[len(n.history)-1]
}

// LRUKReplacer selects eviction victims by backward K-distance: the age of a
// frame's K-th most recent access, or infinity if the frame has been accessed
// fewer than K times. The frame with the largest K-distance is evicted first;
// ties (all infinite-distance frames tie with each other) go to the frame
// whose oldest recorded access is earliest.
//
// Victim selection is O(log n): because all K-distances are measured from the
// same instant, "largest K-distance" is equivalent to "smallest K-th most
// recent timestamp", so evictable nodes live in an ordered tree whose minimum
// is always the next victim.
//
// The replacer is independently thread-safe.
type LRUKReplacer struct {
	mu         sync.Mutex
	nodeStore  map[common.FrameID]*lruKNode
	candidates *btree.BTreeG[*lruKNode]
	currentTS  uint64
	numFrames  int
	k          int
}

// NewLRUKReplacer creates a replacer able to track up to numFrames frames.
// k must be at least 1.
func NewLRUKReplacer(numFrames int, k int) *LRUKReplacer {
	common.Assert(numFrames > 0, "replacer needs at least one frame, got %d", numFrames)
	common.Assert(k >= 1, "LRU-K requires k >= 1, got %d", k)

	less := func(a, b *lruKNode) bool {
		aInf := len(a.history) < k
		bInf := len(b.history) < k
		if aInf != bInf {
			// Infinite distance beats any finite distance.
			return aInf
		}
		if aInf {
			return a.oldest() < b.oldest()
		}
		// Both finite: larger K-distance means smaller K-th recent timestamp.
		if a.history[k-1] != b.history[k-1] {
			return a.history[k-1] < b.history[k-1]
		}
		return a.fid < b.fid
	}

	return &LRUKReplacer{
		nodeStore:  make(map[common.FrameID]*lruKNode),
		candidates: btree.NewBTreeG(less),
		numFrames:  numFrames,
		k:          k,
	}
}

// RecordAccess notes an access to the frame at the current timestamp,
// creating its node on first access. Accessing a frame id outside
// [0, numFrames) is an invariant violation.
func (r *LRUKReplacer) RecordAccess(fid common.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.currentTS++
	common.Assert(int(fid) < r.numFrames, "frame id %d out of range (replacer tracks %d frames)", fid, r.numFrames)

	node, ok := r.nodeStore[fid]
	if !ok {
		node = &lruKNode{fid: fid, history: []uint64{r.currentTS}}
		r.nodeStore[fid] = node
		return
	}

	if node.evictable {
		r.candidates.Delete(node)
	}
	node.history = append([]uint64{r.currentTS}, node.history...)
	if len(node.history) > r.k {
		node.history = node.history[:r.k]
	}
	if node.evictable {
		r.candidates.Set(node)
	}
}

// SetEvictable toggles whether the frame may be chosen as a victim.
// Idempotent. The frame must have been accessed at least once.
func (r *LRUKReplacer) SetEvictable(fid common.FrameID, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.nodeStore[fid]
	common.Assert(ok, "set_evictable on untracked frame %d", fid)
	if node.evictable == evictable {
		return
	}
	node.evictable = evictable
	if evictable {
		r.candidates.Set(node)
	} else {
		r.candidates.Delete(node)
	}
}

// Remove drops a frame's access history entirely. Removing an untracked
// frame is a no-op; removing a non-evictable frame is an invariant violation.
func (r *LRUKReplacer) Remove(fid common.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.nodeStore[fid]
	if !ok {
		return
	}
	common.Assert(node.evictable, "remove of non-evictable frame %d", fid)
	r.candidates.Delete(node)
	delete(r.nodeStore, fid)
}

// Evict selects the victim with the largest backward K-distance, removes its
// history, and returns its frame id. Returns false if no frame is evictable.
func (r *LRUKReplacer) Evict() (common.FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.candidates.Min()
	if !ok {
		return 0, false
	}
	r.candidates.Delete(node)
	delete(r.nodeStore, node.fid)
	return node.fid, true
}

// Size returns the number of evictable frames.
func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.candidates.Len()
}
