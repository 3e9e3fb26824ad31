// Package trie implements a persistent (copy-on-write) prefix map from byte
// strings to values, plus a concurrent store that serves versioned snapshot
// reads over it.
package trie

import (
	"github.com/benbjohnson/immutable"
)

// node is either an inner node (no value) or a valued node. Children live in
// an immutable map, so cloning a node along a write path shares every
// untouched subtree and the children map's own internal structure. Published
// nodes are never mutated.
type node[T any] struct {
	children *immutable.Map[byte, *node[T]]
	value    *T
}

func emptyChildren[T any]() *immutable.Map[byte, *node[T]] {
	return immutable.NewMap[byte, *node[T]](nil)
}

// Trie is an immutable prefix map. The zero value is an empty trie. Put and
// Remove return new tries; the receiver's view never changes. The empty key
// addresses the root.
type Trie[T any] struct {
	root *node[T]
}

// New returns an empty trie.
func New[T any]() Trie[T] {
	return Trie[T]{}
}

// Get returns the value mapped to key, if any.
func (t Trie[T]) Get(key string) (T, bool) {
	cur := t.root
	for i := 0; i < len(key) && cur != nil; i++ {
		next, ok := cur.children.Get(key[i])
		if !ok {
			cur = nil
			break
		}
		cur = next
	}
	if cur == nil || cur.value == nil {
		var zero T
		return zero, false
	}
	return *cur.value, true
}

// Put returns a trie in which key maps to value. Only the nodes on the path
// from the root to the terminal are new; everything else is shared with the
// receiver. An existing terminal keeps its children.
func (t Trie[T]) Put(key string, value T) Trie[T] {
	v := value
	return Trie[T]{root: put(t.root, key, &v)}
}

func put[T any](n *node[T], key string, value *T) *node[T] {
	children := emptyChildren[T]()
	var existing *T
	if n != nil {
		children = n.children
		existing = n.value
	}
	if len(key) == 0 {
		return &node[T]{children: children, value: value}
	}
	child, _ := children.Get(key[0])
	newChild := put(child, key[1:], value)
	return &node[T]{children: children.Set(key[0], newChild), value: existing}
}

// Remove returns a trie in which key is unmapped. A terminal with children
// becomes an inner node; a childless terminal's edge is removed from its
// parent. Removing an absent key returns the receiver unchanged.
func (t Trie[T]) Remove(key string) Trie[T] {
	newRoot, changed := remove(t.root, key)
	if !changed {
		return t
	}
	return Trie[T]{root: newRoot}
}

// remove returns the replacement for n (nil means n's edge disappears) and
// whether anything changed. An unchanged subtree is returned as-is so the
// caller keeps sharing it.
func remove[T any](n *node[T], key string) (*node[T], bool) {
	if n == nil {
		return nil, false
	}
	if len(key) == 0 {
		if n.value == nil {
			return n, false
		}
		if n.children.Len() == 0 {
			return nil, true
		}
		return &node[T]{children: n.children}, true
	}
	child, ok := n.children.Get(key[0])
	if !ok {
		return n, false
	}
	newChild, changed := remove(child, key[1:])
	if !changed {
		return n, false
	}
	var children *immutable.Map[byte, *node[T]]
	if newChild == nil {
		children = n.children.Delete(key[0])
	} else {
		children = n.children.Set(key[0], newChild)
	}
	return &node[T]{children: children, value: n.value}, true
}
