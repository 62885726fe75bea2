// Package exact implements the exact-match confirmation structure: a byte
// trie over reversed-label domain keys. It has no false positives and exists
// to confirm or refute approximate-filter hits.
package exact

import "github.com/kvasov/domshield/repos/blockset"

type node struct {
	children map[byte]*node
	terminal bool
}

// Trie stores reversed-label keys. A stored key matches itself and every
// deeper subdomain: inserting "com.evil" matches "com.evil", "com.evil.sub"
// and "com.evil.sub.deep", but not "com.evilx".
type Trie struct {
	root *node
	n    uint64
}

// New returns an empty trie.
func New() *Trie {
	return &Trie{root: &node{}}
}

// Insert walks/creates one node per byte of the reversed key and marks the
// final node terminal. Inserting a key twice is a no-op for Len.
func (t *Trie) Insert(reversedKey string) {
	if reversedKey == "" {
		return
	}
	cur := t.root
	for i := 0; i < len(reversedKey); i++ {
		c := reversedKey[i]
		if cur.children == nil {
			cur.children = make(map[byte]*node)
		}
		next, ok := cur.children[c]
		if !ok {
			next = &node{}
			cur.children[c] = next
		}
		cur = next
	}
	if !cur.terminal {
		cur.terminal = true
		t.n++
	}
}

// ContainsAnyPrefixOf walks the reversed query byte by byte and returns the
// first stored key that covers it. A terminal node only counts when the walk
// sits on a label boundary, so "com.evil" covers "com.evil.sub" but not
// "com.evilx". Returns false as soon as a required child edge is missing.
func (t *Trie) ContainsAnyPrefixOf(reversedQuery string) (string, bool) {
	cur := t.root
	for i := 0; i < len(reversedQuery); i++ {
		next, ok := cur.children[reversedQuery[i]]
		if !ok {
			return "", false
		}
		cur = next
		if cur.terminal && (i == len(reversedQuery)-1 || reversedQuery[i+1] == '.') {
			return reversedQuery[:i+1], true
		}
	}
	return "", false
}

// Len returns the number of stored keys.
func (t *Trie) Len() uint64 { return t.n }

var _ blockset.ExactIndex = (*Trie)(nil)
