// Package trie implements a double-array trie: an immutable,
// sorted-key string-to-int32 map supporting exact match and
// common-prefix search in O(key length) time with no per-lookup
// allocation.
//
// The representation follows the classic Aoe (1989) base/check double
// array: tries states are array indices, and the transition from
// state s on byte code c lands at base[s]+c, valid only when
// check[base[s]+c] == s. A 257th virtual code (256) represents "a key
// ends here", which lets one state be simultaneously a complete key
// and the parent of further children (e.g. both "ab" and "abc"
// present).
//
// Grounded on the teacher's dfa package: states addressed by integer
// id into fixed-width parallel arrays, built once by a Builder and
// then only ever read.
package trie

import (
	"github.com/coregx/subpiece/model"
)

const terminalCode = 256

// Match is one result of CommonPrefixSearch: Value is the id stored
// for the matched key, Length is the number of input bytes it
// covered.
type Match struct {
	Value  int32
	Length int
}

// Trie is an immutable double-array trie built once via Build.
type Trie struct {
	base  []int32
	check []int32
	leaf  []bool

	// maxPrefixMatches is the largest number of simultaneous
	// shared-prefix matches observed for any build key, i.e. the
	// tightest CommonPrefixSearch output cap that never truncates a
	// query for one of the built keys.
	maxPrefixMatches int
}

// Build constructs a Trie over sorted, unique keys with parallel
// values. keys must already be sorted lexicographically as byte
// strings and contain no duplicates. capHint bounds the number of
// simultaneous shared-prefix matches any single build key may
// generate; Build fails with model.Internal if that bound is exceeded
// for any key, and likewise for unsorted or duplicate keys or a
// keys/values length mismatch. Pass capHint<=0 to skip the bound check
// (the cap is still tracked and reported via MaxPrefixMatches).
func Build(keys [][]byte, values []int32, capHint int) (*Trie, error) {
	if len(keys) != len(values) {
		return nil, model.NewStatus(model.Internal, "trie.Build: %d keys but %d values", len(keys), len(values))
	}
	for i := 1; i < len(keys); i++ {
		switch {
		case string(keys[i-1]) == string(keys[i]):
			return nil, model.NewStatus(model.Internal, "trie.Build: duplicate key %q", keys[i])
		case string(keys[i-1]) > string(keys[i]):
			return nil, model.NewStatus(model.Internal, "trie.Build: keys not sorted at index %d (%q > %q)", i, keys[i-1], keys[i])
		}
	}

	maxPrefix := maxPrefixChainLength(keys)
	if capHint > 0 && maxPrefix > capHint {
		return nil, model.NewStatus(model.Internal,
			"trie.Build: a build key has %d shared-prefix matches, exceeding cap %d", maxPrefix, capHint)
	}

	b := &builder{
		check: []int32{-2}, // index 0 is the root; never "free"
		base:  []int32{0},
		leaf:  []bool{false},
	}
	if len(keys) > 0 {
		b.build(0, keys, values, 0, 0, len(keys))
	}
	return &Trie{base: b.base, check: b.check, leaf: b.leaf, maxPrefixMatches: maxPrefix}, nil
}

// MaxPrefixMatches returns the largest number of simultaneous
// shared-prefix matches observed for any key passed to Build; callers
// segmenting text can size their CommonPrefixSearch scratch buffer to
// exactly this instead of guessing a fixed cap (spec's "computed at
// build time" segmentation cap).
func (t *Trie) MaxPrefixMatches() int { return t.maxPrefixMatches }

// ExactMatch returns the value stored for b, if b is one of the built
// keys.
func (t *Trie) ExactMatch(b []byte) (int32, bool) {
	state := int32(0)
	for _, c := range b {
		next := t.base[state] + int32(c)
		if !t.validChild(next, state) {
			return 0, false
		}
		state = next
	}
	term := t.base[state] + terminalCode
	if t.validChild(term, state) && t.leaf[term] {
		return t.base[term], true
	}
	return 0, false
}

// CommonPrefixSearch fills out with every prefix of b that is a built
// key (in the order discovered, shortest first), returning the number
// of matches written. It never writes past len(out); callers should
// size out using MaxPrefixMatches (or a fixed cap, e.g. 32 for
// normalization per spec §4.3).
func (t *Trie) CommonPrefixSearch(b []byte, out []Match) int {
	state := int32(0)
	n := 0
	for pos := 0; pos <= len(b); pos++ {
		term := t.base[state] + terminalCode
		if t.validChild(term, state) && t.leaf[term] {
			if n < len(out) {
				out[n] = Match{Value: t.base[term], Length: pos}
			}
			n++
		}
		if pos == len(b) {
			break
		}
		next := t.base[state] + int32(b[pos])
		if !t.validChild(next, state) || t.leaf[next] {
			break
		}
		state = next
	}
	if n > len(out) {
		return len(out)
	}
	return n
}

func (t *Trie) validChild(pos, owner int32) bool {
	return pos >= 0 && int(pos) < len(t.check) && t.check[pos] == owner
}

// maxPrefixChainLength computes, for sorted unique keys, the largest
// number of built keys that are all prefixes of one another along any
// chain (equivalently: the largest CommonPrefixSearch result size any
// build key can produce against this very key set). Runs in
// O(total key bytes) using a stack of "currently open" prefixes,
// exploiting that prefixes of a sorted key must appear immediately
// before it.
func maxPrefixChainLength(keys [][]byte) int {
	var stack [][]byte
	maxLen := 0
	for _, k := range keys {
		for len(stack) > 0 && !isPrefix(stack[len(stack)-1], k) {
			stack = stack[:len(stack)-1]
		}
		if len(stack)+1 > maxLen {
			maxLen = len(stack) + 1
		}
		stack = append(stack, k)
	}
	return maxLen
}

func isPrefix(prefix, k []byte) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, c := range prefix {
		if k[i] != c {
			return false
		}
	}
	return true
}

// builder holds the growable arrays while Build is assembling a Trie.
type builder struct {
	base, check []int32
	leaf        []bool
	nextFree    int32 // search cursor for free base slots, monotonically advances
}

// branchGroup is a run of keys[lo:hi) sharing the same byte (or the
// terminal marker) at a given depth, i.e. one child of a trie state.
type branchGroup struct {
	code   int32
	lo, hi int
}

// build assigns base[state] and recursively builds every child state
// for keys[lo:hi), all of which share a depth-byte prefix ending at
// state.
func (b *builder) build(state int32, keys [][]byte, values []int32, depth, lo, hi int) {
	var groups []branchGroup
	i := lo
	if i < hi && len(keys[i]) == depth {
		groups = append(groups, branchGroup{code: terminalCode, lo: i, hi: i + 1})
		i++
	}
	for i < hi {
		c := keys[i][depth]
		j := i + 1
		for j < hi && keys[j][depth] == c {
			j++
		}
		groups = append(groups, branchGroup{code: int32(c), lo: i, hi: j})
		i = j
	}

	base := b.findBase(groups)
	b.ensure(base, groups)
	b.base[state] = base

	// Claim every child slot before recursing, so no descendant's
	// findBase can take a slot a later sibling needs.
	for _, g := range groups {
		pos := base + g.code
		b.check[pos] = state
		b.leaf[pos] = g.code == terminalCode
		if g.code == terminalCode {
			b.base[pos] = values[g.lo]
		}
	}
	for _, g := range groups {
		if g.code != terminalCode {
			b.build(base+g.code, keys, values, depth+1, g.lo, g.hi)
		}
	}
}

// findBase returns the smallest base >= 1 such that base+g.code is
// free (unowned) for every group g, scanning forward from a rolling
// cursor so the search is amortized O(1) per state in practice.
func (b *builder) findBase(groups []branchGroup) int32 {
	if len(groups) == 0 {
		return 1
	}
	firstCode := groups[0].code
	for {
		cursor := b.nextFree
		if cursor < 1 {
			cursor = 1
		}
		candidate := cursor - firstCode
		if candidate < 1 {
			candidate = 1
		}
		if b.fits(candidate, groups) {
			b.nextFree = candidate + firstCode + 1
			return candidate
		}
		b.nextFree++
	}
}

func (b *builder) fits(base int32, groups []branchGroup) bool {
	for _, g := range groups {
		pos := base + g.code
		if pos < 0 {
			return false
		}
		if int(pos) < len(b.check) && b.check[pos] != -1 {
			return false
		}
	}
	return true
}

func (b *builder) ensure(base int32, groups []branchGroup) {
	maxPos := int32(0)
	for _, g := range groups {
		if p := base + g.code; p > maxPos {
			maxPos = p
		}
	}
	need := int(maxPos) + 1
	for len(b.check) < need {
		b.base = append(b.base, 0)
		b.check = append(b.check, -1)
		b.leaf = append(b.leaf, false)
	}
}

