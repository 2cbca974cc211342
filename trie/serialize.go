package trie

import (
	"encoding/binary"

	"github.com/coregx/subpiece/model"
)

// Marshal encodes the trie's internal arrays as a self-contained byte
// image: a u32 element count, followed by (base int32, check int32,
// leaf byte) triples. This is the "double-array trie image" embedded
// in the normalization rule blob (spec §3); it is a private wire
// format, not required to match any external schema.
func (t *Trie) Marshal() []byte {
	n := len(t.base)
	buf := make([]byte, 4+n*9)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(n))
	off := 4
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(buf[off:], uint32(t.base[i]))
		binary.LittleEndian.PutUint32(buf[off+4:], uint32(t.check[i]))
		if t.leaf[i] {
			buf[off+8] = 1
		}
		off += 9
	}
	return buf
}

// Unmarshal decodes a byte image produced by Marshal. It returns
// model.ErrDataLoss on a truncated or size-inconsistent image.
func Unmarshal(data []byte) (*Trie, error) {
	if len(data) < 4 {
		return nil, model.Wrap(model.DataLoss, nil, "trie.Unmarshal: image too short (%d bytes)", len(data))
	}
	n := int(binary.LittleEndian.Uint32(data[0:4]))
	want := 4 + n*9
	if len(data) != want {
		return nil, model.NewStatus(model.DataLoss, "trie.Unmarshal: expected %d bytes for %d states, got %d", want, n, len(data))
	}
	base := make([]int32, n)
	check := make([]int32, n)
	leaf := make([]bool, n)
	off := 4
	maxPrefix := 0
	for i := 0; i < n; i++ {
		base[i] = int32(binary.LittleEndian.Uint32(data[off:]))
		check[i] = int32(binary.LittleEndian.Uint32(data[off+4:]))
		leaf[i] = data[off+8] != 0
		off += 9
	}
	t := &Trie{base: base, check: check, leaf: leaf, maxPrefixMatches: maxPrefix}
	t.maxPrefixMatches = t.recomputeMaxPrefixMatches()
	return t, nil
}

// recomputeMaxPrefixMatches walks every leaf's depth by re-deriving it
// from the root; used only after Unmarshal, since the image doesn't
// carry the original build-time bound.
func (t *Trie) recomputeMaxPrefixMatches() int {
	max := 0
	var walk func(state int32, hits int)
	walk = func(state int32, hits int) {
		term := t.base[state] + terminalCode
		if t.validChild(term, state) && t.leaf[term] {
			hits++
		}
		if hits > max {
			max = hits
		}
		for c := int32(0); c < terminalCode; c++ {
			next := t.base[state] + c
			if t.validChild(next, state) && !t.leaf[next] {
				walk(next, hits)
			}
		}
	}
	if len(t.base) > 0 {
		walk(0, 0)
	}
	return max
}
