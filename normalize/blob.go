package normalize

import (
	"encoding/binary"

	"github.com/coregx/subpiece/model"
	"github.com/coregx/subpiece/trie"
)

// Encode serializes r as the spec §3 normalization rule blob: a u32
// little-endian length N, N bytes of double-array trie image, then
// the NUL-separated replacement pool.
func (r *Rules) Encode() []byte {
	image := r.t.Marshal()
	out := make([]byte, 4+len(image)+len(r.pool))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(image)))
	copy(out[4:], image)
	copy(out[4+len(image):], r.pool)
	return out
}

// DecodeRuleBlob parses a blob produced by Encode (or by the upstream
// precompiled_charsmap compiler). An empty blob decodes to the
// identity Rules. A length-prefix inconsistent with the remaining
// bytes is an Internal error (spec §4.3 "Failure modes: corrupt rule
// blob").
func DecodeRuleBlob(blob []byte) (*Rules, error) {
	if len(blob) == 0 {
		return Empty, nil
	}
	if len(blob) < 4 {
		return nil, model.NewStatus(model.Internal, "normalize: rule blob too short (%d bytes)", len(blob))
	}
	n := int(binary.LittleEndian.Uint32(blob[0:4]))
	if n < 0 || 4+n > len(blob) {
		return nil, model.NewStatus(model.Internal, "normalize: rule blob length prefix %d inconsistent with blob size %d", n, len(blob))
	}
	t, err := trie.Unmarshal(blob[4 : 4+n])
	if err != nil {
		return nil, model.Wrap(model.Internal, err, "normalize: decoding trie image")
	}
	pool := append([]byte(nil), blob[4+n:]...)
	return &Rules{t: t, pool: pool}, nil
}
