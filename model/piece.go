package model

import (
	"strconv"

	"github.com/coregx/subpiece/trie"
	"github.com/coregx/subpiece/utf8x"
)

// PieceType is the role a Piece plays in the vocabulary (spec §3).
type PieceType int

const (
	PieceNormal PieceType = iota
	PieceUnknown
	PieceControl
	PieceUserDefined
	PieceUnused
	PieceByte
)

func (t PieceType) String() string {
	switch t {
	case PieceNormal:
		return "NORMAL"
	case PieceUnknown:
		return "UNKNOWN"
	case PieceControl:
		return "CONTROL"
	case PieceUserDefined:
		return "USER_DEFINED"
	case PieceUnused:
		return "UNUSED"
	case PieceByte:
		return "BYTE"
	default:
		return "UNKNOWN_TYPE"
	}
}

// Piece is one entry of the vocabulary: its UTF-8 bytes, a log-
// probability/merge-rank score, and its type. A piece's id is its
// position in a Table.
type Piece struct {
	Bytes []byte
	Score float32
	Type  PieceType
}

// Table is the ordered, authoritative id<->piece mapping plus the
// reserved-id lookup for Control/Unknown/UserDefined pieces (spec §3
// "Reserved-id map").
type Table struct {
	pieces []Piece

	unkID, bosID, eosID, padID int32 // -1 if disabled

	reserved map[string]int32 // Control/Unknown/UserDefined bytes -> id
	normal   *trie.Trie        // Normal+UserDefined bytes -> id, for segmentation

	byteID [256]int32 // raw byte value -> Byte piece id, -1 if byte_fallback is off or that byte is unmapped
}

// NewTable validates pieces and the four reserved ids against spec §3
// and builds the lookup structures used by PieceToID/segmentation.
func NewTable(pieces []Piece, unkID, bosID, eosID, padID int32) (*Table, error) {
	if err := validatePieces(pieces); err != nil {
		return nil, err
	}
	for _, id := range []struct {
		name string
		v    int32
	}{{"unk", unkID}, {"bos", bosID}, {"eos", eosID}, {"pad", padID}} {
		if id.v >= 0 && int(id.v) >= len(pieces) {
			return nil, NewStatus(InvalidArgument, "model: %s id %d out of range (table has %d pieces)", id.name, id.v, len(pieces))
		}
	}
	if unkID >= 0 && pieces[unkID].Type != PieceUnknown {
		return nil, NewStatus(InvalidArgument, "model: unk id %d does not reference an Unknown piece", unkID)
	}

	reserved := map[string]int32{}
	var normalKeys [][]byte
	var normalVals []int32
	var byteID [256]int32
	for i := range byteID {
		byteID[i] = -1
	}
	for id, p := range pieces {
		switch p.Type {
		case PieceControl, PieceUnknown, PieceUserDefined:
			reserved[string(p.Bytes)] = int32(id)
			if p.Type == PieceUserDefined {
				normalKeys = append(normalKeys, p.Bytes)
				normalVals = append(normalVals, int32(id))
			}
		case PieceNormal:
			normalKeys = append(normalKeys, p.Bytes)
			normalVals = append(normalVals, int32(id))
		case PieceByte:
			if v, ok := parseBytePiece(p.Bytes); ok {
				byteID[v] = int32(id)
			}
		case PieceUnused:
			// Not reachable through ordinary segmentation lookup.
		}
	}

	sortByKey(normalKeys, normalVals)
	normalTrie, err := trie.Build(normalKeys, normalVals, 0)
	if err != nil {
		return nil, Wrap(Internal, err, "model: building segmentation trie")
	}

	return &Table{
		pieces:   pieces,
		unkID:    unkID,
		bosID:    bosID,
		eosID:    eosID,
		padID:    padID,
		reserved: reserved,
		normal:   normalTrie,
		byteID:   byteID,
	}, nil
}

// parseBytePiece recovers the raw byte value a Byte-typed piece
// represents from its printable "<0xXX>" surface text (spec §6, §12
// "Byte-fallback pieces"). Byte pieces store this ASCII text, not the
// raw byte itself, so every piece stays valid UTF-8 per validatePieces.
func parseBytePiece(b []byte) (byte, bool) {
	if len(b) != 6 || string(b[:3]) != "<0x" || b[5] != '>' {
		return 0, false
	}
	v, err := strconv.ParseUint(string(b[3:5]), 16, 8)
	if err != nil {
		return 0, false
	}
	return byte(v), true
}

func validatePieces(pieces []Piece) error {
	seen := map[string]bool{}
	unkCount := 0
	for i, p := range pieces {
		if len(p.Bytes) == 0 {
			return NewStatus(InvalidArgument, "model: piece %d has empty bytes", i)
		}
		if !utf8x.IsStructurallyValid(p.Bytes) {
			return NewStatus(InvalidArgument, "model: piece %d (%q) is not valid UTF-8", i, p.Bytes)
		}
		key := string(p.Bytes)
		if seen[key] {
			return NewStatus(InvalidArgument, "model: duplicate piece %q", p.Bytes)
		}
		seen[key] = true
		if p.Type == PieceUnknown {
			unkCount++
		}
	}
	if unkCount != 1 {
		return NewStatus(InvalidArgument, "model: table must have exactly one Unknown piece, found %d", unkCount)
	}
	return nil
}

// sortByKey sorts keys/values together by key, required before
// trie.Build.
func sortByKey(keys [][]byte, values []int32) {
	type kv = struct {
		k []byte
		v int32
	}
	items := make([]kv, len(keys))
	for i := range keys {
		items[i] = kv{keys[i], values[i]}
	}
	insertionSortKV(items)
	for i, it := range items {
		keys[i] = it.k
		values[i] = it.v
	}
}

func insertionSortKV(items []struct {
	k []byte
	v int32
}) {
	for i := 1; i < len(items); i++ {
		j := i
		for j > 0 && string(items[j-1].k) > string(items[j].k) {
			items[j-1], items[j] = items[j], items[j-1]
			j--
		}
	}
}

func (t *Table) Size() int { return len(t.pieces) }

func (t *Table) Piece(id int32) Piece { return t.pieces[id] }

func (t *Table) IDToPiece(id int32) []byte {
	if id < 0 || int(id) >= len(t.pieces) {
		return nil
	}
	return t.pieces[id].Bytes
}

func (t *Table) Score(id int32) float32 {
	if id < 0 || int(id) >= len(t.pieces) {
		return 0
	}
	return t.pieces[id].Score
}

func (t *Table) Type(id int32) PieceType {
	if id < 0 || int(id) >= len(t.pieces) {
		return PieceUnknown
	}
	return t.pieces[id].Type
}

// PieceToID looks up bytes among reserved (Control/Unknown/
// UserDefined) pieces first, then Normal pieces, returning UnkID if
// absent from both (spec §4.4 piece_to_id contract).
func (t *Table) PieceToID(b []byte) int32 {
	if id, ok := t.reserved[string(b)]; ok {
		return id
	}
	if id, ok := t.normal.ExactMatch(b); ok {
		return id
	}
	return t.unkID
}

func (t *Table) UnkID() int32 { return t.unkID }
func (t *Table) BosID() int32 { return t.bosID }
func (t *Table) EosID() int32 { return t.eosID }
func (t *Table) PadID() int32 { return t.padID }

// SegmentationTrie exposes the Normal+UserDefined trie the
// segmentation engines walk (spec §4.4.1 "Builds a double-array trie
// from all Normal+UserDefined pieces").
func (t *Table) SegmentationTrie() *trie.Trie { return t.normal }

// ByteID returns the id of the Byte-typed piece representing raw byte
// b, or -1 if byte_fallback pieces were not built into this table.
func (t *Table) ByteID(b byte) int32 { return t.byteID[b] }

// HasByteFallback reports whether this table carries at least one
// Byte-typed piece, which turns on the Unigram/BPE encoders' fallback
// to per-byte pieces for otherwise-uncovered bytes (spec §12
// "Byte-fallback pieces").
func (t *Table) HasByteFallback() bool {
	for _, id := range t.byteID {
		if id >= 0 {
			return true
		}
	}
	return false
}

func (t *Table) IsControl(id int32) bool { return t.Type(id) == PieceControl }
func (t *Table) IsUnknown(id int32) bool { return t.Type(id) == PieceUnknown }
func (t *Table) IsUnused(id int32) bool  { return t.Type(id) == PieceUnused }
