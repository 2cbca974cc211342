package engine

import (
	"github.com/coregx/ahocorasick"
	"github.com/coregx/subpiece/model"
)

// userDefinedMatcher locates UserDefined pieces in normalized text
// ahead of whichever segmentation algorithm runs next (spec §4.4,
// first paragraph). Built once at processor-construction time and
// reused read-only across Encode calls, mirroring the teacher's reuse
// of a single *ahocorasick.Automaton across repeated Find calls in
// meta.Engine (meta/find.go).
type userDefinedMatcher struct {
	automaton *ahocorasick.Automaton // nil when the table has no UserDefined pieces
	table     *model.Table
}

func newUserDefinedMatcher(table *model.Table) (*userDefinedMatcher, error) {
	var patterns [][]byte
	for id := int32(0); int(id) < table.Size(); id++ {
		if table.Type(id) == model.PieceUserDefined {
			patterns = append(patterns, table.IDToPiece(id))
		}
	}
	if len(patterns) == 0 {
		return &userDefinedMatcher{table: table}, nil
	}
	b := ahocorasick.NewBuilder()
	for _, p := range patterns {
		b.AddPattern(p)
	}
	auto, err := b.Build()
	if err != nil {
		return nil, model.Wrap(model.Internal, err, "engine: building user-defined automaton")
	}
	return &userDefinedMatcher{automaton: auto, table: table}, nil
}

// segment is one chunk of normalized: either a UserDefined piece
// (isMatch true, with its resolved id) or a gap to hand to the
// underlying engine's own algorithm.
type segment struct {
	pos, end int
	isMatch  bool
	id       int32
}

// split partitions normalized[0:len(normalized)] into an alternating
// sequence of UserDefined matches and gaps, leftmost match first, no
// overlaps (spec §4.4 "user-defined prefix matcher").
func (m *userDefinedMatcher) split(normalized []byte) []segment {
	if m.automaton == nil {
		if len(normalized) == 0 {
			return nil
		}
		return []segment{{pos: 0, end: len(normalized)}}
	}
	var segs []segment
	pos := 0
	for pos < len(normalized) {
		match := m.automaton.Find(normalized, pos)
		if match == nil {
			segs = append(segs, segment{pos: pos, end: len(normalized)})
			break
		}
		if match.Start > pos {
			segs = append(segs, segment{pos: pos, end: match.Start})
		}
		id := m.table.PieceToID(normalized[match.Start:match.End])
		segs = append(segs, segment{pos: match.Start, end: match.End, isMatch: true, id: id})
		pos = match.End
	}
	return segs
}
