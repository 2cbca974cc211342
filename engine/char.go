package engine

import (
	"github.com/coregx/subpiece/model"
	"github.com/coregx/subpiece/utf8x"
)

// Char emits one node per codepoint, each looked up independently in
// the piece table (spec §4.4.4).
type Char struct {
	tableBacked
	matcher *userDefinedMatcher
}

func NewChar(table *model.Table) (*Char, error) {
	matcher, err := newUserDefinedMatcher(table)
	if err != nil {
		return nil, err
	}
	return &Char{tableBacked: tableBacked{table: table}, matcher: matcher}, nil
}

func (e *Char) Encode(normalized []byte) ([]Span, error) {
	var out []Span
	for _, seg := range e.matcher.split(normalized) {
		if seg.isMatch {
			out = append(out, Span{Bytes: normalized[seg.pos:seg.end], ID: seg.id, Pos: seg.pos, Len: seg.end - seg.pos})
			continue
		}
		for i := seg.pos; i < seg.end; {
			_, size := utf8x.Decode(normalized[i:seg.end])
			b := normalized[i : i+size]
			out = append(out, Span{Bytes: b, ID: e.table.PieceToID(b), Pos: i, Len: size})
			i += size
		}
	}
	return out, nil
}
