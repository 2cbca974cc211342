package engine

import (
	"bytes"

	"github.com/coregx/subpiece/model"
	"github.com/coregx/subpiece/utf8x"
)

// metaWhitespace is U+2581 ("▁"), the byte encoding of an ASCII space
// in normalized text.
var metaWhitespace = []byte{0xE2, 0x96, 0x81}

// Word splits normalized at every meta-whitespace boundary, keeping
// the leading meta-whitespace attached to the following token (spec
// §4.4.3).
type Word struct {
	tableBacked
	matcher *userDefinedMatcher
}

func NewWord(table *model.Table) (*Word, error) {
	matcher, err := newUserDefinedMatcher(table)
	if err != nil {
		return nil, err
	}
	return &Word{tableBacked: tableBacked{table: table}, matcher: matcher}, nil
}

func (e *Word) Encode(normalized []byte) ([]Span, error) {
	var out []Span
	for _, seg := range e.matcher.split(normalized) {
		if seg.isMatch {
			out = append(out, Span{Bytes: normalized[seg.pos:seg.end], ID: seg.id, Pos: seg.pos, Len: seg.end - seg.pos})
			continue
		}
		out = append(out, e.splitGap(normalized, seg.pos, seg.end)...)
	}
	return out, nil
}

func (e *Word) splitGap(normalized []byte, pos, end int) []Span {
	var spans []Span
	tokenStart := pos
	for i := pos; i < end; {
		if i != tokenStart && bytes.HasPrefix(normalized[i:end], metaWhitespace) {
			spans = append(spans, e.lookup(normalized, tokenStart, i))
			tokenStart = i
		}
		_, size := utf8x.Decode(normalized[i:end])
		i += size
	}
	if tokenStart < end {
		spans = append(spans, e.lookup(normalized, tokenStart, end))
	}
	return spans
}

func (e *Word) lookup(normalized []byte, start, end int) Span {
	b := normalized[start:end]
	return Span{Bytes: b, ID: e.table.PieceToID(b), Pos: start, Len: end - start}
}
