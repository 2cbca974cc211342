package engine

import (
	"testing"

	"github.com/coregx/subpiece/model"
)

func TestUserDefinedMatcherSplitsAroundMatches(t *testing.T) {
	pieces := []model.Piece{
		{Bytes: []byte("<unk>"), Type: model.PieceUnknown},
		{Bytes: []byte("a"), Score: 0},
		{Bytes: []byte("b"), Score: 0},
		{Bytes: []byte("<sep>"), Type: model.PieceUserDefined},
	}
	table, err := model.NewTable(pieces, 0, -1, -1, -1)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	m, err := newUserDefinedMatcher(table)
	if err != nil {
		t.Fatalf("newUserDefinedMatcher: %v", err)
	}
	segs := m.split([]byte("a<sep>b"))
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3: %+v", len(segs), segs)
	}
	if segs[0].isMatch || segs[0].pos != 0 || segs[0].end != 1 {
		t.Errorf("segment 0 = %+v, want gap [0,1)", segs[0])
	}
	if !segs[1].isMatch || segs[1].pos != 1 || segs[1].end != 6 || segs[1].id != 3 {
		t.Errorf("segment 1 = %+v, want match [1,6) id 3", segs[1])
	}
	if segs[2].isMatch || segs[2].pos != 6 || segs[2].end != 7 {
		t.Errorf("segment 2 = %+v, want gap [6,7)", segs[2])
	}
}

func TestUserDefinedMatcherNoPatterns(t *testing.T) {
	pieces := []model.Piece{
		{Bytes: []byte("<unk>"), Type: model.PieceUnknown},
		{Bytes: []byte("a"), Score: 0},
	}
	table, err := model.NewTable(pieces, 0, -1, -1, -1)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	m, err := newUserDefinedMatcher(table)
	if err != nil {
		t.Fatalf("newUserDefinedMatcher: %v", err)
	}
	segs := m.split([]byte("aaa"))
	if len(segs) != 1 || segs[0].isMatch || segs[0].pos != 0 || segs[0].end != 3 {
		t.Fatalf("segs = %+v, want single gap [0,3)", segs)
	}
}
