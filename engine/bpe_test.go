package engine

import (
	"testing"

	"github.com/coregx/subpiece/model"
)

func buildMergeTable(t *testing.T) *model.Table {
	t.Helper()
	pieces := []model.Piece{
		{Bytes: []byte("<unk>"), Type: model.PieceUnknown},
		{Bytes: []byte("a"), Score: 0},
		{Bytes: []byte("b"), Score: 0},
		{Bytes: []byte("c"), Score: 0},
		{Bytes: []byte("ab"), Score: 2.0},
		{Bytes: []byte("abc"), Score: 1.0},
	}
	table, err := model.NewTable(pieces, 0, -1, -1, -1)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return table
}

func TestBPEMergesInPriorityOrder(t *testing.T) {
	e, err := NewBPE(buildMergeTable(t))
	if err != nil {
		t.Fatalf("NewBPE: %v", err)
	}
	spans, err := e.Encode([]byte("abc"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(spans) != 1 || string(spans[0].Bytes) != "abc" {
		t.Fatalf("Encode(\"abc\") = %v, want single span \"abc\"", spans)
	}
}

func TestBPELeavesUnmergeableSymbolsAlone(t *testing.T) {
	e, err := NewBPE(buildMergeTable(t))
	if err != nil {
		t.Fatalf("NewBPE: %v", err)
	}
	spans, err := e.Encode([]byte("ba"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(spans) != 2 || string(spans[0].Bytes) != "b" || string(spans[1].Bytes) != "a" {
		t.Fatalf("Encode(\"ba\") = %v, want [b a]", spans)
	}
}
