package engine

import (
	"testing"

	"github.com/coregx/subpiece/model"
)

func buildWordTable(t *testing.T) *model.Table {
	t.Helper()
	pieces := []model.Piece{
		{Bytes: []byte("<unk>"), Type: model.PieceUnknown},
		{Bytes: []byte("▁hello"), Score: 0},
		{Bytes: []byte("▁world"), Score: 0},
	}
	table, err := model.NewTable(pieces, 0, -1, -1, -1)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return table
}

func TestWordSplitsAtMetaWhitespace(t *testing.T) {
	w, err := NewWord(buildWordTable(t))
	if err != nil {
		t.Fatalf("NewWord: %v", err)
	}
	spans, err := w.Encode([]byte("▁hello▁world"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2: %v", len(spans), spans)
	}
	if string(spans[0].Bytes) != "▁hello" || string(spans[1].Bytes) != "▁world" {
		t.Errorf("spans = %q, %q", spans[0].Bytes, spans[1].Bytes)
	}
	if spans[0].ID != 1 || spans[1].ID != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", spans[0].ID, spans[1].ID)
	}
}

func TestWordUnknownToken(t *testing.T) {
	w, err := NewWord(buildWordTable(t))
	if err != nil {
		t.Fatalf("NewWord: %v", err)
	}
	spans, err := w.Encode([]byte("▁xyz"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(spans) != 1 || spans[0].ID != 0 {
		t.Fatalf("Encode(unknown token) = %v, want single Unknown span", spans)
	}
}
