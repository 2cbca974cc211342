package engine

import (
	"testing"

	"github.com/coregx/subpiece/model"
)

func TestCharEmitsOneSpanPerCodepoint(t *testing.T) {
	pieces := []model.Piece{
		{Bytes: []byte("<unk>"), Type: model.PieceUnknown},
		{Bytes: []byte("a"), Score: 0},
		{Bytes: []byte("é"), Score: 0},
	}
	table, err := model.NewTable(pieces, 0, -1, -1, -1)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	c, err := NewChar(table)
	if err != nil {
		t.Fatalf("NewChar: %v", err)
	}
	spans, err := c.Encode([]byte("aé"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2: %v", len(spans), spans)
	}
	if spans[0].ID != 1 || spans[1].ID != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", spans[0].ID, spans[1].ID)
	}
	if spans[0].Len != 1 || spans[1].Len != len("é") {
		t.Errorf("lens = %d, %d", spans[0].Len, spans[1].Len)
	}
}
