package model

import (
	"bytes"
	"testing"
)

func TestVocabTSVRoundTrip(t *testing.T) {
	pieces := []Piece{
		{Bytes: []byte("<unk>"), Score: 0},
		{Bytes: []byte("a"), Score: -1.5},
		{Bytes: []byte("line\nbreak"), Score: 2},
	}
	var buf bytes.Buffer
	if err := WriteVocabTSV(&buf, pieces); err != nil {
		t.Fatalf("WriteVocabTSV: %v", err)
	}
	got, err := ReadVocabTSV(&buf)
	if err != nil {
		t.Fatalf("ReadVocabTSV: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d rows, want 3", len(got))
	}
	if got[1].Piece != "a" || got[1].Score != -1.5 {
		t.Errorf("row 1 = %+v, want {a -1.5}", got[1])
	}
	if got[2].Piece != "line break" {
		t.Errorf("row 2 piece = %q, want newline escaped to space", got[2].Piece)
	}
}

func TestReadVocabTSVRejectsMalformedLine(t *testing.T) {
	if _, err := ReadVocabTSV(bytes.NewReader([]byte("noscorehere\n"))); err == nil {
		t.Fatal("expected error for line with no tab separator")
	}
}
