package model

import "testing"

func samplePieces() []Piece {
	return []Piece{
		{Bytes: []byte("<unk>"), Type: PieceUnknown},
		{Bytes: []byte("<s>"), Type: PieceControl},
		{Bytes: []byte("</s>"), Type: PieceControl},
		{Bytes: []byte("a"), Score: 0, Type: PieceNormal},
		{Bytes: []byte("b"), Score: 0.3, Type: PieceNormal},
		{Bytes: []byte("ab"), Score: 1.0, Type: PieceNormal},
	}
}

func TestNewTableValid(t *testing.T) {
	tbl, err := NewTable(samplePieces(), 0, 1, 2, -1)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if tbl.Size() != 6 {
		t.Fatalf("Size() = %d, want 6", tbl.Size())
	}
	if id := tbl.PieceToID([]byte("ab")); id != 5 {
		t.Errorf("PieceToID(ab) = %d, want 5", id)
	}
	if id := tbl.PieceToID([]byte("<s>")); id != 1 {
		t.Errorf("PieceToID(<s>) = %d, want 1", id)
	}
	if id := tbl.PieceToID([]byte("zzz")); id != tbl.UnkID() {
		t.Errorf("PieceToID(zzz) = %d, want unk id %d", id, tbl.UnkID())
	}
	if !tbl.IsControl(1) {
		t.Error("IsControl(1) = false, want true")
	}
	if !tbl.IsUnknown(0) {
		t.Error("IsUnknown(0) = false, want true")
	}
}

func TestNewTableRejectsMissingUnknown(t *testing.T) {
	pieces := []Piece{{Bytes: []byte("a"), Type: PieceNormal}}
	if _, err := NewTable(pieces, -1, -1, -1, -1); err == nil {
		t.Fatal("expected error for table with no Unknown piece")
	}
}

func TestNewTableRejectsDuplicateBytes(t *testing.T) {
	pieces := []Piece{
		{Bytes: []byte("<unk>"), Type: PieceUnknown},
		{Bytes: []byte("a"), Type: PieceNormal},
		{Bytes: []byte("a"), Type: PieceNormal},
	}
	if _, err := NewTable(pieces, 0, -1, -1, -1); err == nil {
		t.Fatal("expected error for duplicate piece bytes")
	}
}

func TestNewTableRejectsEmptyBytes(t *testing.T) {
	pieces := []Piece{
		{Bytes: []byte("<unk>"), Type: PieceUnknown},
		{Bytes: nil, Type: PieceNormal},
	}
	if _, err := NewTable(pieces, 0, -1, -1, -1); err == nil {
		t.Fatal("expected error for empty piece bytes")
	}
}

func TestNewTableRejectsUnkIDMismatch(t *testing.T) {
	pieces := []Piece{
		{Bytes: []byte("<unk>"), Type: PieceUnknown},
		{Bytes: []byte("a"), Type: PieceNormal},
	}
	if _, err := NewTable(pieces, 1, -1, -1, -1); err == nil {
		t.Fatal("expected error when unk id references a non-Unknown piece")
	}
}

func TestIDToPieceOutOfRange(t *testing.T) {
	tbl, err := NewTable(samplePieces(), 0, 1, 2, -1)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if p := tbl.IDToPiece(999); p != nil {
		t.Errorf("IDToPiece(999) = %q, want nil", p)
	}
	if s := tbl.Score(999); s != 0 {
		t.Errorf("Score(999) = %v, want 0", s)
	}
}
