// Package engine implements the four segmentation engines (Unigram,
// BPE, Word, Char) that turn normalized bytes into an ordered
// sequence of piece spans (spec §4.4).
//
// Grounded on the teacher's regex.go tagged-dispatch idea generalized
// from one compiled pattern's multiple possible backends to four
// segmentation strategies behind one Engine interface.
package engine

import "github.com/coregx/subpiece/model"

// Span is one emitted piece: its surface bytes, vocabulary id, and
// byte offsets into the normalized input it was produced from.
// Concatenating Bytes across a full Encode result reproduces the
// normalized input exactly (spec §4.4).
type Span struct {
	Bytes []byte
	ID    int32
	Pos   int
	Len   int
}

// Engine is the shared segmentation contract every model type
// implements.
type Engine interface {
	Encode(normalized []byte) ([]Span, error)
	PieceToID(b []byte) int32
	IDToPiece(id int32) []byte
	Score(id int32) float32
}

// tableBacked is embedded by every concrete engine to provide the
// three pure-lookup operations directly from the shared piece table.
type tableBacked struct {
	table *model.Table
}

func (t tableBacked) PieceToID(b []byte) int32  { return t.table.PieceToID(b) }
func (t tableBacked) IDToPiece(id int32) []byte { return t.table.IDToPiece(id) }
func (t tableBacked) Score(id int32) float32    { return t.table.Score(id) }
