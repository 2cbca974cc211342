package model

import (
	"bytes"
	"testing"
)

func sampleArtifact() *Artifact {
	ts := DefaultTrainerSpec()
	ts.Input = []string{"corpus.txt"}
	ts.ControlSymbols = []string{"<ctrl>"}
	ts.UserDefinedSymbols = []string{"<sep>"}
	ts.SplitByNumber = false // deliberately differs from DefaultTrainerSpec's true

	ns := DefaultNormalizerSpec()
	ns.NormalizationRuleTSV = []byte("a\tb\n")

	return &Artifact{
		Trainer:    ts,
		Normalizer: ns,
		Pieces: []Piece{
			{Bytes: []byte("<unk>"), Type: PieceUnknown},
			{Bytes: []byte("<s>"), Type: PieceControl},
			{Bytes: []byte("</s>"), Type: PieceControl},
			{Bytes: []byte("a"), Score: 0, Type: PieceNormal},
			{Bytes: []byte("ab"), Score: -1.5, Type: PieceNormal},
		},
		SelfTest: []SelfTestEntry{{Input: "abc", Expected: "a b c"}},
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	a := sampleArtifact()
	var buf bytes.Buffer
	if _, err := a.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	got, err := ReadArtifact(&buf)
	if err != nil {
		t.Fatalf("ReadArtifact: %v", err)
	}
	if len(got.Pieces) != len(a.Pieces) {
		t.Fatalf("got %d pieces, want %d", len(got.Pieces), len(a.Pieces))
	}
	for i, p := range a.Pieces {
		if string(got.Pieces[i].Bytes) != string(p.Bytes) || got.Pieces[i].Type != p.Type || got.Pieces[i].Score != p.Score {
			t.Errorf("piece %d = %+v, want %+v", i, got.Pieces[i], p)
		}
	}
	if got.Trainer.VocabSize != a.Trainer.VocabSize {
		t.Errorf("VocabSize = %d, want %d", got.Trainer.VocabSize, a.Trainer.VocabSize)
	}
	if got.Trainer.SplitByNumber != false {
		t.Errorf("SplitByNumber = %v, want false (explicit false must survive round trip)", got.Trainer.SplitByNumber)
	}
	if got.Trainer.SplitByWhitespace != true {
		t.Errorf("SplitByWhitespace = %v, want true", got.Trainer.SplitByWhitespace)
	}
	if len(got.Trainer.ControlSymbols) != 1 || got.Trainer.ControlSymbols[0] != "<ctrl>" {
		t.Errorf("ControlSymbols = %v, want [<ctrl>]", got.Trainer.ControlSymbols)
	}
	if got.Normalizer.Name != a.Normalizer.Name {
		t.Errorf("Normalizer.Name = %q, want %q", got.Normalizer.Name, a.Normalizer.Name)
	}
	if string(got.Normalizer.NormalizationRuleTSV) != string(a.Normalizer.NormalizationRuleTSV) {
		t.Errorf("NormalizationRuleTSV mismatch")
	}
	if len(got.SelfTest) != 1 || got.SelfTest[0].Input != "abc" {
		t.Errorf("SelfTest = %v, want one entry with input abc", got.SelfTest)
	}
	if got.Trainer.UnkID != a.Trainer.UnkID || got.Trainer.PadID != a.Trainer.PadID {
		t.Errorf("reserved ids mismatch: got unk=%d pad=%d, want unk=%d pad=%d",
			got.Trainer.UnkID, got.Trainer.PadID, a.Trainer.UnkID, a.Trainer.PadID)
	}
}

func TestReadArtifactSkipsUnknownFields(t *testing.T) {
	a := sampleArtifact()
	var buf bytes.Buffer
	if _, err := a.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	var w wireWriter
	w.stringField(99, "from-the-future")
	body := append(buf.Bytes(), w.Bytes()...)

	got, err := ReadArtifact(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("ReadArtifact with trailing unknown field: %v", err)
	}
	if len(got.Pieces) != len(a.Pieces) {
		t.Fatalf("got %d pieces, want %d", len(got.Pieces), len(a.Pieces))
	}
}

func TestReadArtifactRejectsMissingPieces(t *testing.T) {
	a := sampleArtifact()
	a.Pieces = nil
	var buf bytes.Buffer
	if _, err := a.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if _, err := ReadArtifact(&buf); err == nil {
		t.Fatal("expected error for artifact with no pieces")
	}
}

func TestReadArtifactRejectsTruncated(t *testing.T) {
	a := sampleArtifact()
	var buf bytes.Buffer
	if _, err := a.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	truncated := buf.Bytes()[:buf.Len()/2]
	if _, err := ReadArtifact(bytes.NewReader(truncated)); err == nil {
		t.Fatal("expected error for truncated artifact")
	}
}
