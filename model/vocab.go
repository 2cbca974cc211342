package model

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// PieceScore is one row of a vocabulary TSV file: a piece's surface
// bytes and its score, without the type information a full Artifact
// carries.
type PieceScore struct {
	Piece string
	Score float32
}

// escapePairs lists the non-printable bytes spec.md §6 requires a
// vocabulary TSV to replace with a space, in the fixed order the
// original sentencepiece `SentencePieceText::DebugString`-derived
// vocab writer applies them.
var escapePairs = []struct {
	from byte
	to   byte
}{
	{'\n', ' '},
	{'\r', ' '},
	{'\v', ' '},
	{'\f', ' '},
	{'\b', ' '},
}

func escapeVocabPiece(s string) string {
	for _, p := range escapePairs {
		s = strings.ReplaceAll(s, string(p.from), string(p.to))
	}
	return s
}

// WriteVocabTSV writes `piece\tscore\n` per line in id order (spec
// §4.9/§6).
func WriteVocabTSV(w io.Writer, pieces []Piece) error {
	bw := bufio.NewWriter(w)
	for _, p := range pieces {
		line := fmt.Sprintf("%s\t%s\n", escapeVocabPiece(string(p.Bytes)), strconv.FormatFloat(float64(p.Score), 'g', -1, 32))
		if _, err := bw.WriteString(line); err != nil {
			return Wrap(Internal, err, "model: writing vocab TSV")
		}
	}
	if err := bw.Flush(); err != nil {
		return Wrap(Internal, err, "model: flushing vocab TSV")
	}
	return nil
}

// ReadVocabTSV parses the format WriteVocabTSV produces.
func ReadVocabTSV(r io.Reader) ([]PieceScore, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var out []PieceScore
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}
		idx := strings.LastIndexByte(line, '\t')
		if idx < 0 {
			return nil, NewStatus(InvalidArgument, "model: malformed vocab TSV at line %d: %q", lineNo, line)
		}
		score, err := strconv.ParseFloat(line[idx+1:], 32)
		if err != nil {
			return nil, Wrap(InvalidArgument, err, "model: parsing score at line %d", lineNo)
		}
		out = append(out, PieceScore{Piece: line[:idx], Score: float32(score)})
	}
	if err := sc.Err(); err != nil {
		return nil, Wrap(InvalidArgument, err, "model: reading vocab TSV")
	}
	return out, nil
}
