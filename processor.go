package subpiece

import (
	"bytes"
	"math/rand"
	"strings"

	"github.com/coregx/subpiece/engine"
	"github.com/coregx/subpiece/model"
	"github.com/coregx/subpiece/normalize"
)

// metaWhitespace is U+2581 ("▁"), the normalizer's internal stand-in
// for ASCII space, converted back to a literal space during Decode.
var metaWhitespace = []byte("▁")

// defaultUnkSurface is used when a loaded model's trainer spec leaves
// UnkSurface unset.
const defaultUnkSurface = " ⁇ "

// Span is one segmented piece of an Encode (or NBestEncode/
// SampleEncode) result: its vocabulary identity, plus the original-
// text byte range it was produced from (spec.md §4.8 "materialize a
// span"). Concatenating Surface across a result, in piece order,
// reproduces the original text passed to Encode, except for leading
// spaces that the normalizer removed, which fall in no span.
type Span struct {
	Piece   string
	ID      int32
	Surface string
	Begin   int
	End     int
}

// Processor loads a trained model artifact and segments or
// reconstructs text against it.
//
// A Processor's pure-read accessors (PieceToID, IDToPiece, GetScore,
// IsControl, IsUnknown, IsUnused) are safe to call concurrently.
// Encode, Decode, NBestEncode, and SampleEncode are not: the
// underlying engine's lattice arena is instance-owned, the same way a
// single compiled regex's internal scratch state is not safe for
// concurrent matching.
//
// Example:
//
//	p, err := subpiece.Load("model.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	spans, err := p.Encode("hello world")
type Processor struct {
	artifact *model.Artifact
	table    *model.Table
	eng      engine.Engine
	rules    *normalize.Rules
	normOpts normalize.Options

	encodeExtra []string
	decodeExtra []string
}

func newProcessor(artifact *model.Artifact) (*Processor, error) {
	table, err := model.NewTable(artifact.Pieces, artifact.Trainer.UnkID, artifact.Trainer.BosID, artifact.Trainer.EosID, artifact.Trainer.PadID)
	if err != nil {
		return nil, err
	}

	eng, err := newEngine(artifact.Trainer.ModelType, table)
	if err != nil {
		return nil, err
	}

	rules, err := compileNormalizer(artifact.Normalizer)
	if err != nil {
		return nil, err
	}

	p := &Processor{
		artifact: artifact,
		table:    table,
		eng:      eng,
		rules:    rules,
		normOpts: normalize.Options{
			AddDummyPrefix:          artifact.Normalizer.AddDummyPrefix,
			RemoveExtraWhitespaces:  artifact.Normalizer.RemoveExtraWhitespaces,
			EscapeWhitespaces:       artifact.Normalizer.EscapeWhitespaces,
			TreatWhitespaceAsSuffix: artifact.Trainer.TreatWhitespaceAsSuffix,
		},
	}
	if err := p.SetOptions(DefaultOptions()); err != nil {
		return nil, err
	}
	return p, nil
}

func newEngine(mt model.ModelType, table *model.Table) (engine.Engine, error) {
	switch mt {
	case model.ModelUnigram:
		return engine.NewUnigram(table)
	case model.ModelBPE:
		return engine.NewBPE(table)
	case model.ModelWord:
		return engine.NewWord(table)
	case model.ModelChar:
		return engine.NewChar(table)
	default:
		return nil, model.NewStatus(model.InvalidArgument, "subpiece: unknown model_type %v", mt)
	}
}

func compileNormalizer(spec model.NormalizerSpec) (*normalize.Rules, error) {
	if len(spec.PrecompiledCharsmap) > 0 {
		return normalize.DecodeRuleBlob(spec.PrecompiledCharsmap)
	}
	if len(spec.NormalizationRuleTSV) > 0 {
		return normalize.CompileRules(spec.NormalizationRuleTSV)
	}
	return normalize.Empty, nil
}

// SetOptions replaces the processor's encode/decode extra-options
// configuration, rejecting anything outside spec.md §6's fixed
// {reverse, bos, eos} / {reverse} option sets.
func (p *Processor) SetOptions(opts Options) error {
	encodeExtra, err := splitExtraOptions(opts.EncodeExtraOptions, validEncodeOptions)
	if err != nil {
		return err
	}
	decodeExtra, err := splitExtraOptions(opts.DecodeExtraOptions, validDecodeOptions)
	if err != nil {
		return err
	}
	p.encodeExtra = encodeExtra
	p.decodeExtra = decodeExtra
	return nil
}

// VocabSize returns the number of pieces in the loaded model.
func (p *Processor) VocabSize() int { return p.table.Size() }

// Normalize runs the processor's normalizer over text without
// segmenting it, returning the canonical normalized form.
//
// Example:
//
//	norm, err := p.Normalize("Hello  World")
func (p *Processor) Normalize(text string) (string, error) {
	normalized, _, err := normalize.Normalize(p.rules, p.normOpts, []byte(text))
	if err != nil {
		return "", err
	}
	return string(normalized), nil
}

// encodedPiece is one engine.Span generalized to also represent a
// virtual BOS/EOS piece that corresponds to no normalized-text range.
type encodedPiece struct {
	id      int32
	pos     int
	length  int
	virtual bool
}

func fromSpans(spans []engine.Span) []encodedPiece {
	out := make([]encodedPiece, len(spans))
	for i, s := range spans {
		out[i] = encodedPiece{id: s.ID, pos: s.Pos, length: s.Len}
	}
	return out
}

// applyEncodeExtra applies the processor's configured extra options,
// in list order, to a freshly-segmented piece sequence (spec.md §4.8
// Encode flow step 3).
func (p *Processor) applyEncodeExtra(encs []encodedPiece) []encodedPiece {
	for _, opt := range p.encodeExtra {
		switch opt {
		case "reverse":
			for i, j := 0, len(encs)-1; i < j; i, j = i+1, j-1 {
				encs[i], encs[j] = encs[j], encs[i]
			}
		case "bos":
			if id := p.table.BosID(); id >= 0 {
				encs = append([]encodedPiece{{id: id, virtual: true}}, encs...)
			}
		case "eos":
			if id := p.table.EosID(); id >= 0 {
				encs = append(encs, encodedPiece{id: id, virtual: true})
			}
		}
	}
	return encs
}

// materialize turns a post-processed piece sequence into spans with
// surface text taken from orig via origMap, merging consecutive
// Unknown pieces into one span (spec.md §4.8 Encode flow step 4).
func (p *Processor) materialize(encs []encodedPiece, orig []byte, origMap []int) []Span {
	var out []Span
	for i := 0; i < len(encs); {
		e := encs[i]
		if e.virtual {
			out = append(out, Span{Piece: string(p.table.IDToPiece(e.id)), ID: e.id})
			i++
			continue
		}

		j := i + 1
		if p.table.IsUnknown(e.id) {
			for j < len(encs) && !encs[j].virtual && p.table.IsUnknown(encs[j].id) {
				j++
			}
		}
		last := encs[j-1]
		begin := origMap[e.pos]
		end := origMap[last.pos+last.length]
		out = append(out, Span{
			Piece:   string(p.table.IDToPiece(e.id)),
			ID:      e.id,
			Surface: string(orig[begin:end]),
			Begin:   begin,
			End:     end,
		})
		i = j
	}
	return out
}

// Encode normalizes text and segments it with the loaded model's
// engine, applying any configured extra options.
//
// Example:
//
//	spans, err := p.Encode("hello world")
//	for _, s := range spans {
//	    fmt.Println(s.ID, s.Piece, s.Surface)
//	}
func (p *Processor) Encode(text string) ([]Span, error) {
	normalized, origMap, err := normalize.Normalize(p.rules, p.normOpts, []byte(text))
	if err != nil {
		return nil, err
	}
	spans, err := p.eng.Encode(normalized)
	if err != nil {
		return nil, err
	}
	encs := p.applyEncodeExtra(fromSpans(spans))
	return p.materialize(encs, []byte(text), origMap), nil
}

// NBestEncode returns up to n distinct segmentations of text ordered
// by descending path score. It requires a Unigram model; any other
// model type returns ErrNBestRequiresUnigram.
//
// Example:
//
//	paths, err := p.NBestEncode("hello", 3)
func (p *Processor) NBestEncode(text string, n int) ([][]Span, error) {
	u, ok := p.eng.(*engine.Unigram)
	if !ok {
		return nil, ErrNBestRequiresUnigram
	}
	normalized, origMap, err := normalize.Normalize(p.rules, p.normOpts, []byte(text))
	if err != nil {
		return nil, err
	}
	paths, err := u.NBest(normalized, n)
	if err != nil {
		return nil, err
	}
	return p.materializePaths(paths, []byte(text), origMap), nil
}

// SampleEncode draws n segmentations of text from the Unigram
// lattice's path distribution at the given temperature theta (0
// samples uniformly over reachable paths; larger values concentrate
// on higher-scoring paths). It requires a Unigram model.
//
// Example:
//
//	paths, err := p.SampleEncode("hello", 5, 0.2, rand.New(rand.NewSource(1)))
func (p *Processor) SampleEncode(text string, n int, theta float64, rng *rand.Rand) ([][]Span, error) {
	u, ok := p.eng.(*engine.Unigram)
	if !ok {
		return nil, ErrNBestRequiresUnigram
	}
	normalized, origMap, err := normalize.Normalize(p.rules, p.normOpts, []byte(text))
	if err != nil {
		return nil, err
	}
	paths, err := u.Sample(normalized, n, theta, rng)
	if err != nil {
		return nil, err
	}
	return p.materializePaths(paths, []byte(text), origMap), nil
}

func (p *Processor) materializePaths(paths [][]engine.Span, orig []byte, origMap []int) [][]Span {
	out := make([][]Span, len(paths))
	for i, spans := range paths {
		encs := p.applyEncodeExtra(fromSpans(spans))
		out[i] = p.materialize(encs, orig, origMap)
	}
	return out
}

// Decode reconstructs text from a piece sequence, applying any
// configured extra options first (spec.md §4.8 Decode flow).
//
// Example:
//
//	spans, _ := p.Encode("hello world")
//	text, err := p.Decode(spans)
func (p *Processor) Decode(spans []Span) (string, error) {
	ids := make([]int32, len(spans))
	for i, s := range spans {
		ids[i] = s.ID
	}
	for _, opt := range p.decodeExtra {
		if opt == "reverse" {
			for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}

	unkSurface := p.artifact.Trainer.UnkSurface
	if unkSurface == "" {
		unkSurface = defaultUnkSurface
	}

	var buf bytes.Buffer
	strippedLeading := false
	for _, id := range ids {
		if p.table.IsControl(id) {
			continue
		}
		if p.table.IsUnknown(id) {
			buf.WriteString(unkSurface)
			strippedLeading = true
			continue
		}
		piece := append([]byte(nil), p.table.IDToPiece(id)...)
		if !strippedLeading {
			piece = bytes.TrimPrefix(piece, metaWhitespace)
			strippedLeading = true
		}
		piece = bytes.ReplaceAll(piece, metaWhitespace, []byte(" "))
		buf.Write(piece)
	}
	return buf.String(), nil
}

// PieceToID returns piece's vocabulary id, or UnkID() if piece is not
// in the vocabulary.
func (p *Processor) PieceToID(piece string) int32 { return p.table.PieceToID([]byte(piece)) }

// IDToPiece returns the piece bytes for id.
func (p *Processor) IDToPiece(id int32) string { return string(p.table.IDToPiece(id)) }

// GetScore returns id's vocabulary score (log-probability for
// Unigram, merge rank for BPE).
func (p *Processor) GetScore(id int32) float32 { return p.table.Score(id) }

// IsControl reports whether id names a Control-typed piece (BOS, EOS,
// or a user control symbol).
func (p *Processor) IsControl(id int32) bool { return p.table.IsControl(id) }

// IsUnknown reports whether id names the model's single Unknown
// piece.
func (p *Processor) IsUnknown(id int32) bool { return p.table.IsUnknown(id) }

// IsUnused reports whether id names an Unused-typed piece (present in
// the table but unreachable through ordinary segmentation).
func (p *Processor) IsUnused(id int32) bool { return p.table.IsUnused(id) }

// RunSelfTest re-encodes every (input, expected) sample carried in
// the loaded artifact's self_test_data and reports the first mismatch
// found, if any (spec.md §4.9, grounded on sentencepiece_processor_test.cc's
// self-test mechanism).
func (p *Processor) RunSelfTest() error {
	for _, e := range p.artifact.SelfTest {
		spans, err := p.Encode(e.Input)
		if err != nil {
			return err
		}
		got := make([]string, len(spans))
		for i, s := range spans {
			got[i] = s.Piece
		}
		gotStr := strings.Join(got, " ")
		if gotStr != e.Expected {
			return model.NewStatus(model.FailedPrecondition, "subpiece: self_test_data mismatch for %q: got %q, want %q", e.Input, gotStr, e.Expected)
		}
	}
	return nil
}
