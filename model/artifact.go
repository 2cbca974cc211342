package model

import "io"

// SelfTestEntry is one (input, expected-pieces) sample carried by an
// Artifact's optional self_test_data, used to sanity-check a loaded
// model against the segmentation it was trained to produce.
type SelfTestEntry struct {
	Input    string
	Expected string
}

// Artifact is the full model record spec.md §4.9/§6 describes:
// trainer spec, normalizer spec, the piece table, an optional
// denormalizer spec, and optional self-test samples.
type Artifact struct {
	Trainer      TrainerSpec
	Normalizer   NormalizerSpec
	Pieces       []Piece
	Denormalizer *NormalizerSpec
	SelfTest     []SelfTestEntry
}

// Top-level Artifact field numbers.
const (
	fldArtifactTrainer      = 1
	fldArtifactNormalizer   = 2
	fldArtifactPiece        = 3
	fldArtifactDenormalizer = 4
	fldArtifactSelfTest     = 5
)

// TrainerSpec field numbers.
const (
	fldTSInput                     = 1
	fldTSModelType                 = 2
	fldTSVocabSize                 = 3
	fldTSCharacterCoverage         = 4
	fldTSMaxPieceLength            = 5
	fldTSNumSubIterations          = 6
	fldTSNumThreads                = 7
	fldTSShrinkingFactor           = 8
	fldTSMaxSentenceLength         = 9
	fldTSInputSentenceSize         = 10
	fldTSShuffleInputSentence      = 11
	fldTSSplitByUnicodeScript      = 12
	fldTSSplitByNumber             = 13
	fldTSSplitByWhitespace         = 14
	fldTSSplitByDigits             = 15
	fldTSTreatWhitespaceAsSuffix   = 16
	fldTSAllowWhitespaceOnlyPieces = 17
	fldTSHardVocabLimit            = 18
	fldTSUseAllVocab               = 19
	fldTSByteFallback              = 20
	fldTSPretokenizationDelimiter  = 21
	fldTSUnkID                     = 22
	fldTSBosID                     = 23
	fldTSEosID                     = 24
	fldTSPadID                     = 25
	fldTSUnkPiece                  = 26
	fldTSBosPiece                  = 27
	fldTSEosPiece                  = 28
	fldTSPadPiece                  = 29
	fldTSUnkSurface                = 30
	fldTSControlSymbols            = 31
	fldTSUserDefinedSymbols        = 32
)

// NormalizerSpec field numbers.
const (
	fldNSName                   = 1
	fldNSPrecompiledCharsmap    = 2
	fldNSAddDummyPrefix         = 3
	fldNSRemoveExtraWhitespaces = 4
	fldNSEscapeWhitespaces      = 5
	fldNSNormalizationRuleTSV   = 6
)

// Piece field numbers.
const (
	fldPieceBytes = 1
	fldPieceScore = 2
	fldPieceType  = 3
)

// SelfTestEntry field numbers.
const (
	fldSTInput    = 1
	fldSTExpected = 2
)

// WriteTo serializes a to w as a length-delimited, protobuf-wire-
// compatible binary record (spec §4.9): every field is tag-prefixed,
// so an unrecognized field from a future version is simply skippable,
// never a hard failure.
func (a *Artifact) WriteTo(w io.Writer) (int64, error) {
	body := encodeArtifact(a)
	n, err := w.Write(body)
	if err != nil {
		return int64(n), Wrap(Internal, err, "model: writing artifact")
	}
	return int64(n), nil
}

func encodeArtifact(a *Artifact) []byte {
	var w wireWriter
	w.message(fldArtifactTrainer, encodeTrainerSpec(a.Trainer))
	w.message(fldArtifactNormalizer, encodeNormalizerSpec(a.Normalizer))
	for _, p := range a.Pieces {
		w.message(fldArtifactPiece, encodePiece(p))
	}
	if a.Denormalizer != nil {
		w.message(fldArtifactDenormalizer, encodeNormalizerSpec(*a.Denormalizer))
	}
	if len(a.SelfTest) > 0 {
		var st wireWriter
		for _, e := range a.SelfTest {
			st.message(1, encodeSelfTestEntry(e))
		}
		w.message(fldArtifactSelfTest, st.Bytes())
	}
	return w.Bytes()
}

func encodeSelfTestEntry(e SelfTestEntry) []byte {
	var w wireWriter
	w.stringField(fldSTInput, e.Input)
	w.stringField(fldSTExpected, e.Expected)
	return w.Bytes()
}

func encodePiece(p Piece) []byte {
	var w wireWriter
	w.bytesField(fldPieceBytes, p.Bytes)
	w.float32Field(fldPieceScore, p.Score)
	w.varint(fldPieceType, uint64(p.Type))
	return w.Bytes()
}

func encodeTrainerSpec(s TrainerSpec) []byte {
	var w wireWriter
	for _, in := range s.Input {
		w.stringField(fldTSInput, in)
	}
	w.varint(fldTSModelType, uint64(s.ModelType))
	w.int32(fldTSVocabSize, int32(s.VocabSize))
	w.float64Field(fldTSCharacterCoverage, s.CharacterCoverage)
	w.int32(fldTSMaxPieceLength, int32(s.MaxPieceLength))
	w.int32(fldTSNumSubIterations, int32(s.NumSubIterations))
	w.int32(fldTSNumThreads, int32(s.NumThreads))
	w.float64Field(fldTSShrinkingFactor, s.ShrinkingFactor)
	w.int32(fldTSMaxSentenceLength, int32(s.MaxSentenceLength))
	w.int64(fldTSInputSentenceSize, s.InputSentenceSize)
	w.boolField(fldTSShuffleInputSentence, s.ShuffleInputSentence)
	w.boolField(fldTSSplitByUnicodeScript, s.SplitByUnicodeScript)
	w.boolField(fldTSSplitByNumber, s.SplitByNumber)
	w.boolField(fldTSSplitByWhitespace, s.SplitByWhitespace)
	w.boolField(fldTSSplitByDigits, s.SplitByDigits)
	w.boolField(fldTSTreatWhitespaceAsSuffix, s.TreatWhitespaceAsSuffix)
	w.boolField(fldTSAllowWhitespaceOnlyPieces, s.AllowWhitespaceOnlyPieces)
	w.boolField(fldTSHardVocabLimit, s.HardVocabLimit)
	w.boolField(fldTSUseAllVocab, s.UseAllVocab)
	w.boolField(fldTSByteFallback, s.ByteFallback)
	w.stringField(fldTSPretokenizationDelimiter, s.PretokenizationDelimiter)
	w.int32(fldTSUnkID, s.UnkID)
	w.int32(fldTSBosID, s.BosID)
	w.int32(fldTSEosID, s.EosID)
	w.int32(fldTSPadID, s.PadID)
	w.stringField(fldTSUnkPiece, s.UnkPiece)
	w.stringField(fldTSBosPiece, s.BosPiece)
	w.stringField(fldTSEosPiece, s.EosPiece)
	w.stringField(fldTSPadPiece, s.PadPiece)
	w.stringField(fldTSUnkSurface, s.UnkSurface)
	for _, c := range s.ControlSymbols {
		w.stringField(fldTSControlSymbols, c)
	}
	for _, u := range s.UserDefinedSymbols {
		w.stringField(fldTSUserDefinedSymbols, u)
	}
	return w.Bytes()
}

func encodeNormalizerSpec(s NormalizerSpec) []byte {
	var w wireWriter
	w.stringField(fldNSName, s.Name)
	w.bytesField(fldNSPrecompiledCharsmap, s.PrecompiledCharsmap)
	w.boolField(fldNSAddDummyPrefix, s.AddDummyPrefix)
	w.boolField(fldNSRemoveExtraWhitespaces, s.RemoveExtraWhitespaces)
	w.boolField(fldNSEscapeWhitespaces, s.EscapeWhitespaces)
	w.bytesField(fldNSNormalizationRuleTSV, s.NormalizationRuleTSV)
	return w.Bytes()
}

// ReadArtifact parses a binary record written by WriteTo (or any
// wire-compatible protobuf producer emitting the same field layout).
// Unknown top-level or nested fields are skipped, never an error
// (spec §4.9).
func ReadArtifact(r io.Reader) (*Artifact, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Wrap(Internal, err, "model: reading artifact stream")
	}
	a := &Artifact{}
	seenTrainer, seenNormalizer := false, false
	rd := newWireReader(data)
	for !rd.done() {
		f, err := rd.next()
		if err != nil {
			return nil, err
		}
		switch f.num {
		case fldArtifactTrainer:
			ts, err := decodeTrainerSpec(f.bytes)
			if err != nil {
				return nil, err
			}
			a.Trainer = ts
			seenTrainer = true
		case fldArtifactNormalizer:
			ns, err := decodeNormalizerSpec(f.bytes)
			if err != nil {
				return nil, err
			}
			a.Normalizer = ns
			seenNormalizer = true
		case fldArtifactPiece:
			p, err := decodePiece(f.bytes)
			if err != nil {
				return nil, err
			}
			a.Pieces = append(a.Pieces, p)
		case fldArtifactDenormalizer:
			ns, err := decodeNormalizerSpec(f.bytes)
			if err != nil {
				return nil, err
			}
			a.Denormalizer = &ns
		case fldArtifactSelfTest:
			entries, err := decodeSelfTestData(f.bytes)
			if err != nil {
				return nil, err
			}
			a.SelfTest = entries
		default:
			// Unknown field: already fully consumed by next(), nothing
			// further to do.
		}
	}
	if !seenTrainer {
		return nil, NewStatus(DataLoss, "model: artifact missing trainer_spec")
	}
	if !seenNormalizer {
		return nil, NewStatus(DataLoss, "model: artifact missing normalizer_spec")
	}
	if len(a.Pieces) == 0 {
		return nil, NewStatus(DataLoss, "model: artifact has no pieces")
	}
	return a, nil
}

func decodeSelfTestData(data []byte) ([]SelfTestEntry, error) {
	var out []SelfTestEntry
	rd := newWireReader(data)
	for !rd.done() {
		f, err := rd.next()
		if err != nil {
			return nil, err
		}
		if f.num != 1 {
			continue
		}
		e, err := decodeSelfTestEntry(f.bytes)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeSelfTestEntry(data []byte) (SelfTestEntry, error) {
	var e SelfTestEntry
	rd := newWireReader(data)
	for !rd.done() {
		f, err := rd.next()
		if err != nil {
			return e, err
		}
		switch f.num {
		case fldSTInput:
			e.Input = f.asString()
		case fldSTExpected:
			e.Expected = f.asString()
		}
	}
	return e, nil
}

func decodePiece(data []byte) (Piece, error) {
	var p Piece
	rd := newWireReader(data)
	for !rd.done() {
		f, err := rd.next()
		if err != nil {
			return p, err
		}
		switch f.num {
		case fldPieceBytes:
			p.Bytes = append([]byte(nil), f.bytes...)
		case fldPieceScore:
			p.Score = f.asFloat32()
		case fldPieceType:
			p.Type = PieceType(f.varint)
		}
	}
	return p, nil
}

// decodeTrainerSpec starts from the Go zero value, not
// DefaultTrainerSpec: proto3 scalar fields equal to their wire "zero"
// (false/0/"") are never written, so a decoder must treat absence as
// zero, not as a higher-level domain default, or an explicitly-set
// false/0 field would silently read back as the wrong value.
func decodeTrainerSpec(data []byte) (TrainerSpec, error) {
	var s TrainerSpec
	rd := newWireReader(data)
	for !rd.done() {
		f, err := rd.next()
		if err != nil {
			return s, err
		}
		switch f.num {
		case fldTSInput:
			s.Input = append(s.Input, f.asString())
		case fldTSModelType:
			s.ModelType = ModelType(f.varint)
		case fldTSVocabSize:
			s.VocabSize = int(f.asInt32())
		case fldTSCharacterCoverage:
			s.CharacterCoverage = f.asFloat64()
		case fldTSMaxPieceLength:
			s.MaxPieceLength = int(f.asInt32())
		case fldTSNumSubIterations:
			s.NumSubIterations = int(f.asInt32())
		case fldTSNumThreads:
			s.NumThreads = int(f.asInt32())
		case fldTSShrinkingFactor:
			s.ShrinkingFactor = f.asFloat64()
		case fldTSMaxSentenceLength:
			s.MaxSentenceLength = int(f.asInt32())
		case fldTSInputSentenceSize:
			s.InputSentenceSize = f.asInt64()
		case fldTSShuffleInputSentence:
			s.ShuffleInputSentence = f.asBool()
		case fldTSSplitByUnicodeScript:
			s.SplitByUnicodeScript = f.asBool()
		case fldTSSplitByNumber:
			s.SplitByNumber = f.asBool()
		case fldTSSplitByWhitespace:
			s.SplitByWhitespace = f.asBool()
		case fldTSSplitByDigits:
			s.SplitByDigits = f.asBool()
		case fldTSTreatWhitespaceAsSuffix:
			s.TreatWhitespaceAsSuffix = f.asBool()
		case fldTSAllowWhitespaceOnlyPieces:
			s.AllowWhitespaceOnlyPieces = f.asBool()
		case fldTSHardVocabLimit:
			s.HardVocabLimit = f.asBool()
		case fldTSUseAllVocab:
			s.UseAllVocab = f.asBool()
		case fldTSByteFallback:
			s.ByteFallback = f.asBool()
		case fldTSPretokenizationDelimiter:
			s.PretokenizationDelimiter = f.asString()
		case fldTSUnkID:
			s.UnkID = f.asInt32()
		case fldTSBosID:
			s.BosID = f.asInt32()
		case fldTSEosID:
			s.EosID = f.asInt32()
		case fldTSPadID:
			s.PadID = f.asInt32()
		case fldTSUnkPiece:
			s.UnkPiece = f.asString()
		case fldTSBosPiece:
			s.BosPiece = f.asString()
		case fldTSEosPiece:
			s.EosPiece = f.asString()
		case fldTSPadPiece:
			s.PadPiece = f.asString()
		case fldTSUnkSurface:
			s.UnkSurface = f.asString()
		case fldTSControlSymbols:
			s.ControlSymbols = append(s.ControlSymbols, f.asString())
		case fldTSUserDefinedSymbols:
			s.UserDefinedSymbols = append(s.UserDefinedSymbols, f.asString())
		}
	}
	return s, nil
}

func decodeNormalizerSpec(data []byte) (NormalizerSpec, error) {
	var s NormalizerSpec
	rd := newWireReader(data)
	for !rd.done() {
		f, err := rd.next()
		if err != nil {
			return s, err
		}
		switch f.num {
		case fldNSName:
			s.Name = f.asString()
		case fldNSPrecompiledCharsmap:
			s.PrecompiledCharsmap = append([]byte(nil), f.bytes...)
		case fldNSAddDummyPrefix:
			s.AddDummyPrefix = f.asBool()
		case fldNSRemoveExtraWhitespaces:
			s.RemoveExtraWhitespaces = f.asBool()
		case fldNSEscapeWhitespaces:
			s.EscapeWhitespaces = f.asBool()
		case fldNSNormalizationRuleTSV:
			s.NormalizationRuleTSV = append([]byte(nil), f.bytes...)
		}
	}
	return s, nil
}
