package model

// ModelType selects which trainer/engine pair produces and consumes
// an Artifact's pieces.
type ModelType int

const (
	ModelUnigram ModelType = iota
	ModelBPE
	ModelWord
	ModelChar
)

func (m ModelType) String() string {
	switch m {
	case ModelUnigram:
		return "UNIGRAM"
	case ModelBPE:
		return "BPE"
	case ModelWord:
		return "WORD"
	case ModelChar:
		return "CHAR"
	default:
		return "UNKNOWN_MODEL_TYPE"
	}
}

// TrainerSpec is every field spec.md §6 lists for a training run, with
// range invariants enforced by Validate.
type TrainerSpec struct {
	Input     []string
	ModelType ModelType
	VocabSize int

	CharacterCoverage     float64
	MaxPieceLength        int
	SeedSentencepieceSize int
	NumSubIterations      int
	NumThreads            int
	ShrinkingFactor       float64
	MaxSentenceLength     int
	InputSentenceSize     int64
	ShuffleInputSentence  bool

	SplitByUnicodeScript bool
	SplitByNumber        bool
	SplitByWhitespace    bool
	SplitByDigits        bool

	TreatWhitespaceAsSuffix   bool
	AllowWhitespaceOnlyPieces bool
	HardVocabLimit            bool
	UseAllVocab               bool
	ByteFallback              bool

	PretokenizationDelimiter string

	UnkID, BosID, EosID, PadID int32

	UnkPiece, BosPiece, EosPiece, PadPiece string
	UnkSurface string

	ControlSymbols     []string
	UserDefinedSymbols []string
}

// DefaultTrainerSpec mirrors the canonical sentencepiece defaults
// (spec.md §6, original_source trainer_spec.proto defaults).
func DefaultTrainerSpec() TrainerSpec {
	return TrainerSpec{
		ModelType:            ModelUnigram,
		VocabSize:            8000,
		CharacterCoverage:    0.9995,
		MaxPieceLength:        16,
		SeedSentencepieceSize: 1000000,
		NumSubIterations:      2,
		NumThreads:            1,
		ShrinkingFactor:       0.75,
		MaxSentenceLength:     4192,
		InputSentenceSize:     0,
		SplitByUnicodeScript:  true,
		SplitByNumber:        true,
		SplitByWhitespace:    true,
		HardVocabLimit:       true,
		UnkID:                0,
		BosID:                1,
		EosID:                2,
		PadID:                -1,
		UnkPiece:             "<unk>",
		BosPiece:             "<s>",
		EosPiece:             "</s>",
		PadPiece:             "<pad>",
		UnkSurface:           " ⁇ ",
	}
}

// Validate checks TrainerSpec's ranges against spec.md §6 and returns
// an InvalidArgument Status describing the first violation found.
func (s TrainerSpec) Validate() error {
	if s.VocabSize <= 0 {
		return NewStatus(InvalidArgument, "trainer_spec: vocab_size must be positive, got %d", s.VocabSize)
	}
	if s.CharacterCoverage < 0.98 || s.CharacterCoverage > 1.0 {
		return NewStatus(InvalidArgument, "trainer_spec: character_coverage %.4f out of range [0.98, 1.0]", s.CharacterCoverage)
	}
	if s.MaxPieceLength < 1 || s.MaxPieceLength > 512 {
		return NewStatus(InvalidArgument, "trainer_spec: max_piece_length %d out of range [1, 512]", s.MaxPieceLength)
	}
	if s.SeedSentencepieceSize < 0 {
		return NewStatus(InvalidArgument, "trainer_spec: seed_sentencepiece_size must be non-negative, got %d", s.SeedSentencepieceSize)
	}
	if s.NumSubIterations < 1 || s.NumSubIterations > 10 {
		return NewStatus(InvalidArgument, "trainer_spec: num_sub_iterations %d out of range [1, 10]", s.NumSubIterations)
	}
	if s.NumThreads < 1 || s.NumThreads > 128 {
		return NewStatus(InvalidArgument, "trainer_spec: num_threads %d out of range [1, 128]", s.NumThreads)
	}
	if s.ShrinkingFactor < 0.5 || s.ShrinkingFactor > 0.95 {
		return NewStatus(InvalidArgument, "trainer_spec: shrinking_factor %.4f out of range [0.5, 0.95]", s.ShrinkingFactor)
	}
	if s.MaxSentenceLength < 10 || s.MaxSentenceLength > (1<<30) {
		return NewStatus(InvalidArgument, "trainer_spec: max_sentence_length %d out of range [10, 2^30]", s.MaxSentenceLength)
	}
	if len(s.Input) == 0 {
		return NewStatus(InvalidArgument, "trainer_spec: input must name at least one source")
	}
	return nil
}

// NormalizerSpec is every field spec.md §6 lists for a normalizer:
// name is a label only, the boolean fields and the blobs fully
// determine behavior (spec §4.3).
type NormalizerSpec struct {
	Name                    string
	PrecompiledCharsmap     []byte
	AddDummyPrefix          bool
	RemoveExtraWhitespaces  bool
	EscapeWhitespaces       bool
	NormalizationRuleTSV    []byte
}

// DefaultNormalizerSpec matches the "nmt_nfkc" defaults spec.md §6
// names.
func DefaultNormalizerSpec() NormalizerSpec {
	return NormalizerSpec{
		Name:                   "nmt_nfkc",
		AddDummyPrefix:         true,
		RemoveExtraWhitespaces: true,
		EscapeWhitespaces:      true,
	}
}

func (s NormalizerSpec) Validate() error {
	if s.Name == "" {
		return NewStatus(InvalidArgument, "normalizer_spec: name must not be empty")
	}
	return nil
}
