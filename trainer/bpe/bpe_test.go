package bpe

import (
	"testing"

	"github.com/coregx/subpiece/model"
)

func toySentences() []model.Sentence {
	return []model.Sentence{
		{Text: []byte("ababab"), Freq: 10},
		{Text: []byte("abab"), Freq: 5},
	}
}

func toySpec() model.TrainerSpec {
	spec := model.DefaultTrainerSpec()
	spec.Input = []string{"-"}
	spec.ModelType = model.ModelBPE
	spec.VocabSize = 10
	spec.CharacterCoverage = 1.0
	return spec
}

func TestTrainMergesMostFrequentPairFirst(t *testing.T) {
	pieces, err := Train(toySentences(), toySpec())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(pieces) == 0 {
		t.Fatal("Train returned no pieces")
	}
	if pieces[0].Type != model.PieceUnknown {
		t.Fatalf("pieces[0].Type = %v, want PieceUnknown", pieces[0].Type)
	}

	var sawAB bool
	for _, p := range pieces {
		if string(p.Bytes) == "ab" {
			sawAB = true
		}
	}
	if !sawAB {
		t.Errorf("expected \"ab\" to be merged as the most frequent adjacent pair, got %v", pieces)
	}
}

func TestTrainRespectsVocabSize(t *testing.T) {
	spec := toySpec()
	spec.VocabSize = 8
	pieces, err := Train(toySentences(), spec)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(pieces) > spec.VocabSize {
		t.Fatalf("got %d pieces, want <= %d", len(pieces), spec.VocabSize)
	}
}

// TestTrainAbracadabraMatchesWorkedExample reproduces spec.md §8
// scenario 4: training on ["abracadabra"] with vocab_size=20,
// normalization_rule_name="identity", add_dummy_prefix=false.
func TestTrainAbracadabraMatchesWorkedExample(t *testing.T) {
	sentences := []model.Sentence{{Text: []byte("abracadabra"), Freq: 1}}
	spec := toySpec()
	spec.VocabSize = 20

	pieces, err := Train(sentences, spec)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	var got []string
	for _, p := range pieces {
		if p.Type == model.PieceUnknown || p.Type == model.PieceControl {
			continue
		}
		got = append(got, string(p.Bytes))
	}

	want := []string{
		"ab", "ra", "abra", "ad", "cad", "abracad", "abracadabra",
		"ac", "br", "a", "b", "r", "c", "d",
	}
	if len(got) != len(want) {
		t.Fatalf("learned pieces = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("piece[%d] = %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestCollectBigramCountsDedupesOverlap(t *testing.T) {
	sentences := []model.Sentence{{Text: []byte("aaaa"), Freq: 1}}
	chains := buildChains(sentences)
	counts := collectBigramCounts(sentences, chains)
	st, ok := counts["a\x00a"]
	if !ok {
		t.Fatal("expected an (a,a) bigram")
	}
	if st.freq != 2 {
		t.Errorf("freq = %d, want 2 (non-overlapping count over \"aaaa\")", st.freq)
	}
}
