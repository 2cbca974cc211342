// Package unigram implements the Bayesian-EM Unigram-LM trainer (spec
// §4.6): seed generation, an expectation-maximization loop that
// sparsifies the piece set via Digamma-renormalized scores, and a
// Viterbi-loss-based pruning pass down to the target vocabulary size.
package unigram

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/coregx/subpiece/engine"
	"github.com/coregx/subpiece/model"
	"github.com/coregx/subpiece/trainer/seed"
	"github.com/coregx/subpiece/utf8x"
)

// Train runs seed generation followed by the EM/prune loop and
// returns the final vocabulary in id order, reserved meta pieces
// (Unknown/BOS/EOS/PAD, control symbols, user-defined symbols, and
// byte-fallback pieces if enabled) prepended ahead of the trained
// Normal pieces (spec §4.6 step 2 "Finalize").
func Train(sentences []model.Sentence, spec model.TrainerSpec) ([]model.Piece, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	required := requiredChars(sentences, spec.CharacterCoverage)

	seedPieces, err := seed.BuildSeedPieces(sentences, required, spec)
	if err != nil {
		return nil, err
	}
	pieces := withSentinelUnk(seedPieces)

	target := spec.VocabSize - reservedMetaCount(spec)
	if target < 1 {
		target = 1
	}

	for {
		for sub := 0; sub < spec.NumSubIterations; sub++ {
			table, err := model.NewTable(pieces, 0, -1, -1, -1)
			if err != nil {
				return nil, err
			}
			expected, _, err := eStep(table, sentences, spec.NumThreads)
			if err != nil {
				return nil, err
			}
			pieces = mStep(pieces, expected)
		}
		if float64(len(pieces)) <= 1.1*float64(target) {
			break
		}

		table, err := model.NewTable(pieces, 0, -1, -1, -1)
		if err != nil {
			return nil, err
		}
		u, err := engine.NewUnigram(table)
		if err != nil {
			return nil, err
		}
		keep := int(math.Max(1.1*float64(target), float64(len(pieces))*spec.ShrinkingFactor))
		if keep < 1 {
			keep = 1
		}
		pieces, err = prune(u, pieces, sentences, keep)
		if err != nil {
			return nil, err
		}
	}

	return finalize(pieces, required, spec), nil
}

// withSentinelUnk prepends an internal Unknown placeholder so the
// seed-only piece list satisfies model.NewTable's "exactly one
// Unknown piece" invariant during EM. It never appears in Train's
// returned vocabulary; finalize drops it and Unknown is re-added at
// its configured id.
func withSentinelUnk(seedPieces []model.Piece) []model.Piece {
	out := make([]model.Piece, 0, len(seedPieces)+1)
	out = append(out, model.Piece{Bytes: []byte("<unk>"), Type: model.PieceUnknown})
	return append(out, seedPieces...)
}

// requiredChars returns every codepoint needed to cover the
// character_coverage fraction of total codepoint occurrences in
// sentences, most frequent first (spec §4.6 "required-char pieces").
func requiredChars(sentences []model.Sentence, coverage float64) map[rune]int64 {
	freq := map[rune]int64{}
	var total int64
	for _, s := range sentences {
		for i := 0; i < len(s.Text); {
			r, size := utf8x.Decode(s.Text[i:])
			freq[r] += s.Freq
			total += s.Freq
			i += size
		}
	}
	type rf struct {
		r rune
		f int64
	}
	list := make([]rf, 0, len(freq))
	for r, f := range freq {
		list = append(list, rf{r, f})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].f != list[j].f {
			return list[i].f > list[j].f
		}
		return list[i].r < list[j].r
	})
	out := map[rune]int64{}
	threshold := coverage * float64(total)
	var cum int64
	for _, e := range list {
		if float64(cum) >= threshold {
			break
		}
		out[e.r] = e.f
		cum += e.f
	}
	return out
}

// eStep runs populate_marginal over every sentence, partitioned
// across numThreads workers by index modulo thread count, and reduces
// their expected-count vectors sequentially in thread-index order
// (spec §4.6 "partition sentences across the worker pool"). Each
// worker gets its own *engine.Unigram since a Unigram's lattice is
// instance-owned and reused across calls, not safe to share.
func eStep(table *model.Table, sentences []model.Sentence, numThreads int) ([]float64, float64, error) {
	if numThreads < 1 {
		numThreads = 1
	}
	if numThreads > len(sentences) && len(sentences) > 0 {
		numThreads = len(sentences)
	}

	partials := make([][]float64, numThreads)
	lls := make([]float64, numThreads)
	errs := make([]error, numThreads)

	var wg sync.WaitGroup
	for t := 0; t < numThreads; t++ {
		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			u, err := engine.NewUnigram(table)
			if err != nil {
				errs[t] = err
				return
			}
			expected := make([]float64, table.Size())
			var ll float64
			for i := t; i < len(sentences); i += numThreads {
				s := sentences[i]
				l := u.BuildLattice(s.Text)
				delta, err := l.PopulateMarginal(float64(s.Freq), expected)
				if err != nil {
					errs[t] = err
					return
				}
				ll += delta
			}
			partials[t] = expected
			lls[t] = ll
		}(t)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, 0, err
		}
	}

	expected := make([]float64, table.Size())
	var ll float64
	for t := 0; t < numThreads; t++ {
		for i, v := range partials[t] {
			expected[i] += v
		}
		ll += lls[t]
	}
	return expected, ll, nil
}

// mStep drops every piece whose expected count fell below 0.5 and
// renormalizes survivors via log_score_i = Digamma(count_i) -
// Digamma(sum count) (spec §4.6 "Bayesian-DP-EM modification"). Index
// 0, the internal Unknown sentinel, is never dropped and never
// rescored.
func mStep(pieces []model.Piece, expected []float64) []model.Piece {
	survivors := make([]model.Piece, 0, len(pieces))
	counts := make([]float64, 0, len(pieces))
	sum := 0.0
	for i, p := range pieces {
		if i == 0 {
			survivors = append(survivors, p)
			counts = append(counts, 0)
			continue
		}
		if expected[i] < 0.5 {
			continue
		}
		survivors = append(survivors, p)
		counts = append(counts, expected[i])
		sum += expected[i]
	}
	digammaSum := digamma(sum)
	for i := 1; i < len(survivors); i++ {
		survivors[i].Score = float32(digamma(counts[i]) - digammaSum)
	}
	return survivors
}

// digamma approximates the digamma function via the standard
// recurrence-plus-asymptotic-expansion (Bernoulli-series) method:
// shift x up past 6 using digamma(x) = digamma(x+1) - 1/x, then apply
// the asymptotic series. Go's standard library has no Digamma.
func digamma(x float64) float64 {
	if x <= 0 {
		x = 1e-8
	}
	result := 0.0
	for x < 6 {
		result -= 1 / x
		x++
	}
	f := 1 / (x * x)
	result += math.Log(x) - 0.5/x -
		f*(1.0/12-f*(1.0/120-f*(1.0/252-f*(1.0/240-f*(1.0/132)))))
	return result
}

// prune estimates each surviving piece's contribution to corpus
// likelihood and keeps the top keep-many by loss, per spec §4.6 step
// 1b: for every sentence, the best and second-best segmentations are
// compared; pieces that appear in the best path but not the
// second-best are charged the full likelihood delta between the two,
// weighted by sentence frequency. A piece that is the sentence's
// entire best-path segmentation (no alternative exists) is always
// kept.
func prune(u *engine.Unigram, pieces []model.Piece, sentences []model.Sentence, keep int) ([]model.Piece, error) {
	loss := make([]float64, len(pieces))
	alwaysKeep := make([]bool, len(pieces))
	alwaysKeep[0] = true

	for _, s := range sentences {
		paths, err := u.NBest(s.Text, 2)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			continue
		}
		best := paths[0]
		if len(best) == 1 || len(paths) < 2 {
			for _, sp := range best {
				alwaysKeep[sp.ID] = true
			}
			continue
		}
		second := paths[1]
		delta := float64(s.Freq) * float64(pathScore(u, best)-pathScore(u, second))
		inSecond := make(map[int32]bool, len(second))
		for _, sp := range second {
			inSecond[sp.ID] = true
		}
		for _, sp := range best {
			if !inSecond[sp.ID] {
				loss[sp.ID] += delta
			}
		}
	}

	type scored struct {
		id   int32
		loss float64
	}
	var candidates []scored
	for id := 1; id < len(pieces); id++ {
		if alwaysKeep[id] {
			continue
		}
		candidates = append(candidates, scored{int32(id), loss[id]})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].loss != candidates[j].loss {
			return candidates[i].loss > candidates[j].loss
		}
		return candidates[i].id < candidates[j].id
	})

	kept := map[int32]bool{0: true}
	for id, always := range alwaysKeep {
		if always {
			kept[int32(id)] = true
		}
	}
	budget := keep - len(kept)
	for _, c := range candidates {
		if budget <= 0 {
			break
		}
		kept[c.id] = true
		budget--
	}

	out := make([]model.Piece, 0, len(kept))
	for id, p := range pieces {
		if kept[int32(id)] {
			out = append(out, p)
		}
	}
	return out, nil
}

func pathScore(u *engine.Unigram, spans []engine.Span) float32 {
	var s float32
	for _, sp := range spans {
		s += u.Score(sp.ID)
	}
	return s
}

// finalize drops the internal Unknown sentinel, fills in any
// required-char piece that did not survive EM/pruning (scored just
// below the lowest surviving score, descending by frequency so ties
// sort stably, per spec §4.6's "tiny descending penalty"), caps the
// result at VocabSize-reservedMetaCount by score, and prepends every
// reserved meta piece at the front of the id space.
func finalize(pieces []model.Piece, required map[rune]int64, spec model.TrainerSpec) []model.Piece {
	survivors := pieces[1:]

	have := map[string]bool{}
	for _, p := range survivors {
		have[string(p.Bytes)] = true
	}

	minScore := float32(0)
	for i, p := range survivors {
		if i == 0 || p.Score < minScore {
			minScore = p.Score
		}
	}

	reqRunes := make([]rune, 0, len(required))
	for r := range required {
		reqRunes = append(reqRunes, r)
	}
	sort.Slice(reqRunes, func(i, j int) bool {
		if required[reqRunes[i]] != required[reqRunes[j]] {
			return required[reqRunes[i]] > required[reqRunes[j]]
		}
		return reqRunes[i] < reqRunes[j]
	})

	var missing []model.Piece
	for i, r := range reqRunes {
		b := utf8x.Encode(r)
		if have[string(b)] {
			continue
		}
		missing = append(missing, model.Piece{
			Bytes: b,
			Score: minScore - 1 - float32(i)*1e-6,
			Type:  model.PieceNormal,
		})
	}

	combined := append(append([]model.Piece{}, missing...), survivors...)
	sort.SliceStable(combined, func(i, j int) bool { return combined[i].Score > combined[j].Score })

	capSize := spec.VocabSize - reservedMetaCount(spec)
	if capSize < 0 {
		capSize = 0
	}
	if len(combined) > capSize {
		slog.Warn("unigram trainer: dropping pieces to satisfy vocab_size",
			"have", len(combined), "cap", capSize)
		combined = combined[:capSize]
	}

	return prependReservedMeta(combined, spec)
}

// reservedMetaCount is how many ids prependReservedMeta occupies
// ahead of the trained Normal pieces.
func reservedMetaCount(spec model.TrainerSpec) int {
	n := 0
	if spec.UnkPiece != "" {
		n++
	}
	if spec.BosPiece != "" {
		n++
	}
	if spec.EosPiece != "" {
		n++
	}
	if spec.PadID >= 0 && spec.PadPiece != "" {
		n++
	}
	n += len(spec.ControlSymbols)
	n += len(spec.UserDefinedSymbols)
	if spec.ByteFallback {
		n += 256
	}
	return n
}

// prependReservedMeta lays out Unknown, BOS, EOS, PAD, control
// symbols, user-defined symbols, and (if enabled) the 256 bytepieces
// ahead of pieces, in that fixed order. The id fields of spec
// (UnkID, BosID, EosID, PadID) are not consulted: only whether each
// piece is enabled decides the layout.
func prependReservedMeta(pieces []model.Piece, spec model.TrainerSpec) []model.Piece {
	var out []model.Piece
	if spec.UnkPiece != "" {
		out = append(out, model.Piece{Bytes: []byte(spec.UnkPiece), Type: model.PieceUnknown})
	}
	if spec.BosPiece != "" {
		out = append(out, model.Piece{Bytes: []byte(spec.BosPiece), Type: model.PieceControl})
	}
	if spec.EosPiece != "" {
		out = append(out, model.Piece{Bytes: []byte(spec.EosPiece), Type: model.PieceControl})
	}
	if spec.PadID >= 0 && spec.PadPiece != "" {
		out = append(out, model.Piece{Bytes: []byte(spec.PadPiece), Type: model.PieceControl})
	}
	for _, c := range spec.ControlSymbols {
		out = append(out, model.Piece{Bytes: []byte(c), Type: model.PieceControl})
	}
	for _, ud := range spec.UserDefinedSymbols {
		out = append(out, model.Piece{Bytes: []byte(ud), Type: model.PieceUserDefined})
	}
	if spec.ByteFallback {
		for b := 0; b < 256; b++ {
			out = append(out, model.Piece{Bytes: []byte(fmt.Sprintf("<0x%02X>", b)), Type: model.PieceByte, Score: -1})
		}
	}
	return append(out, pieces...)
}
