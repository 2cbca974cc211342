// Package bpe implements the frequency-greedy byte-pair-encoding
// trainer (spec §4.7): repeatedly merges the corpus's most frequent
// adjacent symbol pair into a new piece until the target vocabulary
// size is reached.
package bpe

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/coregx/subpiece/internal/sparse"
	"github.com/coregx/subpiece/model"
	"github.com/coregx/subpiece/trainer/seed"
	"github.com/coregx/subpiece/utf8x"
)

// activeSetRebuildInterval is how often, in merges, the candidate
// search scope is rebuilt from a fresh full corpus scan (spec §4.7
// "rebuilt every 100 merges").
const activeSetRebuildInterval = 100

// activeSetMinSize is the minimum number of candidates kept in the
// search scope regardless of corpus size (spec §4.7 "at least 1000").
const activeSetMinSize = 1000

// activeSetFraction is the fraction of distinct bigrams kept in the
// search scope on a large corpus (spec §4.7 "top 5%").
const activeSetFraction = 0.05

// symbol is one node of a sentence's doubly-linked codepoint chain,
// addressed by index rather than pointer (spec §4.7's
// "Vec<Option<Symbol*>>", adapted to Go as an index-addressed slice
// in the same idiom as the inference-time engine's bpeSymbol).
type symbol struct {
	start, end int
	prev, next int
	alive      bool
}

// bigramStat is one candidate merge's cached identity and frequency.
type bigramStat struct {
	left, right []byte
	freq        int64
}

// Train runs the greedy merge loop and returns the final vocabulary
// in id order: reserved meta pieces, then merge pieces in emission
// order (score = -index, so earlier merges outrank later ones),
// then any required-char piece no merge ever produced (spec §4.7
// "Finalize").
func Train(sentences []model.Sentence, spec model.TrainerSpec) ([]model.Piece, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	required := requiredChars(sentences, spec.CharacterCoverage)
	target := spec.VocabSize - reservedMetaCount(spec)
	if target < 0 {
		target = 0
	}

	chains := buildChains(sentences)
	emitted := map[string]bool{}
	var merges []model.Piece

	var active *activeSet
	for iter := 0; len(merges) < target; iter++ {
		full := collectBigramCounts(sentences, chains)
		if iter%activeSetRebuildInterval == 0 || active.empty() {
			active = newActiveSet(full)
		}
		bestKey, ok := active.pickBest(full)
		if !ok && iter%activeSetRebuildInterval != 0 {
			// Every remaining candidate has left the corpus; rescan.
			active = newActiveSet(full)
			bestKey, ok = active.pickBest(full)
		}
		if !ok {
			break
		}
		st := full[bestKey]
		merged := append(append([]byte{}, st.left...), st.right...)
		mergeAllOccurrences(sentences, chains, st.left, st.right)
		active.remove(bestKey)

		if emitted[string(merged)] || !seed.IsValidPiece(merged, spec) {
			// Duplicate-piece skipping, and invalid candidates (spec
			// §4.6 "Piece validity", "shared with BPE"): the
			// structural merge already happened above; it is simply
			// not counted as a new vocabulary entry.
			slog.Warn("bpe trainer: skipping merge candidate", "piece", string(merged))
			continue
		}
		emitted[string(merged)] = true
		merges = append(merges, model.Piece{
			Bytes: merged,
			Score: float32(-len(merges)),
			Type:  model.PieceNormal,
		})
	}

	return finalize(merges, required, spec), nil
}

func buildChains(sentences []model.Sentence) [][]symbol {
	chains := make([][]symbol, len(sentences))
	for si, s := range sentences {
		var syms []symbol
		pos := 0
		for pos < len(s.Text) {
			_, size := utf8x.Decode(s.Text[pos:])
			syms = append(syms, symbol{
				start: pos,
				end:   pos + size,
				prev:  len(syms) - 1,
				next:  len(syms) + 1,
				alive: true,
			})
			pos += size
		}
		if len(syms) > 0 {
			syms[len(syms)-1].next = -1
		}
		chains[si] = syms
	}
	return chains
}

// collectBigramCounts scans every sentence's chain once, left to
// right, counting each adjacent alive pair. A pair equal to the pair
// just counted shares its middle symbol and is skipped, so
// overlapping runs are not double-counted: "aaaa" counts (a,a) twice,
// not three times (spec §4.7 "deduplicating overlapping positions").
func collectBigramCounts(sentences []model.Sentence, chains [][]symbol) map[string]*bigramStat {
	counts := map[string]*bigramStat{}
	for si, chain := range chains {
		if len(chain) == 0 {
			continue
		}
		text := sentences[si].Text
		cur := 0
		prevKey := ""
		for cur != -1 {
			nxt := chain[cur].next
			if nxt == -1 {
				break
			}
			left := text[chain[cur].start:chain[cur].end]
			right := text[chain[nxt].start:chain[nxt].end]
			key := string(left) + "\x00" + string(right)
			if key == prevKey {
				prevKey = ""
				cur = nxt
				continue
			}
			prevKey = key
			st, ok := counts[key]
			if !ok {
				st = &bigramStat{left: append([]byte{}, left...), right: append([]byte{}, right...)}
				counts[key] = st
			}
			st.freq += sentences[si].Freq
			cur = nxt
		}
	}
	return counts
}

// activeSet restricts the merge-candidate search scope to the top
// activeSetFraction of distinct bigrams by frequency, or
// activeSetMinSize, whichever is larger (spec §4.7 "active_symbols").
// Membership is tracked with the teacher's dense/sparse id set
// (internal/sparse), generalized from NFA state-id membership to
// candidate-bigram membership: each distinct key is interned to a
// small integer id for the lifetime of one active set, and the set
// itself provides O(1) removal as merges consume candidates.
type activeSet struct {
	set   *sparse.SparseSet
	idOf  map[string]uint32
	keyOf []string
}

// newActiveSet selects the candidate scope from full and builds the
// id set over it.
func newActiveSet(full map[string]*bigramStat) *activeSet {
	keys := make([]string, 0, len(full))
	for k := range full {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := full[keys[i]], full[keys[j]]
		if a.freq != b.freq {
			return a.freq > b.freq
		}
		return keys[i] < keys[j]
	})
	n := int(float64(len(keys)) * activeSetFraction)
	if n < activeSetMinSize {
		n = activeSetMinSize
	}
	if n > len(keys) {
		n = len(keys)
	}
	keys = keys[:n]

	as := &activeSet{
		set:   sparse.NewSparseSet(uint32(len(keys))),
		idOf:  make(map[string]uint32, len(keys)),
		keyOf: keys,
	}
	for i, k := range keys {
		as.idOf[k] = uint32(i)
		as.set.Insert(uint32(i))
	}
	return as
}

// empty reports whether as has no remaining candidates (or is the
// nil *activeSet, so the caller's first-iteration rebuild check needs
// no separate nil guard).
func (as *activeSet) empty() bool {
	return as == nil || as.set.IsEmpty()
}

// remove drops key from the active scope; it is a no-op once the
// corresponding merge has already been consumed.
func (as *activeSet) remove(key string) {
	if as == nil {
		return
	}
	if id, ok := as.idOf[key]; ok {
		as.set.Remove(id)
	}
}

// pickBest selects the highest-frequency candidate among as,
// breaking ties by shorter merged piece then lexicographic order
// (spec §4.7 step 3).
func (as *activeSet) pickBest(full map[string]*bigramStat) (string, bool) {
	if as == nil {
		return "", false
	}
	best := ""
	var bestStat *bigramStat
	as.set.Iter(func(id uint32) {
		k := as.keyOf[id]
		st, ok := full[k]
		if !ok || st.freq <= 0 {
			return
		}
		if bestStat == nil {
			best, bestStat = k, st
			return
		}
		if st.freq != bestStat.freq {
			if st.freq > bestStat.freq {
				best, bestStat = k, st
			}
			return
		}
		lm, bm := len(st.left)+len(st.right), len(bestStat.left)+len(bestStat.right)
		if lm != bm {
			if lm < bm {
				best, bestStat = k, st
			}
			return
		}
		if string(st.left)+string(st.right) < string(bestStat.left)+string(bestStat.right) {
			best, bestStat = k, st
		}
	})
	return best, bestStat != nil
}

// mergeAllOccurrences extends every occurrence of left immediately
// followed by right into one symbol spanning both, across every
// sentence's chain, left to right and non-overlapping (spec §4.7
// step 5).
func mergeAllOccurrences(sentences []model.Sentence, chains [][]symbol, left, right []byte) {
	lk, rk := string(left), string(right)
	for si, chain := range chains {
		if len(chain) == 0 {
			continue
		}
		text := sentences[si].Text
		cur := 0
		for cur != -1 {
			nxt := chain[cur].next
			if nxt == -1 {
				break
			}
			if string(text[chain[cur].start:chain[cur].end]) == lk && string(text[chain[nxt].start:chain[nxt].end]) == rk {
				chain[cur].end = chain[nxt].end
				chain[nxt].alive = false
				after := chain[nxt].next
				chain[cur].next = after
				if after != -1 {
					chain[after].prev = cur
				}
				cur = after
				continue
			}
			cur = nxt
		}
	}
}

// requiredChars mirrors trainer/unigram's character-coverage
// selection (spec §4.6, shared by §4.7's Finalize).
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

// finalize appends any required-char piece no merge produced, in
// descending-frequency order (spec §4.7 "append required-char pieces
// in frequency order"), caps at VocabSize-reservedMetaCount, and
// prepends reserved meta pieces.
func finalize(merges []model.Piece, required map[rune]int64, spec model.TrainerSpec) []model.Piece {
	have := map[string]bool{}
	for _, p := range merges {
		have[string(p.Bytes)] = true
	}
	minScore := float32(0)
	for i, p := range merges {
		if i == 0 || p.Score < minScore {
			minScore = p.Score
		}
	}

	type rf struct {
		r rune
		f int64
	}
	list := make([]rf, 0, len(required))
	for r, f := range required {
		list = append(list, rf{r, f})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].f != list[j].f {
			return list[i].f > list[j].f
		}
		return list[i].r < list[j].r
	})

	var base []model.Piece
	for i, e := range list {
		b := utf8x.Encode(e.r)
		if have[string(b)] {
			continue
		}
		base = append(base, model.Piece{
			Bytes: b,
			Score: minScore - 1 - float32(i)*1e-6,
			Type:  model.PieceNormal,
		})
	}

	combined := append(append([]model.Piece{}, merges...), base...)
	capSize := spec.VocabSize - reservedMetaCount(spec)
	if capSize < 0 {
		capSize = 0
	}
	if len(combined) > capSize {
		combined = combined[:capSize]
	}
	return prependReservedMeta(combined, spec)
}

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
