// Package seed builds the Unigram trainer's initial piece set from an
// enhanced suffix array over the training corpus (spec §4.6 "Seed
// generation").
package seed

import (
	"math"
	"sort"
	"unicode"

	"github.com/coregx/subpiece/model"
	"github.com/coregx/subpiece/utf8x"
)

const nul = 0x00

// uppBoundary is U+0009, reserved as the pretokenization split marker
// and forbidden in any piece (spec §6 "Meta codepoints").
const uppBoundary = '\t'

// BuildSeedPieces concatenates every sentence separated by NUL, builds
// an enhanced suffix array over the result, scores every internal
// node of depth >= 2 whose substring crosses no NUL by
// frequency*depth, and returns the top
// spec.SeedSentencepieceSize-len(requiredChars) scoring substrings
// that pass IsValidPiece, converted to log-probability scores,
// prepended by one piece per required rune (spec §4.6).
func BuildSeedPieces(sentences []model.Sentence, requiredChars map[rune]int64, spec model.TrainerSpec) ([]model.Piece, error) {
	corpus := concatWithNUL(sentences)
	sa := buildSuffixArray(corpus)
	lcp := buildLCP(corpus, sa)

	type candidate struct {
		text  string
		score float64
	}
	scores := map[string]float64{}
	emit := func(depth int32, lb, rb int) {
		if depth < 2 {
			return
		}
		start := int(sa[lb])
		substr := corpus[start : start+int(depth)]
		if containsByte(substr, nul) {
			return
		}
		freq := int64(rb - lb + 1)
		sc := float64(freq) * float64(depth)
		if cur, ok := scores[string(substr)]; !ok || sc > cur {
			scores[string(substr)] = sc
		}
	}
	walkLCPIntervals(lcp, emit)

	var candidates []candidate
	for text, sc := range scores {
		if !IsValidPiece([]byte(text), spec) {
			continue
		}
		candidates = append(candidates, candidate{text: text, score: sc})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].text < candidates[j].text
	})

	budget := spec.SeedSentencepieceSize - len(requiredChars)
	if budget < 0 {
		budget = 0
	}
	if budget < len(candidates) {
		candidates = candidates[:budget]
	}

	total := 0.0
	for _, c := range candidates {
		total += c.score
	}
	for _, freq := range requiredChars {
		total += float64(freq)
	}
	if total <= 0 {
		total = 1
	}
	logTotal := math.Log(total)

	pieces := make([]model.Piece, 0, len(requiredChars)+len(candidates))
	reqRunes := make([]rune, 0, len(requiredChars))
	for r := range requiredChars {
		reqRunes = append(reqRunes, r)
	}
	sort.Slice(reqRunes, func(i, j int) bool { return reqRunes[i] < reqRunes[j] })
	for _, r := range reqRunes {
		freq := requiredChars[r]
		pieces = append(pieces, model.Piece{
			Bytes: utf8x.Encode(r),
			Score: float32(math.Log(float64(freq)) - logTotal),
			Type:  model.PieceNormal,
		})
	}
	for _, c := range candidates {
		pieces = append(pieces, model.Piece{
			Bytes: []byte(c.text),
			Score: float32(math.Log(c.score) - logTotal),
			Type:  model.PieceNormal,
		})
	}
	return pieces, nil
}

func concatWithNUL(sentences []model.Sentence) []byte {
	n := 0
	for _, s := range sentences {
		n += len(s.Text) + 1
	}
	out := make([]byte, 0, n)
	for _, s := range sentences {
		out = append(out, s.Text...)
		out = append(out, nul)
	}
	return out
}

func containsByte(b []byte, c byte) bool {
	for _, x := range b {
		if x == c {
			return true
		}
	}
	return false
}

// walkLCPIntervals enumerates every LCP-interval (internal node of
// the implicit suffix tree for lcp) via the classic stack-based scan
// (Abouelhoda/Kurtz/Ohlebusch), calling emit(depth, lb, rb) once per
// node: lb/rb are inclusive suffix-array index bounds, depth is the
// shared prefix length.
func walkLCPIntervals(lcp []int32, emit func(depth int32, lb, rb int)) {
	type interval struct {
		lcp int32
		lb  int
	}
	n := len(lcp)
	stack := []interval{{lcp: 0, lb: 0}}
	for i := 1; i < n; i++ {
		lb := i - 1
		for len(stack) > 0 && stack[len(stack)-1].lcp > lcp[i] {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			emit(top.lcp, top.lb, i-1)
			lb = top.lb
		}
		if len(stack) == 0 || stack[len(stack)-1].lcp < lcp[i] {
			stack = append(stack, interval{lcp: lcp[i], lb: lb})
		}
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.lcp > 0 {
			emit(top.lcp, top.lb, n-1)
		}
	}
}

// IsValidPiece applies the piece-validity rules shared by the Unigram
// seed generator and the BPE trainer (spec §4.6 "Piece validity").
func IsValidPiece(b []byte, spec model.TrainerSpec) bool {
	if len(b) == 0 {
		return false
	}
	var runes []rune
	for i := 0; i < len(b); {
		r, size := utf8x.Decode(b[i:])
		if r == utf8x.RuneError || r == nul || r == ' ' || r == uppBoundary {
			return false
		}
		runes = append(runes, r)
		i += size
	}
	if len(runes) > spec.MaxPieceLength {
		return false
	}

	wholeWhitespace := true
	for _, r := range runes {
		if r != '▁' {
			wholeWhitespace = false
			break
		}
	}
	if !wholeWhitespace {
		for i, r := range runes {
			if r != '▁' {
				continue
			}
			atPrefix := i == 0 && !spec.TreatWhitespaceAsSuffix
			atSuffix := i == len(runes)-1 && spec.TreatWhitespaceAsSuffix
			if !atPrefix && !atSuffix {
				return false
			}
		}
	} else if !spec.AllowWhitespaceOnlyPieces && len(runes) > 0 {
		return false
	}

	if spec.SplitByUnicodeScript && len(runes) > 1 {
		if !sameScript(runes) {
			return false
		}
	}
	if spec.SplitByDigits && len(runes) > 1 {
		for _, r := range runes {
			if unicode.IsDigit(r) {
				return false
			}
		}
	}
	return true
}

// sameScript reports whether every rune in runes belongs to the same
// Unicode script, after merging Hiragana+Katakana into Han and
// treating Common as a wildcard and Inherited as "same as previous"
// (spec §4.6).
func sameScript(runes []rune) bool {
	var common string
	prev := ""
	for _, r := range runes {
		s := scriptOf(r)
		if s == "Inherited" {
			s = prev
		}
		if s != "Common" {
			if common == "" {
				common = s
			} else if s != "" && s != common {
				return false
			}
		}
		if s != "" {
			prev = s
		}
	}
	return true
}

func scriptOf(r rune) string {
	if unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
		return "Han"
	}
	for name, tbl := range unicode.Scripts {
		if unicode.Is(tbl, r) {
			return name
		}
	}
	return ""
}
