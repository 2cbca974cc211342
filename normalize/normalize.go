package normalize

import (
	"github.com/coregx/subpiece/internal/simd"
	"github.com/coregx/subpiece/trie"
	"github.com/coregx/subpiece/utf8x"
)

// metaWhitespace is U+2581 ("▁"), the internal stand-in for ASCII
// space inside normalized text (spec §6 "Meta codepoints").
var metaWhitespace = utf8x.Encode('▁')

// Options controls the structural behavior of Normalize, independent
// of the rewrite rules themselves (spec §4.3).
type Options struct {
	AddDummyPrefix          bool
	RemoveExtraWhitespaces  bool
	EscapeWhitespaces       bool
	TreatWhitespaceAsSuffix bool
}

// DefaultOptions matches sentencepiece's "nmt_nfkc" normalizer
// defaults.
func DefaultOptions() Options {
	return Options{
		AddDummyPrefix:         true,
		RemoveExtraWhitespaces: true,
		EscapeWhitespaces:      true,
	}
}

// builder accumulates the normalized output bytes and, for each of
// them, the index of the original byte it came from, while walking the
// input.
type builder struct {
	norm []byte
	orig []int
}

func (b *builder) emit(bs []byte, origIdx int) {
	for range bs {
		b.orig = append(b.orig, origIdx)
	}
	b.norm = append(b.norm, bs...)
}

// Normalize maps src to canonical form under rules and opts,
// returning the normalized bytes and a map from each normalized byte
// index (length len(normalized)+1) back to the covering index in src.
// Normalization is total: it never fails on malformed UTF-8 (which
// decodes to U+FFFD) and only returns an error if rules itself is
// corrupt in a way DecodeRuleBlob would already have rejected, which
// cannot happen for a *Rules built via CompileRules/DecodeRuleBlob.
func Normalize(rules *Rules, opts Options, src []byte) ([]byte, []int, error) {
	if rules == nil {
		rules = Empty
	}

	start := 0
	if opts.RemoveExtraWhitespaces {
		start = simd.LeadingSpaces(src)
	}

	b := &builder{norm: make([]byte, 0, len(src)+4), orig: make([]int, 0, len(src)+4)}

	if opts.AddDummyPrefix && !opts.TreatWhitespaceAsSuffix {
		b.emit([]byte{' '}, start)
	}

	matches := make([]trie.Match, rules.t.MaxPrefixMatches())
	if len(matches) < commonPrefixCap {
		matches = make([]trie.Match, commonPrefixCap)
	}

	p := start
	for p < len(src) {
		n := rules.t.CommonPrefixSearch(src[p:], matches)
		longest := -1
		longestLen := 0
		for i := 0; i < n; i++ {
			if matches[i].Length > longestLen {
				longestLen = matches[i].Length
				longest = i
			}
		}
		if longest >= 0 && longestLen > 0 {
			rep := rules.replacement(matches[longest].Value)
			b.emit(rep, p)
			p += longestLen
			continue
		}
		r, size := utf8x.Decode(src[p:])
		b.emit(utf8x.Encode(r), p)
		p += size
	}

	if opts.AddDummyPrefix && opts.TreatWhitespaceAsSuffix {
		b.emit([]byte{' '}, len(src))
	}

	norm, orig := b.norm, b.orig

	if opts.EscapeWhitespaces {
		norm, orig = escapeSpaces(norm, orig)
	}

	if opts.RemoveExtraWhitespaces {
		wsLen := 1
		if opts.EscapeWhitespaces {
			wsLen = len(metaWhitespace)
		}
		norm, orig = coalesceAndTrimWhitespace(norm, orig, wsLen, opts.EscapeWhitespaces)
	}

	orig = append(orig, len(src))
	return norm, orig, nil
}

// escapeSpaces rewrites every ASCII space byte in norm (and its
// parallel orig mapping entry) as the 3-byte meta-whitespace sequence,
// each emitted byte inheriting the original space's origin index
// (spec §4.3 step 4).
func escapeSpaces(norm []byte, orig []int) ([]byte, []int) {
	out := make([]byte, 0, len(norm)+2*countSpaces(norm))
	outOrig := make([]int, 0, cap(out))
	for i, c := range norm {
		if c == ' ' {
			out = append(out, metaWhitespace...)
			for range metaWhitespace {
				outOrig = append(outOrig, orig[i])
			}
			continue
		}
		out = append(out, c)
		outOrig = append(outOrig, orig[i])
	}
	return out, outOrig
}

func countSpaces(b []byte) int {
	n := 0
	for _, c := range b {
		if c == ' ' {
			n++
		}
	}
	return n
}

// coalesceAndTrimWhitespace merges consecutive whitespace units
// (meta-whitespace sequences, or raw spaces when escaping is off)
// into one and drops any whitespace unit trailing the last non-
// whitespace unit entirely (spec §4.3 step 6).
func coalesceAndTrimWhitespace(norm []byte, orig []int, wsLen int, escaped bool) ([]byte, []int) {
	isWS := func(i int) bool {
		if escaped {
			return i+wsLen <= len(norm) && string(norm[i:i+wsLen]) == string(metaWhitespace)
		}
		return norm[i] == ' '
	}

	out := make([]byte, 0, len(norm))
	outOrig := make([]int, 0, len(orig))
	i := 0
	prevWasWS := false
	for i < len(norm) {
		if isWS(i) {
			if !prevWasWS {
				out = append(out, norm[i:i+wsLen]...)
				outOrig = append(outOrig, orig[i:i+wsLen]...)
			}
			prevWasWS = true
			i += wsLen
			continue
		}
		out = append(out, norm[i])
		outOrig = append(outOrig, orig[i])
		prevWasWS = false
		i++
	}

	// Trim a single trailing whitespace unit, if the buffer ends with
	// one after coalescing (there can be at most one run there).
	if len(out) >= wsLen && isWSSuffix(out, wsLen, escaped) {
		out = out[:len(out)-wsLen]
		outOrig = outOrig[:len(outOrig)-wsLen]
	}
	return out, outOrig
}

func isWSSuffix(b []byte, wsLen int, escaped bool) bool {
	if escaped {
		tail := b[len(b)-wsLen:]
		return string(tail) == string(metaWhitespace)
	}
	return simd.TrailingRun(b, ' ') > 0
}
