package engine

import (
	"math/rand"

	"github.com/coregx/subpiece/lattice"
	"github.com/coregx/subpiece/model"
	"github.com/coregx/subpiece/trie"
	"github.com/coregx/subpiece/utf8x"
)

// Unigram builds a per-sentence lattice over every Normal+UserDefined
// piece matching at each position and decodes it with the lattice
// package's Viterbi/NBest algorithms (spec §4.4.1).
type Unigram struct {
	tableBacked
	matcher         *userDefinedMatcher
	minScore        float32
	hasByteFallback bool

	lat      *lattice.Lattice // reused across Encode calls, instance-owned
	matchBuf []trie.Match
}

// NewUnigram builds the segmentation trie consultation state for
// table. table must already carry the Normal+UserDefined trie built
// by model.NewTable.
func NewUnigram(table *model.Table) (*Unigram, error) {
	matcher, err := newUserDefinedMatcher(table)
	if err != nil {
		return nil, err
	}
	min := float32(0)
	for id := int32(0); int(id) < table.Size(); id++ {
		if s := table.Score(id); id == 0 || s < min {
			min = s
		}
	}
	capHint := table.SegmentationTrie().MaxPrefixMatches()
	if capHint < 1 {
		capHint = 1
	}
	return &Unigram{
		tableBacked:     tableBacked{table: table},
		matcher:         matcher,
		minScore:        min,
		hasByteFallback: table.HasByteFallback(),
		matchBuf:        make([]trie.Match, capHint),
	}, nil
}

// buildLattice constructs the full-sentence lattice: UserDefined spans
// become single forced nodes, and every other byte range is populated
// by common-prefix search over the Normal+UserDefined trie, with an
// Unknown fallback node inserted at any position lacking a match that
// covers exactly one codepoint (spec §4.4.1 "to guarantee
// reachability").
func (e *Unigram) buildLattice(normalized []byte) *lattice.Lattice {
	if e.lat == nil {
		e.lat = lattice.NewLattice(normalized)
	} else {
		e.lat.Reset(normalized)
	}
	l := e.lat
	l.InsertBOS()

	tr := e.table.SegmentationTrie()
	for _, seg := range e.matcher.split(normalized) {
		if seg.isMatch {
			l.Insert(seg.pos, seg.end-seg.pos, seg.id, e.table.Score(seg.id))
			continue
		}
		for pos := seg.pos; pos < seg.end; {
			n := tr.CommonPrefixSearch(normalized[pos:seg.end], e.matchBuf)
			_, cpLen := utf8x.Decode(normalized[pos:seg.end])
			hasSingleCP := false
			for i := 0; i < n; i++ {
				m := e.matchBuf[i]
				l.Insert(pos, m.Length, m.Value, e.table.Score(m.Value))
				if m.Length == cpLen {
					hasSingleCP = true
				}
			}
			if !hasSingleCP {
				if e.hasByteFallback {
					for bp := pos; bp < pos+cpLen; bp++ {
						bid := e.table.ByteID(normalized[bp])
						l.Insert(bp, 1, bid, e.table.Score(bid))
					}
				} else {
					l.Insert(pos, cpLen, e.table.UnkID(), e.minScore-10)
				}
			}
			pos += cpLen
		}
	}
	l.InsertEOS()
	return l
}

// BuildLattice exposes the per-sentence lattice construction for the
// Unigram trainer's E-step, which needs forward-backward marginals
// rather than a single decoded path.
func (e *Unigram) BuildLattice(normalized []byte) *lattice.Lattice {
	return e.buildLattice(normalized)
}

func nodesToSpans(nodes []*lattice.Node) []Span {
	out := make([]Span, len(nodes))
	for i, n := range nodes {
		out[i] = Span{Bytes: n.Bytes, ID: n.ID, Pos: n.Pos, Len: n.Len}
	}
	return out
}

// Encode implements Engine via Viterbi decoding of the sentence
// lattice.
func (e *Unigram) Encode(normalized []byte) ([]Span, error) {
	l := e.buildLattice(normalized)
	nodes, err := l.Viterbi()
	if err != nil {
		return nil, err
	}
	return nodesToSpans(nodes), nil
}

// NBest returns up to n distinct segmentations in descending score
// order (spec §4.4.1 "N-best").
func (e *Unigram) NBest(normalized []byte, n int) ([][]Span, error) {
	l := e.buildLattice(normalized)
	paths, err := l.NBest(n, false, 0, nil)
	if err != nil {
		return nil, err
	}
	out := make([][]Span, len(paths))
	for i, p := range paths {
		out[i] = nodesToSpans(p.Nodes)
	}
	return out, nil
}

// Sample draws n segmentations from the theta-tempered path
// distribution (spec §4.4.1 "Sampling").
func (e *Unigram) Sample(normalized []byte, n int, theta float64, rng *rand.Rand) ([][]Span, error) {
	l := e.buildLattice(normalized)
	paths, err := l.NBest(n, true, theta, rng)
	if err != nil {
		return nil, err
	}
	out := make([][]Span, len(paths))
	for i, p := range paths {
		out[i] = nodesToSpans(p.Nodes)
	}
	return out, nil
}
