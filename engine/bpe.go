package engine

import (
	"container/heap"

	"github.com/coregx/subpiece/model"
	"github.com/coregx/subpiece/utf8x"
)

// BPE re-plays the learned merge sequence greedily over each
// sentence's codepoints via a doubly-linked symbol list and a
// max-heap of candidate adjacent merges (spec §4.4.2).
type BPE struct {
	tableBacked
	matcher *userDefinedMatcher
}

func NewBPE(table *model.Table) (*BPE, error) {
	matcher, err := newUserDefinedMatcher(table)
	if err != nil {
		return nil, err
	}
	return &BPE{tableBacked: tableBacked{table: table}, matcher: matcher}, nil
}

// bpeSymbol is one node of the doubly-linked symbol list, addressed
// by index rather than pointer (spec.md §9 "Linked list over indices
// in BPE"). alive is cleared, never removed, when a symbol is merged
// into its left neighbor.
type bpeSymbol struct {
	start, end int
	prev, next int
	alive      bool
}

// bpeCandidate is one heap entry: a proposed merge of two currently
// adjacent symbols, along with the byte lengths observed when it was
// pushed, used to detect staleness at pop time.
type bpeCandidate struct {
	left, right       int
	id                int32
	score             float32
	leftLen, rightLen int
}

type bpeHeap []*bpeCandidate

func (h bpeHeap) Len() int { return len(h) }
func (h bpeHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score > h[j].score
	}
	return h[i].left < h[j].left
}
func (h bpeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *bpeHeap) Push(x interface{}) { *h = append(*h, x.(*bpeCandidate)) }
func (h *bpeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

func (e *BPE) Encode(normalized []byte) ([]Span, error) {
	var out []Span
	for _, seg := range e.matcher.split(normalized) {
		if seg.isMatch {
			out = append(out, Span{Bytes: normalized[seg.pos:seg.end], ID: seg.id, Pos: seg.pos, Len: seg.end - seg.pos})
			continue
		}
		out = append(out, e.mergeGap(normalized, seg.pos, seg.end)...)
	}
	return out, nil
}

func (e *BPE) mergeGap(normalized []byte, pos, end int) []Span {
	var symbols []bpeSymbol
	for i := pos; i < end; {
		_, size := utf8x.Decode(normalized[i:end])
		symbols = append(symbols, bpeSymbol{start: i, end: i + size, prev: len(symbols) - 1, next: len(symbols) + 1, alive: true})
		i += size
	}
	if len(symbols) == 0 {
		return nil
	}
	symbols[len(symbols)-1].next = -1

	h := &bpeHeap{}
	heap.Init(h)
	for i := 0; i+1 < len(symbols); i++ {
		e.pushCandidate(h, symbols, normalized, i, i+1)
	}

	for h.Len() > 0 {
		cand := heap.Pop(h).(*bpeCandidate)
		l, r := symbols[cand.left], symbols[cand.right]
		if !l.alive || !r.alive || l.next != cand.right || r.prev != cand.left {
			continue
		}
		if l.end-l.start != cand.leftLen || r.end-r.start != cand.rightLen {
			continue
		}
		symbols[cand.left].end = r.end
		symbols[cand.right].alive = false
		symbols[cand.left].next = r.next
		if r.next != -1 {
			symbols[r.next].prev = cand.left
		}
		if p := symbols[cand.left].prev; p != -1 {
			e.pushCandidate(h, symbols, normalized, p, cand.left)
		}
		if n := symbols[cand.left].next; n != -1 {
			e.pushCandidate(h, symbols, normalized, cand.left, n)
		}
	}

	var out []Span
	for cur := 0; cur != -1; cur = symbols[cur].next {
		s := symbols[cur]
		b := normalized[s.start:s.end]
		id := e.table.PieceToID(b)
		if id == e.table.UnkID() && e.table.HasByteFallback() {
			for bp := s.start; bp < s.end; bp++ {
				bid := e.table.ByteID(normalized[bp])
				out = append(out, Span{Bytes: normalized[bp : bp+1], ID: bid, Pos: bp, Len: 1})
			}
			continue
		}
		out = append(out, Span{Bytes: b, ID: id, Pos: s.start, Len: s.end - s.start})
	}
	return out
}

// pushCandidate enqueues the merge of symbols[left] and symbols[right]
// if their concatenation is a Normal piece; UserDefined symbols never
// reach this path (they are pre-segmented by the matcher), so any
// vocabulary hit here is guaranteed Normal or Unknown.
func (e *BPE) pushCandidate(h *bpeHeap, symbols []bpeSymbol, normalized []byte, left, right int) {
	combined := normalized[symbols[left].start:symbols[right].end]
	id := e.table.PieceToID(combined)
	if id == e.table.UnkID() || e.table.Type(id) != model.PieceNormal {
		return
	}
	heap.Push(h, &bpeCandidate{
		left:     left,
		right:    right,
		id:       id,
		score:    e.table.Score(id),
		leftLen:  symbols[left].end - symbols[left].start,
		rightLen: symbols[right].end - symbols[right].start,
	})
}
