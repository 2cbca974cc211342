// Package lattice implements the per-sentence segmentation DAG shared
// by the Unigram engine and trainer: Viterbi decoding, forward-
// backward marginals, and N-best/sampled path enumeration over a set
// of candidate (position, length, piece) spans (spec §4.5).
//
// Grounded on the teacher's nfa/pikevm.go state-stepping engine: a
// single explicit per-position worklist driving transitions, here
// generalized from NFA thread sets to per-byte-position node lists.
// The node storage is a bump arena reused across sentences via Reset,
// mirroring internal/sparse's O(1)-reset, no-per-item-allocation
// shape.
package lattice

import "github.com/coregx/subpiece/model"

// Node is one candidate piece occupying normalized[Pos:Pos+Len]. The
// two BOS/EOS sentinel nodes (ID<0) have Len==0 and carry no bytes.
type Node struct {
	Bytes []byte
	Pos   int
	Len   int
	ID    int32
	Score float32

	idx int // this node's position in the owning Lattice's arena

	viterbiScore float64
	backPrev     *Node
}

const bosID int32 = -1
const eosID int32 = -2

// Lattice is the arena-owned, instance-local DAG for one normalized
// sentence. Reset reinitializes it for a new sentence, reusing the
// arena's backing storage.
type Lattice struct {
	normalized []byte
	beginNodes [][]*Node
	endNodes   [][]*Node
	bos, eos   *Node
	arena      []Node
	nodes      []*Node // stable pointers in allocation order, parallel to idx
}

// NewLattice allocates a Lattice for normalized. No nodes (not even
// BOS/EOS) are present until Insert/InsertBOS/InsertEOS are called.
func NewLattice(normalized []byte) *Lattice {
	l := &Lattice{}
	l.Reset(normalized)
	return l
}

// Reset reinitializes l for a new normalized sentence, reusing the
// arena and position-index slices' backing arrays when large enough.
func (l *Lattice) Reset(normalized []byte) {
	n := len(normalized)
	l.normalized = normalized
	l.arena = l.arena[:0]
	l.nodes = l.nodes[:0]
	l.bos, l.eos = nil, nil

	if cap(l.beginNodes) >= n+1 {
		l.beginNodes = l.beginNodes[:n+1]
		l.endNodes = l.endNodes[:n+1]
		for i := range l.beginNodes {
			l.beginNodes[i] = l.beginNodes[i][:0]
			l.endNodes[i] = l.endNodes[i][:0]
		}
	} else {
		l.beginNodes = make([][]*Node, n+1)
		l.endNodes = make([][]*Node, n+1)
	}
}

// alloc returns a fresh zero Node from the arena. The returned pointer
// is the only address ever used to reach this node again (it is also
// retained in l.nodes); a later arena growth/reallocation never
// invalidates it, since Go keeps the old backing array alive as long
// as this pointer exists.
func (l *Lattice) alloc() *Node {
	l.arena = append(l.arena, Node{})
	n := &l.arena[len(l.arena)-1]
	n.idx = len(l.nodes)
	l.nodes = append(l.nodes, n)
	return n
}

// Len returns the normalized sentence length in bytes.
func (l *Lattice) Len() int { return len(l.normalized) }

// Insert adds a candidate piece spanning normalized[pos:pos+length].
func (l *Lattice) Insert(pos, length int, id int32, score float32) *Node {
	n := l.alloc()
	n.Bytes = l.normalized[pos : pos+length]
	n.Pos = pos
	n.Len = length
	n.ID = id
	n.Score = score
	l.beginNodes[pos] = append(l.beginNodes[pos], n)
	l.endNodes[pos+length] = append(l.endNodes[pos+length], n)
	return n
}

// InsertBOS inserts the virtual start-of-sentence node, a predecessor
// for every node beginning at position 0.
func (l *Lattice) InsertBOS() *Node {
	n := l.alloc()
	n.Pos, n.Len, n.ID = 0, 0, bosID
	l.endNodes[0] = append(l.endNodes[0], n)
	l.bos = n
	return n
}

// InsertEOS inserts the virtual end-of-sentence node, a successor for
// every node ending at the sentence's length.
func (l *Lattice) InsertEOS() *Node {
	end := len(l.normalized)
	n := l.alloc()
	n.Pos, n.Len, n.ID = end, 0, eosID
	l.beginNodes[end] = append(l.beginNodes[end], n)
	l.eos = n
	return n
}

// viterbiTieBreak reports whether candidate should replace current as
// the chosen predecessor when their scores tie: shorter piece wins,
// then lexicographically smaller bytes (spec §4.4.1).
func viterbiTieBreak(current, candidate *Node) bool {
	if candidate.Len != current.Len {
		return candidate.Len < current.Len
	}
	return string(candidate.Bytes) < string(current.Bytes)
}

// Viterbi returns the best-scoring path's content nodes (excluding
// BOS/EOS) in left-to-right order.
func (l *Lattice) Viterbi() ([]*Node, error) {
	if l.bos == nil || l.eos == nil {
		return nil, model.NewStatus(model.FailedPrecondition, "lattice: Viterbi requires InsertBOS and InsertEOS")
	}
	n := len(l.normalized)
	l.bos.viterbiScore = 0
	l.bos.backPrev = nil

	for pos := 0; pos <= n; pos++ {
		for _, rnode := range l.beginNodes[pos] {
			if rnode == l.bos {
				continue
			}
			var best *Node
			bestScore := negInf
			for _, lnode := range l.endNodes[pos] {
				cand := lnode.viterbiScore + float64(lnode.Score)
				if best == nil || cand > bestScore || (cand == bestScore && viterbiTieBreak(best, lnode)) {
					best, bestScore = lnode, cand
				}
			}
			if best == nil {
				return nil, model.NewStatus(model.FailedPrecondition, "lattice: no path reaches position %d", pos)
			}
			rnode.viterbiScore = bestScore
			rnode.backPrev = best
		}
	}

	var rev []*Node
	for cur := l.eos.backPrev; cur != nil && cur != l.bos; cur = cur.backPrev {
		rev = append(rev, cur)
	}
	path := make([]*Node, len(rev))
	for i, n := range rev {
		path[len(rev)-1-i] = n
	}
	return path, nil
}
