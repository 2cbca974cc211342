package lattice

import (
	"container/heap"
	"math"
	"math/rand"

	"github.com/coregx/subpiece/model"
)

// Path is one complete segmentation: its content nodes (excluding
// BOS/EOS) and the path's total score.
type Path struct {
	Nodes []*Node
	Score float64
}

// maxAStarExpansions bounds the A* frontier pops in NBest's
// deterministic mode, as a safety valve against pathological lattices
// with very high branching factor; ordinary vocabularies never come
// close to it.
const maxAStarExpansions = 200000

// backwardViterbi computes, for every node, the maximum achievable
// total score of any path from just after that node through EOS (the
// node's own score excluded) — an exact, therefore admissible, A*
// heuristic for NBest.
func (l *Lattice) backwardViterbi() ([]float64, error) {
	if l.bos == nil || l.eos == nil {
		return nil, model.NewStatus(model.FailedPrecondition, "lattice: NBest requires InsertBOS and InsertEOS")
	}
	n := len(l.normalized)
	best := make([]float64, len(l.nodes))
	for i := range best {
		best[i] = negInf
	}
	best[l.eos.idx] = 0
	for pos := n; pos >= 0; pos-- {
		for _, lnode := range l.endNodes[pos] {
			if lnode == l.eos {
				continue
			}
			b := negInf
			for _, rnode := range l.beginNodes[pos] {
				if cand := best[rnode.idx] + float64(rnode.Score); cand > b {
					b = cand
				}
			}
			best[lnode.idx] = b
		}
	}
	return best, nil
}

// astarItem is one frontier entry: a path prefix ending at node,
// scored by prefixScore (exact) plus the admissible suffix heuristic.
type astarItem struct {
	node        *Node
	path        []*Node
	prefixScore float64
	priority    float64
}

type astarQueue []*astarItem

func (q astarQueue) Len() int            { return len(q) }
func (q astarQueue) Less(i, j int) bool  { return q[i].priority > q[j].priority }
func (q astarQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *astarQueue) Push(x interface{}) { *q = append(*q, x.(*astarItem)) }
func (q *astarQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// nbestAStar enumerates up to n distinct paths in strictly
// non-increasing score order using A* with the exact backward-Viterbi
// heuristic (spec §4.4.1 "N-best via A*").
func (l *Lattice) nbestAStar(n int) ([]Path, error) {
	heuristic, err := l.backwardViterbi()
	if err != nil {
		return nil, err
	}

	q := &astarQueue{{node: l.bos, priority: heuristic[l.bos.idx]}}
	heap.Init(q)

	var results []Path
	expansions := 0
	for q.Len() > 0 && len(results) < n && expansions < maxAStarExpansions {
		expansions++
		item := heap.Pop(q).(*astarItem)
		if item.node == l.eos {
			results = append(results, Path{Nodes: item.path, Score: item.prefixScore})
			continue
		}
		end := item.node.Pos + item.node.Len
		for _, succ := range l.beginNodes[end] {
			newScore := item.prefixScore + float64(succ.Score)
			var newPath []*Node
			if succ != l.eos {
				newPath = make([]*Node, len(item.path)+1)
				copy(newPath, item.path)
				newPath[len(item.path)] = succ
			} else {
				newPath = item.path
			}
			heap.Push(q, &astarItem{
				node:        succ,
				path:        newPath,
				prefixScore: newScore,
				priority:    newScore + heuristic[succ.idx],
			})
		}
	}
	return results, nil
}

// sampleOnePath draws one path from the theta-tempered path
// distribution: the backward (beta) values weight each successor, and
// nodes are sampled forward one at a time, starting at BOS.
func (l *Lattice) sampleOnePath(beta []float64, theta float64, rng *rand.Rand) Path {
	var path []*Node
	score := 0.0
	cur := l.bos
	for cur != l.eos {
		end := cur.Pos + cur.Len
		succs := l.beginNodes[end]
		logw := make([]float64, len(succs))
		maxw := negInf
		for i, s := range succs {
			logw[i] = theta*float64(s.Score) + beta[s.idx]
			if logw[i] > maxw {
				maxw = logw[i]
			}
		}
		total := 0.0
		weights := make([]float64, len(succs))
		for i := range succs {
			weights[i] = math.Exp(logw[i] - maxw)
			total += weights[i]
		}
		r := rng.Float64() * total
		chosen := succs[len(succs)-1]
		acc := 0.0
		for i, w := range weights {
			acc += w
			if r <= acc {
				chosen = succs[i]
				break
			}
		}
		score += float64(chosen.Score)
		if chosen != l.eos {
			path = append(path, chosen)
		}
		cur = chosen
	}
	return Path{Nodes: path, Score: score}
}

// NBest returns up to n paths. With sample=false it deterministically
// enumerates the n highest-scoring distinct paths via A*; with
// sample=true it draws n paths (with repetition allowed) from the
// theta-tempered distribution via forward-backward sampling (spec
// §4.5, §4.4.1).
func (l *Lattice) NBest(n int, sample bool, theta float64, rng *rand.Rand) ([]Path, error) {
	if n <= 0 {
		return nil, nil
	}
	if !sample {
		return l.nbestAStar(n)
	}
	_, beta, _, err := l.ForwardBackward(theta)
	if err != nil {
		return nil, err
	}
	out := make([]Path, n)
	for i := 0; i < n; i++ {
		out[i] = l.sampleOnePath(beta, theta, rng)
	}
	return out, nil
}
