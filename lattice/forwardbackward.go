package lattice

import (
	"math"

	"github.com/coregx/subpiece/model"
)

// ForwardBackward computes, for every node in l (indexed by each
// Node's arena position), alpha[i] = the log-sum-exp total theta-
// scaled score of every path from BOS up to (but not including) node
// i, and beta[i] = the same quantity from just after node i through
// to EOS. logZ is the sentence's total log-partition value.
//
// This is the standard unigram-LM forward-backward recursion (spec
// §4.5): each node's own score is attributed once, at the step where
// a path transitions out of it, so alpha[i]+theta*score(i)+beta[i] is
// exactly the total score of every path passing through node i.
func (l *Lattice) ForwardBackward(theta float64) (alpha, beta []float64, logZ float64, err error) {
	if l.bos == nil || l.eos == nil {
		return nil, nil, 0, model.NewStatus(model.FailedPrecondition, "lattice: ForwardBackward requires InsertBOS and InsertEOS")
	}
	n := len(l.normalized)
	na := len(l.nodes)
	alpha = make([]float64, na)
	beta = make([]float64, na)
	for i := range alpha {
		alpha[i] = negInf
		beta[i] = negInf
	}
	alpha[l.bos.idx] = 0
	beta[l.eos.idx] = 0

	for pos := 0; pos <= n; pos++ {
		for _, rnode := range l.beginNodes[pos] {
			if rnode == l.bos {
				continue
			}
			sum := negInf
			for _, lnode := range l.endNodes[pos] {
				sum = logSumExp(sum, alpha[lnode.idx]+theta*float64(lnode.Score))
			}
			alpha[rnode.idx] = sum
		}
	}
	for pos := n; pos >= 0; pos-- {
		for _, lnode := range l.endNodes[pos] {
			if lnode == l.eos {
				continue
			}
			sum := negInf
			for _, rnode := range l.beginNodes[pos] {
				sum = logSumExp(sum, beta[rnode.idx]+theta*float64(rnode.Score))
			}
			beta[lnode.idx] = sum
		}
	}

	logZ = alpha[l.eos.idx]
	return alpha, beta, logZ, nil
}

// PopulateMarginal runs ForwardBackward at theta=1 and accumulates
// freq*exp(alpha+score+beta-logZ) into expected[node.ID] for every
// content node (BOS/EOS, whose IDs are negative, are skipped). It
// returns freq*logZ (spec §4.5).
func (l *Lattice) PopulateMarginal(freq float64, expected []float64) (float64, error) {
	alpha, beta, logZ, err := l.ForwardBackward(1.0)
	if err != nil {
		return 0, err
	}
	for i, node := range l.nodes {
		if node.ID < 0 {
			continue
		}
		p := alpha[i] + float64(node.Score) + beta[i] - logZ
		expected[node.ID] += freq * math.Exp(p)
	}
	return freq * logZ, nil
}
