package seed

import "sort"

// buildSuffixArray returns the suffix array of data: sa[i] is the
// starting offset of the i-th suffix in lexicographic order. Built by
// prefix doubling (Manber-Myers), O(n log^2 n); correctness, not peak
// throughput, is what this package's seed generation needs, since it
// runs once per training job rather than per request.
func buildSuffixArray(data []byte) []int32 {
	n := len(data)
	sa := make([]int32, n)
	rank := make([]int32, n)
	for i := 0; i < n; i++ {
		sa[i] = int32(i)
		rank[i] = int32(data[i])
	}
	tmp := make([]int32, n)

	less := func(a, b int32, k int) bool {
		if rank[a] != rank[b] {
			return rank[a] < rank[b]
		}
		ra, rb := int32(-1), int32(-1)
		if int(a)+k < n {
			ra = rank[a+int32(k)]
		}
		if int(b)+k < n {
			rb = rank[b+int32(k)]
		}
		return ra < rb
	}

	for k := 1; k < n; k *= 2 {
		sort.Slice(sa, func(i, j int) bool { return less(sa[i], sa[j], k) })
		tmp[sa[0]] = 0
		for i := 1; i < n; i++ {
			tmp[sa[i]] = tmp[sa[i-1]]
			if less(sa[i-1], sa[i], k) {
				tmp[sa[i]]++
			}
		}
		copy(rank, tmp)
		if int(rank[sa[n-1]]) == n-1 {
			break
		}
	}
	return sa
}

// buildLCP returns Kasai's LCP array: lcp[i] is the length of the
// longest common prefix of the suffixes at sa[i-1] and sa[i] (lcp[0]
// is always 0, there being no predecessor).
func buildLCP(data []byte, sa []int32) []int32 {
	n := len(data)
	rank := make([]int32, n)
	for i, s := range sa {
		rank[s] = int32(i)
	}
	lcp := make([]int32, n)
	h := int32(0)
	for i := 0; i < n; i++ {
		r := rank[i]
		if r == 0 {
			h = 0
			continue
		}
		j := sa[r-1]
		for int(j)+int(h) < n && i+int(h) < n && data[int(j)+int(h)] == data[i+int(h)] {
			h++
		}
		lcp[r] = h
		if h > 0 {
			h--
		}
	}
	return lcp
}
