package trie

import (
	"errors"
	"sort"
	"testing"

	"github.com/coregx/subpiece/model"
)

func buildSorted(t *testing.T, kv map[string]int32, cap int) *Trie {
	t.Helper()
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	bkeys := make([][]byte, len(keys))
	values := make([]int32, len(keys))
	for i, k := range keys {
		bkeys[i] = []byte(k)
		values[i] = kv[k]
	}
	tr, err := Build(bkeys, values, cap)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tr
}

func TestExactMatch(t *testing.T) {
	tr := buildSorted(t, map[string]int32{"a": 1, "ab": 2, "abc": 3, "b": 4}, 0)
	for k, want := range map[string]int32{"a": 1, "ab": 2, "abc": 3, "b": 4} {
		got, ok := tr.ExactMatch([]byte(k))
		if !ok || got != want {
			t.Errorf("ExactMatch(%q) = %d,%v want %d,true", k, got, ok, want)
		}
	}
	if _, ok := tr.ExactMatch([]byte("abcd")); ok {
		t.Error("ExactMatch(abcd) should not match")
	}
	if _, ok := tr.ExactMatch([]byte("ac")); ok {
		t.Error("ExactMatch(ac) should not match")
	}
}

func TestCommonPrefixSearch(t *testing.T) {
	tr := buildSorted(t, map[string]int32{"a": 1, "ab": 2, "abc": 3, "b": 4}, 0)
	out := make([]Match, 8)
	n := tr.CommonPrefixSearch([]byte("abcd"), out)
	if n != 3 {
		t.Fatalf("n = %d, want 3", n)
	}
	wantLens := []int{1, 2, 3}
	wantVals := []int32{1, 2, 3}
	for i := 0; i < n; i++ {
		if out[i].Length != wantLens[i] || out[i].Value != wantVals[i] {
			t.Errorf("out[%d] = %+v, want len %d val %d", i, out[i], wantLens[i], wantVals[i])
		}
	}
}

func TestCommonPrefixSearchNoMatch(t *testing.T) {
	tr := buildSorted(t, map[string]int32{"x": 1}, 0)
	out := make([]Match, 4)
	if n := tr.CommonPrefixSearch([]byte("yz"), out); n != 0 {
		t.Errorf("n = %d, want 0", n)
	}
}

func TestCommonPrefixSearchCapLimitsOutput(t *testing.T) {
	tr := buildSorted(t, map[string]int32{"a": 1, "ab": 2, "abc": 3}, 0)
	out := make([]Match, 2)
	n := tr.CommonPrefixSearch([]byte("abc"), out)
	if n != 2 {
		t.Fatalf("n = %d, want 2 (capped)", n)
	}
}

func TestBuildRejectsUnsortedOrDuplicate(t *testing.T) {
	_, err := Build([][]byte{[]byte("b"), []byte("a")}, []int32{1, 2}, 0)
	var st *model.Status
	if !errors.As(err, &st) || st.Kind != model.Internal {
		t.Fatalf("expected Internal for unsorted keys, got %v", err)
	}

	_, err = Build([][]byte{[]byte("a"), []byte("a")}, []int32{1, 2}, 0)
	if !errors.As(err, &st) || st.Kind != model.Internal {
		t.Fatalf("expected Internal for duplicate keys, got %v", err)
	}
}

func TestBuildRejectsCapOverflow(t *testing.T) {
	keys := [][]byte{[]byte("a"), []byte("ab"), []byte("abc"), []byte("abcd")}
	values := []int32{1, 2, 3, 4}
	if _, err := Build(keys, values, 3); err == nil {
		t.Fatal("expected error: 4-deep prefix chain exceeds cap 3")
	}
	tr, err := Build(keys, values, 4)
	if err != nil {
		t.Fatalf("Build with sufficient cap: %v", err)
	}
	if tr.MaxPrefixMatches() != 4 {
		t.Errorf("MaxPrefixMatches() = %d, want 4", tr.MaxPrefixMatches())
	}
}

func TestMaxPrefixChainLengthSiblings(t *testing.T) {
	// "ab" and "ac" are siblings, not nested: chain length stays 1 for
	// each beyond the shared "a".
	tr := buildSorted(t, map[string]int32{"a": 1, "ab": 2, "ac": 3}, 0)
	if got := tr.MaxPrefixMatches(); got != 2 {
		t.Errorf("MaxPrefixMatches() = %d, want 2 (a -> ab or a -> ac)", got)
	}
}

func TestEmptyTrie(t *testing.T) {
	tr, err := Build(nil, nil, 0)
	if err != nil {
		t.Fatalf("Build(empty): %v", err)
	}
	if _, ok := tr.ExactMatch([]byte("x")); ok {
		t.Error("empty trie should not match anything")
	}
}
