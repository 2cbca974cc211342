// Package normalize implements the subpiece normalizer: a longest-
// prefix rewriter over a compiled charsmap trie that maps arbitrary
// UTF-8 input to canonical form and produces a byte-aligned map back
// to the original input (spec §4.3).
//
// Grounded on the teacher's meta package "compile once, apply many"
// shape: Rules (built by CompileRules/DecodeRuleBlob) is an immutable
// value reused across many calls to Normalize, the same way a
// meta.Engine is compiled once from a pattern and then matched
// repeatedly.
package normalize

import (
	"bufio"
	"bytes"
	"sort"

	"github.com/coregx/subpiece/model"
	"github.com/coregx/subpiece/trie"
)

// commonPrefixCap is the K cap spec §4.3 assigns to normalization
// lookups: normalization rules are short, fixed strings, so 32
// simultaneous shared prefixes is always enough headroom.
const commonPrefixCap = 32

// Rules is a compiled, immutable normalization rule table: a
// double-array trie over match patterns plus a NUL-separated pool of
// replacement strings the trie's values index into.
type Rules struct {
	t    *trie.Trie
	pool []byte
}

// Empty is the identity rule set: Normalize with Empty performs no
// rewriting beyond the structural UTF-8/whitespace handling.
var Empty = &Rules{t: mustEmptyTrie(), pool: nil}

func mustEmptyTrie() *trie.Trie {
	t, err := trie.Build(nil, nil, commonPrefixCap)
	if err != nil {
		panic(err)
	}
	return t
}

// replacement returns the replacement bytes for a pool offset, read
// up to the next NUL or end of pool.
func (r *Rules) replacement(offset int32) []byte {
	if offset < 0 || int(offset) > len(r.pool) {
		return nil
	}
	end := bytes.IndexByte(r.pool[offset:], 0)
	if end < 0 {
		return r.pool[offset:]
	}
	return r.pool[offset : int(offset)+end]
}

// CompileRules parses a `pattern\treplacement` TSV (the format
// sentencepiece's builder.cc accepts as normalization_rule_tsv) into a
// compiled Rules value.
func CompileRules(tsv []byte) (*Rules, error) {
	type entry struct {
		pattern     string
		replacement string
	}
	seen := map[string]string{}
	sc := bufio.NewScanner(bytes.NewReader(tsv))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}
		parts := bytes.SplitN([]byte(line), []byte("\t"), 2)
		if len(parts) != 2 {
			return nil, model.NewStatus(model.InvalidArgument, "normalize: malformed rule TSV at line %d: %q", lineNo, line)
		}
		pattern := string(parts[0])
		if pattern == "" {
			return nil, model.NewStatus(model.InvalidArgument, "normalize: empty pattern at line %d", lineNo)
		}
		seen[pattern] = string(parts[1])
	}
	if err := sc.Err(); err != nil {
		return nil, model.Wrap(model.InvalidArgument, err, "normalize: reading rule TSV")
	}

	entries := make([]entry, 0, len(seen))
	for p, r := range seen {
		entries = append(entries, entry{pattern: p, replacement: r})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].pattern < entries[j].pattern })

	keys := make([][]byte, len(entries))
	values := make([]int32, len(entries))
	var pool []byte
	for i, e := range entries {
		keys[i] = []byte(e.pattern)
		values[i] = int32(len(pool))
		pool = append(pool, []byte(e.replacement)...)
		pool = append(pool, 0)
	}

	t, err := trie.Build(keys, values, commonPrefixCap)
	if err != nil {
		return nil, err
	}
	return &Rules{t: t, pool: pool}, nil
}
