// Package subpiece implements an unsupervised subword tokenizer in
// the style of SentencePiece: a trainer that learns a subword
// vocabulary directly from raw text (no pre-tokenization or language-
// specific rules required) plus a processor that segments new text
// against a trained model.
//
// subpiece combines four pieces:
//   - A longest-prefix normalizer that maps arbitrary UTF-8 input to
//     canonical form via a compiled rewrite-rule trie.
//   - Four segmentation engines (Unigram, BPE, Word, Char) sharing one
//     piece table and one user-defined-symbol matcher.
//   - Two trainers (EM-based Unigram, greedy-merge BPE) that learn a
//     vocabulary from a corpus of sentences.
//   - A self-describing binary artifact format that round-trips a
//     trained model, including its normalizer configuration and every
//     trainer setting except SeedSentencepieceSize, which is not stored.
//
// Basic usage:
//
//	p, err := subpiece.Load("model.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	spans, err := p.Encode("hello world")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, s := range spans {
//	    fmt.Println(s.ID, s.Piece)
//	}
//
// Training:
//
//	spec := model.DefaultTrainerSpec()
//	spec.VocabSize = 16000
//	pieces, err := unigram.Train(sentences, spec)
//
// Out of scope (see SPEC_FULL.md for the full list): CLI drivers, flag
// parsing, and non-Go language bindings.
package subpiece
