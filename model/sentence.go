package model

// Sentence is one line of training input after normalization: its
// normalized bytes and how many times it occurred in the corpus
// (spec §3 "Sentences: sequence of (text, frequency≥1) pairs").
type Sentence struct {
	Text []byte
	Freq int64
}
