package subpiece

// Options controls Processor-level behavior that is independent of
// the loaded artifact's trainer/normalizer configuration.
//
// Example:
//
//	opts := subpiece.DefaultOptions()
//	opts.EncodeExtraOptions = "bos:eos"
//	if err := p.SetOptions(opts); err != nil {
//	    log.Fatal(err)
//	}
type Options struct {
	// EncodeExtraOptions is a ':'-separated subset of
	// {"reverse", "bos", "eos"}, applied in list order to the
	// segmented piece sequence before span materialization (spec.md
	// §6 "Extra options"). Empty means no post-processing.
	EncodeExtraOptions string

	// DecodeExtraOptions is a ':'-separated subset of {"reverse"},
	// applied to the piece sequence before concatenation.
	DecodeExtraOptions string
}

// DefaultOptions returns the zero-value Options: no extra options
// applied to either Encode or Decode.
func DefaultOptions() Options {
	return Options{}
}
