package subpiece

import (
	"strings"

	"github.com/coregx/subpiece/model"
)

// validEncodeOptions and validDecodeOptions are the only extra-option
// tokens spec.md §6 allows; anything else is an InvalidArgument.
var (
	validEncodeOptions = map[string]bool{"reverse": true, "bos": true, "eos": true}
	validDecodeOptions = map[string]bool{"reverse": true}
)

// ErrNBestRequiresUnigram is returned by NBestEncode and SampleEncode
// when the loaded model's engine is not Unigram: only the Unigram
// lattice carries the alternative-path structure those operations
// walk.
var ErrNBestRequiresUnigram = model.NewStatus(model.Unimplemented, "subpiece: n-best/sample encoding requires a Unigram model")

// splitExtraOptions parses a ':'-separated extra-options string,
// rejecting any token not in allowed.
func splitExtraOptions(opts string, allowed map[string]bool) ([]string, error) {
	if opts == "" {
		return nil, nil
	}
	parts := strings.Split(opts, ":")
	for _, p := range parts {
		if !allowed[p] {
			return nil, model.NewStatus(model.InvalidArgument, "subpiece: unknown extra option %q", p)
		}
	}
	return parts, nil
}
