package subpiece

import (
	"bytes"
	"os"

	"github.com/coregx/subpiece/model"
)

// Load reads a model artifact from path and builds a Processor from
// it.
//
// Example:
//
//	p, err := subpiece.Load("model.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
func Load(path string) (*Processor, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.NewStatus(model.NotFound, "subpiece: model file %q not found", path)
		}
		return nil, model.Wrap(model.Internal, err, "subpiece: opening %q", path)
	}
	defer f.Close()

	artifact, err := model.ReadArtifact(f)
	if err != nil {
		return nil, err
	}
	return newProcessor(artifact)
}

// LoadBytes builds a Processor from an in-memory model artifact, the
// same wire format Load reads from a file.
//
// Example:
//
//	p, err := subpiece.LoadBytes(data)
func LoadBytes(data []byte) (*Processor, error) {
	artifact, err := model.ReadArtifact(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return newProcessor(artifact)
}

// MustLoad is like Load but panics if the model cannot be loaded.
//
// Example:
//
//	var model = subpiece.MustLoad("model.bin")
func MustLoad(path string) *Processor {
	p, err := Load(path)
	if err != nil {
		panic("subpiece: Load(" + path + "): " + err.Error())
	}
	return p
}

// Save serializes the processor's artifact to path, overwriting any
// existing file.
//
// Example:
//
//	if err := p.Save("model.bin"); err != nil {
//	    log.Fatal(err)
//	}
func (p *Processor) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return model.Wrap(model.Internal, err, "subpiece: creating %q", path)
	}
	if _, err := p.artifact.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Reload replaces p's state with a fresh load of path. On failure p
// is left exactly as it was: Reload builds the replacement Processor
// value in full before swapping it in, so a bad or missing file never
// leaves p partially updated (spec.md §7 "the processor is left in
// its previous valid state on any failed load").
//
// Example:
//
//	if err := p.Reload("model-v2.bin"); err != nil {
//	    log.Printf("keeping previous model: %v", err)
//	}
func (p *Processor) Reload(path string) error {
	next, err := Load(path)
	if err != nil {
		return err
	}
	*p = *next
	return nil
}
