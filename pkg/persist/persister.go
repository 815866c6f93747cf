package persist

import (
	"errors"
	"io/fs"
)

// Persister handles I/O for a specific state type at a fixed path.
type Persister[T any] struct {
	path  string
	codec Codec
}

// NewPersister creates a persister for path using the codec matching its
// extension.
func NewPersister[T any](path string) (*Persister[T], error) {
	codec, err := CodecFor(path)
	if err != nil {
		return nil, err
	}

	return &Persister[T]{path: path, codec: codec}, nil
}

// Path returns the file the persister reads and writes.
func (p *Persister[T]) Path() string { return p.path }

// Save writes state.
func (p *Persister[T]) Save(state *T) error {
	return SaveState(p.path, p.codec, state)
}

// Load reads the state. A missing file yields the zero value.
func (p *Persister[T]) Load() (*T, error) {
	var state T

	err := LoadState(p.path, p.codec, &state)
	if errors.Is(err, fs.ErrNotExist) {
		return &state, nil
	}

	if err != nil {
		return nil, err
	}

	return &state, nil
}
