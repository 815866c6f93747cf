// Package persist reads and writes small state documents through a codec
// chosen by file extension.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// File extensions for supported codecs.
const (
	jsonExtension = ".json"
	yamlExtension = ".yaml"
	ymlExtension  = ".yml"
)

// Default indentation for pretty-printed output.
const (
	defaultIndent     = "  "
	defaultYAMLIndent = 2
)

// ErrUnsupportedFormat is returned by CodecFor for an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported state file format")

// Codec defines how state is serialized and deserialized.
type Codec interface {
	// Encode writes the state to the writer.
	Encode(w io.Writer, state any) error
	// Decode reads the state from the reader.
	Decode(r io.Reader, state any) error
	// Extension returns the canonical file extension for this codec.
	Extension() string
}

// JSONCodec implements Codec using JSON encoding with optional indentation.
type JSONCodec struct {
	// Indent specifies the indentation string. Empty string means compact JSON.
	Indent string
}

// NewJSONCodec creates a JSON codec with pretty-printing (2-space indent).
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: defaultIndent}
}

// Encode implements Codec.Encode using JSON encoding.
func (c *JSONCodec) Encode(w io.Writer, state any) error {
	encoder := json.NewEncoder(w)
	if c.Indent != "" {
		encoder.SetIndent("", c.Indent)
	}

	err := encoder.Encode(state)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using JSON decoding.
func (c *JSONCodec) Decode(r io.Reader, state any) error {
	err := json.NewDecoder(r).Decode(state)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for JSON files.
func (c *JSONCodec) Extension() string {
	return jsonExtension
}

// YAMLCodec implements Codec using gopkg.in/yaml.v3.
type YAMLCodec struct {
	Indent int
}

// NewYAMLCodec creates a YAML codec with 2-space indentation.
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{Indent: defaultYAMLIndent}
}

// Encode implements Codec.Encode using YAML encoding.
func (c *YAMLCodec) Encode(w io.Writer, state any) error {
	encoder := yaml.NewEncoder(w)
	if c.Indent > 0 {
		encoder.SetIndent(c.Indent)
	}

	err := encoder.Encode(state)
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using YAML decoding. An empty document
// leaves state untouched.
func (c *YAMLCodec) Decode(r io.Reader, state any) error {
	err := yaml.NewDecoder(r).Decode(state)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("yaml decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for YAML files.
func (c *YAMLCodec) Extension() string {
	return yamlExtension
}

// CodecFor picks a codec from the extension of path.
func CodecFor(path string) (Codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case yamlExtension, ymlExtension:
		return NewYAMLCodec(), nil
	case jsonExtension:
		return NewJSONCodec(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
}

// SaveState encodes state into path. The document is written to a temporary
// file in the same directory and renamed over path, so readers never see a
// partial file.
func SaveState(path string, codec Codec, state any) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create state file: %w", err)
	}

	tmpName := tmp.Name()

	err = codec.Encode(tmp, state)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return fmt.Errorf("encode state: %w", err)
	}

	err = tmp.Close()
	if err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("close state file: %w", err)
	}

	err = os.Rename(tmpName, path)
	if err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

// LoadState decodes path into state, which must be a pointer.
func LoadState(path string, codec Codec, state any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	err = codec.Decode(file, state)
	if err != nil {
		return fmt.Errorf("decode state: %w", err)
	}

	return nil
}
