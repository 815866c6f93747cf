package persist

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState struct {
	Name   string         `json:"name"   yaml:"name"`
	Count  int            `json:"count"  yaml:"count"`
	Values map[string]int `json:"values" yaml:"values"`
}

func TestJSONCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewJSONCodec()
	original := testState{Name: "v4.4", Count: 42, Values: map[string]int{"a": 1, "b": 2}}

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, original))

	var decoded testState

	require.NoError(t, codec.Decode(&buf, &decoded))
	assert.Equal(t, original, decoded)
}

func TestJSONCodec_CompactNoIndent(t *testing.T) {
	t.Parallel()

	codec := &JSONCodec{Indent: ""}

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, testState{Name: "compact", Count: 1}))

	// json.Encoder adds one trailing newline.
	assert.LessOrEqual(t, strings.Count(buf.String(), "\n"), 1)
}

func TestJSONCodec_Errors(t *testing.T) {
	t.Parallel()

	codec := NewJSONCodec()

	var decoded testState

	err := codec.Decode(strings.NewReader("not valid json{{{"), &decoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json decode")

	err = codec.Encode(&bytes.Buffer{}, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json encode")
}

func TestYAMLCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewYAMLCodec()
	original := testState{Name: "syzkaller", Count: 7, Values: map[string]int{"v4.4": 7}}

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, original))
	assert.Contains(t, buf.String(), "name: syzkaller")

	var decoded testState

	require.NoError(t, codec.Decode(&buf, &decoded))
	assert.Equal(t, original, decoded)
}

func TestYAMLCodec_EmptyDocumentIsNotAnError(t *testing.T) {
	t.Parallel()

	decoded := testState{Name: "kept"}

	require.NoError(t, NewYAMLCodec().Decode(strings.NewReader(""), &decoded))
	assert.Equal(t, "kept", decoded.Name)
}

func TestYAMLCodec_DecodeError(t *testing.T) {
	t.Parallel()

	var decoded testState

	err := NewYAMLCodec().Decode(strings.NewReader("name: [unterminated"), &decoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yaml decode")
}

func TestCodecFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		ext  string
	}{
		{"manifest.yaml", ".yaml"},
		{"dir/Manifest.YML", ".yaml"},
		{"state.json", ".json"},
	}

	for _, tt := range tests {
		codec, err := CodecFor(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.ext, codec.Extension(), tt.path)
	}

	_, err := CodecFor("manifest.txt")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSaveLoadState(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.yaml")
	original := testState{Name: "load-test", Count: 77, Values: map[string]int{"k": 5}}

	require.NoError(t, SaveState(path, NewYAMLCodec(), original))

	var loaded testState

	require.NoError(t, LoadState(path, NewYAMLCodec(), &loaded))
	assert.Equal(t, original, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must be renamed away")
}

func TestLoadState_FileNotFound(t *testing.T) {
	t.Parallel()

	var state testState

	err := LoadState(filepath.Join(t.TempDir(), "absent.json"), NewJSONCodec(), &state)
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "open")
}

func TestSaveState_InvalidDirectory(t *testing.T) {
	t.Parallel()

	err := SaveState("/nonexistent/path/that/does/not/exist/state.json", NewJSONCodec(), testState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create")
}

func TestSaveState_EncodeErrorLeavesNoFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	err := SaveState(filepath.Join(dir, "bad.json"), NewJSONCodec(), make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadState_DecodeError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("not json{{{"), 0o600))

	var state testState

	err := LoadState(path, NewJSONCodec(), &state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}
