package report

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidManifest is returned when a manifest does not match its schema.
var ErrInvalidManifest = errors.New("invalid manifest")

//go:embed manifest.schema.json
var manifestSchema []byte

// Validate checks m against the manifest JSON schema.
func (m *Manifest) Validate() error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(manifestSchema),
		gojsonschema.NewGoLoader(m),
	)
	if err != nil {
		return fmt.Errorf("validate manifest: %w", err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		problems = append(problems, re.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(problems, "; "))
}
