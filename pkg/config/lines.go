package config

import (
	"fmt"
	"os"
	"strings"
)

// LoadLines reads the support lines listed in path. Tokens are separated by
// any whitespace; the file must exist.
func LoadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}

	return strings.Fields(string(data)), nil
}
