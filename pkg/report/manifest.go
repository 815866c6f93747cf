package report

import (
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/Sumatoshi-tech/patchtally/pkg/persist"
)

// DefaultManifest is the manifest file name used when none is configured.
const DefaultManifest = "manifest.yaml"

// MainlineLine is the line name recorded for the mainline (".0") report.
const MainlineLine = "zero"

// Entry describes one written report.
type Entry struct {
	Tool      string    `yaml:"tool"               json:"tool"`
	Line      string    `yaml:"line"               json:"line"`
	Path      string    `yaml:"path"               json:"path"`
	Column    string    `yaml:"column"             json:"column"`
	Filtered  bool      `yaml:"filtered,omitempty" json:"filtered,omitempty"`
	Versions  int       `yaml:"versions"           json:"versions"`
	Total     int       `yaml:"total"              json:"total"`
	WrittenAt time.Time `yaml:"written_at"         json:"written_at"`
}

func (e Entry) sameKey(o Entry) bool {
	return e.Tool == o.Tool && e.Line == o.Line && e.Filtered == o.Filtered
}

// Manifest indexes the reports written into a directory.
type Manifest struct {
	Reports []Entry `yaml:"reports" json:"reports"`

	dir string
}

// LoadManifest reads and validates the manifest at path. A missing file
// yields an empty manifest. Relative report paths resolve against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	p, err := persist.NewPersister[Manifest](path)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}

	m, err := p.Load()
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	err = m.Validate()
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}

	m.dir = filepath.Dir(path)

	return m, nil
}

// Save writes the manifest to path.
func (m *Manifest) Save(path string) error {
	p, err := persist.NewPersister[Manifest](path)
	if err != nil {
		return fmt.Errorf("manifest %s: %w", path, err)
	}

	err = p.Save(m)
	if err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}

	return nil
}

// Record adds e, replacing any entry with the same tool, line and filtered flag.
func (m *Manifest) Record(e Entry) {
	idx := slices.IndexFunc(m.Reports, e.sameKey)
	if idx >= 0 {
		m.Reports[idx] = e

		return
	}

	m.Reports = append(m.Reports, e)
}

// ForLine returns the unfiltered entries recorded for line, in recording order.
func (m *Manifest) ForLine(line string) []Entry {
	var out []Entry

	for _, e := range m.Reports {
		if e.Line == line && !e.Filtered {
			out = append(out, e)
		}
	}

	return out
}

// Resolve returns the filesystem path of e's report.
func (m *Manifest) Resolve(e Entry) string {
	if filepath.IsAbs(e.Path) || m.dir == "" {
		return e.Path
	}

	return filepath.Join(m.dir, e.Path)
}

// FileName returns the report file name for a tool prefix and line.
func FileName(prefix, line string) string {
	return prefix + "_" + line + ".csv"
}

// FilteredFileName returns the report file name for a single-version run.
func FilteredFileName(prefix, version string) string {
	return prefix + "_" + version + "_filtered.csv"
}
