// Package catalog lists the release tags of a repository and classifies
// them into mainline releases and long-term-support lines.
package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Sumatoshi-tech/patchtally/pkg/gitlib"
	"github.com/Sumatoshi-tech/patchtally/pkg/kversion"
)

// Substrings that mark a tag as noise. "v2" drops the legacy v2.x series.
const (
	releaseCandidateMarker = "-rc"
	legacySeriesMarker     = "v2"
)

// stableRelease matches tags with a patch component, e.g. v4.4.1.
var stableRelease = regexp.MustCompile(`^.*\..*\..*$`)

// Catalog reads tags through an oracle.
type Catalog struct {
	oracle gitlib.Oracle
}

// New creates a catalog over the given oracle.
func New(oracle gitlib.Oracle) *Catalog {
	return &Catalog{oracle: oracle}
}

// ListTags returns every tag the oracle knows, unfiltered.
func (c *Catalog) ListTags(ctx context.Context) ([]string, error) {
	tags, err := c.oracle.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	return tags, nil
}

// Mainline returns the sorted mainline releases.
func (c *Catalog) Mainline(ctx context.Context) ([]string, error) {
	tags, err := c.ListTags(ctx)
	if err != nil {
		return nil, err
	}

	return sortTags(SelectMainline(FilterReleaseCandidates(tags)))
}

// Line returns the sorted releases of one support line.
func (c *Catalog) Line(ctx context.Context, line string) ([]string, error) {
	tags, err := c.ListTags(ctx)
	if err != nil {
		return nil, err
	}

	return sortTags(SelectLine(FilterReleaseCandidates(tags), line))
}

// FilterReleaseCandidates drops tags containing "-rc" or "v2".
func FilterReleaseCandidates(tags []string) []string {
	return filter(tags, func(tag string) bool {
		return !strings.Contains(tag, releaseCandidateMarker) && !strings.Contains(tag, legacySeriesMarker)
	})
}

// SelectMainline keeps tags with fewer than two dots.
func SelectMainline(tags []string) []string {
	return filter(tags, func(tag string) bool {
		return !stableRelease.MatchString(tag)
	})
}

// SelectLine keeps tags equal to line or starting with "line.".
func SelectLine(tags []string, line string) []string {
	prefix := line + "."

	return filter(tags, func(tag string) bool {
		return tag == line || strings.HasPrefix(tag, prefix)
	})
}

func filter(tags []string, keep func(string) bool) []string {
	kept := make([]string, 0, len(tags))

	for _, tag := range tags {
		if keep(tag) {
			kept = append(kept, tag)
		}
	}

	return kept
}

func sortTags(tags []string) ([]string, error) {
	sorted, err := kversion.Sort(tags)
	if err != nil {
		return nil, fmt.Errorf("sort tags: %w", err)
	}

	return sorted, nil
}
