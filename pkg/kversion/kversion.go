// Package kversion orders kernel-style release tags such as v4.4, v4.4.12
// or v5.10.1: dotted integer paths with an optional leading "v".
package kversion

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrMalformedVersion is returned when a tag component is not a non-negative integer.
var ErrMalformedVersion = errors.New("malformed version")

// Version is a parsed release tag.
type Version struct {
	raw   string
	parts []int
}

// Parse decomposes s into its integer components.
// The empty string parses as "0".
func Parse(s string) (Version, error) {
	body := strings.TrimPrefix(s, "v")
	if s == "" {
		body = "0"
	}

	fields := strings.Split(body, ".")
	parts := make([]int, 0, len(fields))

	for _, field := range fields {
		if field == "" || strings.TrimLeft(field, "0123456789") != "" {
			return Version{}, fmt.Errorf("%w: %q", ErrMalformedVersion, s)
		}

		n, err := strconv.Atoi(field)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q: %w", ErrMalformedVersion, s, err)
		}

		parts = append(parts, n)
	}

	return Version{raw: s, parts: parts}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return v
}

// String returns the tag as it was parsed.
func (v Version) String() string { return v.raw }

// Components returns a copy of the integer path.
func (v Version) Components() []int { return slices.Clone(v.parts) }

// Compare returns -1, 0 or +1.
//
// Components are compared pairwise from the left. A shared component equal
// to zero ends the comparison as equal, so every v0.x.y collapses together
// (and likewise v4.0 and v4.0.5). Otherwise, when one path runs out first,
// the shorter one is smaller: v4 < v4.1.
func Compare(a, b Version) int {
	ap, bp := a.path(), b.path()

	for i := 0; ; i++ {
		x, y := ap[i], bp[i]

		if x != y {
			if x < y {
				return -1
			}

			return 1
		}

		if x == 0 {
			return 0
		}

		aMore, bMore := i+1 < len(ap), i+1 < len(bp)

		switch {
		case !aMore && !bMore:
			return 0
		case !aMore:
			return -1
		case !bMore:
			return 1
		}
	}
}

// path treats the zero Version like "0".
func (v Version) path() []int {
	if len(v.parts) == 0 {
		return []int{0}
	}

	return v.parts
}

// Less reports whether a sorts before b.
func Less(a, b Version) bool { return Compare(a, b) < 0 }

// CompareStrings parses both tags and compares them.
func CompareStrings(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}

	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}

	return Compare(va, vb), nil
}

// Sort returns tags in ascending version order. The sort is stable, so tags
// that compare equal keep their input order.
func Sort(tags []string) ([]string, error) {
	parsed := make([]Version, 0, len(tags))

	for _, tag := range tags {
		v, err := Parse(tag)
		if err != nil {
			return nil, err
		}

		parsed = append(parsed, v)
	}

	slices.SortStableFunc(parsed, Compare)

	sorted := make([]string, len(parsed))
	for i, v := range parsed {
		sorted[i] = v.raw
	}

	return sorted, nil
}
