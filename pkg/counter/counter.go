// Package counter turns an ordered list of release tags into cumulative
// counts of matching commits.
package counter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Sumatoshi-tech/patchtally/pkg/gitlib"
)

// ErrNotAncestor is returned when ancestry checking is enabled and a version
// does not contain the history of its predecessor.
var ErrNotAncestor = errors.New("version does not descend from its predecessor")

// Options selects which commits are counted.
type Options struct {
	// Filter is a commit-message pattern passed to the oracle's grep.
	Filter string
	// AllowList, when non-nil, restricts counting to listed commit ids.
	AllowList AllowList
	// StartZero forces the first version's cumulative count to zero.
	StartZero bool
	// ExcludeMerges drops merge commits.
	ExcludeMerges bool
	// CheckAncestry verifies each version descends from the previous one.
	CheckAncestry bool
}

// Stat is the per-version result.
type Stat struct {
	// Timestamp is the author date of the tag's commit, in epoch seconds.
	Timestamp int64
	// Count is the number of matching commits (cumulative inside a Series).
	Count int
}

// Entry is one row of a Series.
type Entry struct {
	Version string
	Stat
}

// Series is an ordered sequence of per-version results.
type Series struct {
	Entries []Entry
}

// Get returns the stat recorded for version.
func (s *Series) Get(version string) (Stat, bool) {
	for _, e := range s.Entries {
		if e.Version == version {
			return e.Stat, true
		}
	}

	return Stat{}, false
}

// Len returns the number of entries.
func (s *Series) Len() int { return len(s.Entries) }

// Last returns the final entry's cumulative count, or zero for an empty series.
func (s *Series) Last() int {
	if len(s.Entries) == 0 {
		return 0
	}

	return s.Entries[len(s.Entries)-1].Count
}

// Counter counts commits through an oracle.
type Counter struct {
	oracle gitlib.Oracle
	opts   Options
	logger *slog.Logger
}

// New creates a counter. A nil logger discards output.
func New(oracle gitlib.Oracle, opts Options, logger *slog.Logger) *Counter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Counter{oracle: oracle, opts: opts, logger: logger}
}

// CountSingle counts matching commits reachable from version.
func (c *Counter) CountSingle(ctx context.Context, version string) (Stat, error) {
	return c.count(ctx, version, version)
}

// CountDiff counts matching commits reachable from version but not from previous.
func (c *Counter) CountDiff(ctx context.Context, version, previous string) (Stat, error) {
	return c.count(ctx, version, gitlib.Range(previous, version))
}

// CountOrdered walks versions and returns cumulative counts.
//
// versions must form an ancestor chain, each one containing the history of
// the one before it. That is not checked unless Options.CheckAncestry is
// set; an unordered list silently miscounts.
func (c *Counter) CountOrdered(ctx context.Context, versions []string) (*Series, error) {
	series := &Series{Entries: make([]Entry, 0, len(versions))}
	if len(versions) == 0 {
		return series, nil
	}

	first, err := c.CountSingle(ctx, versions[0])
	if err != nil {
		return nil, err
	}

	if c.opts.StartZero {
		first.Count = 0
	}

	series.Entries = append(series.Entries, Entry{Version: versions[0], Stat: first})

	for i := 1; i < len(versions); i++ {
		previous, version := versions[i-1], versions[i]

		if c.opts.CheckAncestry {
			checkErr := c.checkAncestry(ctx, previous, version)
			if checkErr != nil {
				return nil, checkErr
			}
		}

		step, diffErr := c.CountDiff(ctx, version, previous)
		if diffErr != nil {
			return nil, diffErr
		}

		cumulative := series.Entries[i-1].Count + step.Count
		series.Entries = append(series.Entries, Entry{
			Version: version,
			Stat:    Stat{Timestamp: step.Timestamp, Count: cumulative},
		})

		c.logger.DebugContext(ctx, "counted", "version", version, "step", step.Count, "total", cumulative)
	}

	return series, nil
}

func (c *Counter) count(ctx context.Context, version, rangeExpr string) (Stat, error) {
	refs, err := c.oracle.CommitsInRange(ctx, rangeExpr, gitlib.LogFilter{
		Grep:     c.opts.Filter,
		NoMerges: c.opts.ExcludeMerges,
	})
	if err != nil {
		return Stat{}, fmt.Errorf("count %s: %w", rangeExpr, err)
	}

	ts, err := c.oracle.LastCommitTimestamp(ctx, version)
	if err != nil {
		return Stat{}, fmt.Errorf("timestamp %s: %w", version, err)
	}

	return Stat{Timestamp: ts, Count: c.matching(refs)}, nil
}

func (c *Counter) matching(refs []gitlib.CommitRef) int {
	if c.opts.AllowList == nil {
		return len(refs)
	}

	n := 0

	for _, ref := range refs {
		if c.opts.AllowList.Contains(ref.Hash.String()) {
			n++
		}
	}

	return n
}

func (c *Counter) checkAncestry(ctx context.Context, previous, version string) error {
	ok, err := c.oracle.IsAncestor(ctx, previous, version)
	if err != nil {
		return fmt.Errorf("check ancestry %s: %w", gitlib.Range(previous, version), err)
	}

	if !ok {
		return fmt.Errorf("%w: %s is not an ancestor of %s", ErrNotAncestor, previous, version)
	}

	return nil
}
