package gitlib

import (
	"context"
	"crypto/sha1" //nolint:gosec // object ids only need to be unique.
	"fmt"
	"regexp"
	"slices"
	"sync"
	"time"
)

// MemoryOracle is an in-memory commit graph implementing Oracle.
// It is used in unit tests where a real repository is not needed.
type MemoryOracle struct {
	mu      sync.Mutex
	commits map[Hash]*memoryCommit
	tags    map[string]Hash
	order   []string
	calls   []string
	err     error
	seq     int
}

type memoryCommit struct {
	hash    Hash
	message string
	when    time.Time
	parents []Hash
}

// NewMemoryOracle creates an empty commit graph.
func NewMemoryOracle() *MemoryOracle {
	return &MemoryOracle{
		commits: make(map[Hash]*memoryCommit),
		tags:    make(map[string]Hash),
	}
}

// Commit adds a commit with the given parents and returns its id.
func (m *MemoryOracle) Commit(message string, when time.Time, parents ...Hash) Hash {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++

	sum := sha1.Sum([]byte(fmt.Sprintf("%d\x00%s", m.seq, message))) //nolint:gosec // see import.
	hash := Hash(sum)

	m.commits[hash] = &memoryCommit{
		hash:    hash,
		message: message,
		when:    when,
		parents: slices.Clone(parents),
	}

	return hash
}

// Tag points name at target. Tags are listed in creation order.
func (m *MemoryOracle) Tag(name string, target Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tags[name]; !exists {
		m.order = append(m.order, name)
	}

	m.tags[name] = target
}

// FailWith makes every subsequent query return err.
func (m *MemoryOracle) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err
}

// Calls returns a log of the queries made so far, one "op arg" string each.
func (m *MemoryOracle) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.calls)
}

// ListTags returns tag names in creation order.
func (m *MemoryOracle) ListTags(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, "tags")
	if m.err != nil {
		return nil, m.err
	}

	return slices.Clone(m.order), nil
}

// LastCommitTimestamp returns the commit time of the revision.
func (m *MemoryOracle) LastCommitTimestamp(_ context.Context, rev string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, "timestamp "+rev)
	if m.err != nil {
		return 0, m.err
	}

	hash, err := m.resolve(rev)
	if err != nil {
		return 0, err
	}

	return m.commits[hash].when.Unix(), nil
}

// CommitsInRange returns the commits selected by rangeExpr, newest first.
func (m *MemoryOracle) CommitsInRange(_ context.Context, rangeExpr string, filter LogFilter) ([]CommitRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, "log "+rangeExpr)
	if m.err != nil {
		return nil, m.err
	}

	var grep *regexp.Regexp

	if filter.Grep != "" {
		compiled, err := regexp.Compile(filter.Grep)
		if err != nil {
			return nil, fmt.Errorf("compile grep %q: %w", filter.Grep, err)
		}

		grep = compiled
	}

	from, to := SplitRange(rangeExpr)

	head, err := m.resolve(to)
	if err != nil {
		return nil, err
	}

	hidden := map[Hash]bool{}

	if from != "" {
		base, baseErr := m.resolve(from)
		if baseErr != nil {
			return nil, baseErr
		}

		hidden = m.reachable(base)
	}

	var selected []*memoryCommit

	for hash := range m.reachable(head) {
		if hidden[hash] {
			continue
		}

		commit := m.commits[hash]
		if filter.NoMerges && len(commit.parents) > 1 {
			continue
		}

		if grep != nil && !grep.MatchString(commit.message) {
			continue
		}

		selected = append(selected, commit)
	}

	slices.SortFunc(selected, func(a, b *memoryCommit) int {
		return b.when.Compare(a.when)
	})

	refs := make([]CommitRef, 0, len(selected))
	for _, commit := range selected {
		refs = append(refs, CommitRef{Hash: commit.hash, Summary: commit.message})
	}

	return refs, nil
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (m *MemoryOracle) IsAncestor(_ context.Context, ancestor, descendant string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, "is-ancestor "+ancestor+" "+descendant)
	if m.err != nil {
		return false, m.err
	}

	anc, err := m.resolve(ancestor)
	if err != nil {
		return false, err
	}

	desc, err := m.resolve(descendant)
	if err != nil {
		return false, err
	}

	return m.reachable(desc)[anc], nil
}

// Close is a no-op.
func (m *MemoryOracle) Close() error { return nil }

func (m *MemoryOracle) resolve(rev string) (Hash, error) {
	if hash, ok := m.tags[rev]; ok {
		return hash, nil
	}

	hash, err := ParseHash(rev)
	if err == nil {
		if _, ok := m.commits[hash]; ok {
			return hash, nil
		}
	}

	return Hash{}, fmt.Errorf("%w: %s", ErrUnknownRevision, rev)
}

func (m *MemoryOracle) reachable(start Hash) map[Hash]bool {
	seen := map[Hash]bool{start: true}
	queue := []Hash{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, parent := range m.commits[current].parents {
			if !seen[parent] {
				seen[parent] = true
				queue = append(queue, parent)
			}
		}
	}

	return seen
}
