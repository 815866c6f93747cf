// Package gitlib answers the small set of read-only history questions the
// release counters need: which tags exist, when a revision was made, and
// which commits a revision range contains.
package gitlib

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendCLI     = "cli"
	BackendLibgit2 = "libgit2"
)

// RangeSeparator joins two revisions into an exclusive range expression.
const RangeSeparator = ".."

var (
	// ErrRemoteNotSupported is returned when a remote repository URI is provided.
	ErrRemoteNotSupported = errors.New("remote repositories not supported")
	// ErrUnknownBackend is returned by Open for an unrecognized backend name.
	ErrUnknownBackend = errors.New("unknown git backend")
	// ErrUnknownRevision is returned when a revision cannot be resolved.
	ErrUnknownRevision = errors.New("unknown revision")
	// ErrBadTimestamp is returned when a commit date cannot be parsed.
	ErrBadTimestamp = errors.New("cannot parse commit timestamp")
)

var remoteURIPattern = regexp.MustCompile(`^[A-Za-z]\w*@[A-Za-z0-9][\w.]*:`)

// CommitRef identifies one commit returned by a range query.
type CommitRef struct {
	Hash    Hash
	Summary string
}

// LogFilter narrows a range query.
type LogFilter struct {
	// Grep keeps only commits whose message matches the pattern.
	Grep string
	// NoMerges drops commits with more than one parent.
	NoMerges bool
}

// Oracle is the read interface to a version-control history.
//
// A rangeExpr is either a single revision, meaning every ancestor of it, or
// "A..B", meaning the ancestors of B that are not ancestors of A.
type Oracle interface {
	ListTags(ctx context.Context) ([]string, error)
	LastCommitTimestamp(ctx context.Context, rev string) (int64, error)
	CommitsInRange(ctx context.Context, rangeExpr string, filter LogFilter) ([]CommitRef, error)
	IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error)
	Close() error
}

// Range builds the exclusive range expression "previous..version".
func Range(previous, version string) string {
	return previous + RangeSeparator + version
}

// SplitRange splits a range expression. For a single revision, from is empty.
func SplitRange(rangeExpr string) (from, to string) {
	from, to, ok := strings.Cut(rangeExpr, RangeSeparator)
	if !ok {
		return "", rangeExpr
	}

	return from, to
}

// Open returns an oracle for the local repository at path.
func Open(backend, path string, logger *slog.Logger) (Oracle, error) {
	if strings.Contains(path, "://") || remoteURIPattern.MatchString(path) {
		return nil, fmt.Errorf("%w: %s", ErrRemoteNotSupported, path)
	}

	if len(path) > 1 && path[len(path)-1] == os.PathSeparator {
		path = path[:len(path)-1]
	}

	switch backend {
	case BackendCLI, "":
		return NewCLI(path, WithLogger(logger)), nil
	case BackendLibgit2:
		return OpenRepository(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
	}
}
