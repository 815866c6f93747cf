package gitlib

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

const defaultGitBinary = "git"

// exitNotAncestor is the status `git merge-base --is-ancestor` uses for "no".
const exitNotAncestor = 1

// ErrCommandFailed matches every *CommandError.
var ErrCommandFailed = errors.New("git command failed")

// CommandError reports a git subprocess that could not run or exited non-zero.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}

	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// Is reports whether target is ErrCommandFailed.
func (e *CommandError) Is(target error) bool { return target == ErrCommandFailed }

// CLI is an Oracle that shells out to the git binary, one process per query.
type CLI struct {
	dir    string
	binary string
	logger *slog.Logger
}

// CLIOption configures a CLI.
type CLIOption func(*CLI)

// WithGitBinary overrides the git executable.
func WithGitBinary(path string) CLIOption {
	return func(c *CLI) { c.binary = path }
}

// WithLogger sets the logger used for per-command debug records.
func WithLogger(logger *slog.Logger) CLIOption {
	return func(c *CLI) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCLI creates a git subprocess oracle rooted at dir.
func NewCLI(dir string, opts ...CLIOption) *CLI {
	cli := &CLI{
		dir:    dir,
		binary: defaultGitBinary,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(cli)
	}

	return cli
}

// ListTags returns every tag name, in git's order.
func (c *CLI) ListTags(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "tag")
	if err != nil {
		return nil, err
	}

	return splitLines(out), nil
}

// LastCommitTimestamp returns the author date of the newest commit reachable from rev.
func (c *CLI) LastCommitTimestamp(ctx context.Context, rev string) (int64, error) {
	out, err := c.run(ctx, "log", rev, "--pretty=format:%ad", "--date=unix", "-1", "--")
	if err != nil {
		return 0, err
	}

	raw := strings.TrimSpace(string(out))

	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %q", ErrBadTimestamp, rev, raw)
	}

	return ts, nil
}

// CommitsInRange lists the commits selected by rangeExpr, newest first.
func (c *CLI) CommitsInRange(ctx context.Context, rangeExpr string, filter LogFilter) ([]CommitRef, error) {
	args := []string{"log", rangeExpr, "--format=format:%H%x00%s"}
	if filter.NoMerges {
		args = append(args, "--no-merges")
	}

	if filter.Grep != "" {
		args = append(args, "--grep", filter.Grep)
	}

	args = append(args, "--")

	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	lines := splitLines(out)
	refs := make([]CommitRef, 0, len(lines))

	for _, line := range lines {
		id, summary, _ := strings.Cut(line, "\x00")

		hash, parseErr := ParseHash(id)
		if parseErr != nil {
			return nil, fmt.Errorf("parse log output of %s: %w", rangeExpr, parseErr)
		}

		refs = append(refs, CommitRef{Hash: hash, Summary: summary})
	}

	return refs, nil
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (c *CLI) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	_, err := c.run(ctx, "merge-base", "--is-ancestor", ancestor, descendant)
	if err == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == exitNotAncestor {
		return false, nil
	}

	return false, err
}

// Close is a no-op; the CLI holds no resources between calls.
func (c *CLI) Close() error { return nil }

func (c *CLI) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Dir = c.dir

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	c.logger.DebugContext(ctx, "git", "args", args)

	out, err := cmd.Output()
	if err != nil {
		return nil, &CommandError{
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	return out, nil
}

func splitLines(out []byte) []string {
	var lines []string

	for line := range strings.SplitSeq(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}

	return lines
}
