package gitlib

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	git2go "github.com/libgit2/git2go/v34"
)

// Repository is an Oracle backed by an in-process libgit2 repository.
type Repository struct {
	repo *git2go.Repository
	path string
}

// OpenRepository opens a git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// Path returns the repository path.
func (r *Repository) Path() string {
	return r.path
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// Close releases the repository resources.
func (r *Repository) Close() error {
	r.Free()

	return nil
}

// ListTags returns every tag name sorted by name, matching `git tag`.
func (r *Repository) ListTags(_ context.Context) ([]string, error) {
	tags, err := r.repo.Tags.List()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	sort.Strings(tags)

	return tags, nil
}

// LastCommitTimestamp returns the author date of the commit rev points at.
func (r *Repository) LastCommitTimestamp(_ context.Context, rev string) (int64, error) {
	commit, err := r.resolveCommit(rev)
	if err != nil {
		return 0, err
	}
	defer commit.Free()

	return commit.Author().When.Unix(), nil
}

// CommitsInRange walks rangeExpr in time order. Grep uses RE2 syntax.
func (r *Repository) CommitsInRange(_ context.Context, rangeExpr string, filter LogFilter) ([]CommitRef, error) {
	var grep *regexp.Regexp

	if filter.Grep != "" {
		compiled, err := regexp.Compile(filter.Grep)
		if err != nil {
			return nil, fmt.Errorf("compile grep %q: %w", filter.Grep, err)
		}

		grep = compiled
	}

	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}
	defer walk.Free()

	walk.Sorting(git2go.SortTime)

	from, to := SplitRange(rangeExpr)

	pushErr := r.pushRange(walk, from, to)
	if pushErr != nil {
		return nil, pushErr
	}

	var refs []CommitRef

	iterErr := walk.Iterate(func(commit *git2go.Commit) bool {
		defer commit.Free()

		if filter.NoMerges && commit.ParentCount() > 1 {
			return true
		}

		if grep != nil && !grep.MatchString(commit.Message()) {
			return true
		}

		refs = append(refs, CommitRef{Hash: HashFromOid(commit.Id()), Summary: commit.Summary()})

		return true
	})
	if iterErr != nil {
		return nil, fmt.Errorf("revwalk iterate %s: %w", rangeExpr, iterErr)
	}

	return refs, nil
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (r *Repository) IsAncestor(_ context.Context, ancestor, descendant string) (bool, error) {
	anc, err := r.resolveCommit(ancestor)
	if err != nil {
		return false, err
	}
	defer anc.Free()

	desc, err := r.resolveCommit(descendant)
	if err != nil {
		return false, err
	}
	defer desc.Free()

	if anc.Id().Equal(desc.Id()) {
		return true, nil
	}

	ok, err := r.repo.DescendantOf(desc.Id(), anc.Id())
	if err != nil {
		return false, fmt.Errorf("descendant of %s: %w", ancestor, err)
	}

	return ok, nil
}

func (r *Repository) pushRange(walk *git2go.RevWalk, from, to string) error {
	head, err := r.resolveCommit(to)
	if err != nil {
		return err
	}
	defer head.Free()

	err = walk.Push(head.Id())
	if err != nil {
		return fmt.Errorf("push to revwalk: %w", err)
	}

	if from == "" {
		return nil
	}

	base, err := r.resolveCommit(from)
	if err != nil {
		return err
	}
	defer base.Free()

	err = walk.Hide(base.Id())
	if err != nil {
		return fmt.Errorf("hide from revwalk: %w", err)
	}

	return nil
}

func (r *Repository) resolveCommit(rev string) (*git2go.Commit, error) {
	obj, err := r.repo.RevparseSingle(rev)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnknownRevision, rev, err)
	}
	defer obj.Free()

	peeled, err := obj.Peel(git2go.ObjectCommit)
	if err != nil {
		return nil, fmt.Errorf("peel %s to commit: %w", rev, err)
	}
	defer peeled.Free()

	commit, err := r.repo.LookupCommit(peeled.Id())
	if err != nil {
		return nil, fmt.Errorf("lookup commit %s: %w", rev, err)
	}

	return commit, nil
}
