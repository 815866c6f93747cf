package gitlib_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/patchtally/pkg/gitlib"
)

var epoch = time.Unix(1_500_000_000, 0)

func TestMemoryOracle_RangeExcludesBaseAncestors(t *testing.T) {
	t.Parallel()

	oracle := gitlib.NewMemoryOracle()
	c1 := oracle.Commit("first", epoch)
	c2 := oracle.Commit("second Reported-by: bot", epoch.Add(time.Hour), c1)
	c3 := oracle.Commit("third", epoch.Add(2*time.Hour), c2)
	oracle.Tag("v1.0", c1)
	oracle.Tag("v1.1", c3)

	ctx := context.Background()

	all, err := oracle.CommitsInRange(ctx, "v1.1", gitlib.LogFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, c3, all[0].Hash)

	diff, err := oracle.CommitsInRange(ctx, gitlib.Range("v1.0", "v1.1"), gitlib.LogFilter{})
	require.NoError(t, err)
	assert.Len(t, diff, 2)

	grep, err := oracle.CommitsInRange(ctx, "v1.1", gitlib.LogFilter{Grep: "Reported-by"})
	require.NoError(t, err)
	require.Len(t, grep, 1)
	assert.Equal(t, c2, grep[0].Hash)

	ts, err := oracle.LastCommitTimestamp(ctx, "v1.1")
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(2*time.Hour).Unix(), ts)
}

func TestMemoryOracle_NoMergesAndAncestry(t *testing.T) {
	t.Parallel()

	oracle := gitlib.NewMemoryOracle()
	root := oracle.Commit("root", epoch)
	left := oracle.Commit("left", epoch.Add(time.Minute), root)
	right := oracle.Commit("right", epoch.Add(2*time.Minute), root)
	merge := oracle.Commit("merge", epoch.Add(3*time.Minute), left, right)
	oracle.Tag("left", left)
	oracle.Tag("right", right)
	oracle.Tag("top", merge)

	ctx := context.Background()

	refs, err := oracle.CommitsInRange(ctx, "top", gitlib.LogFilter{NoMerges: true})
	require.NoError(t, err)
	assert.Len(t, refs, 3)

	ok, err := oracle.IsAncestor(ctx, "left", "top")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = oracle.IsAncestor(ctx, "left", "right")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = oracle.IsAncestor(ctx, merge.String(), merge.String())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryOracle_ErrorsAndCallLog(t *testing.T) {
	t.Parallel()

	oracle := gitlib.NewMemoryOracle()
	oracle.Tag("v1", oracle.Commit("only", epoch))

	ctx := context.Background()

	_, err := oracle.LastCommitTimestamp(ctx, "v9")
	require.ErrorIs(t, err, gitlib.ErrUnknownRevision)

	boom := errors.New("boom")
	oracle.FailWith(boom)

	_, err = oracle.ListTags(ctx)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"timestamp v9", "tags"}, oracle.Calls())
}

func TestSplitRange(t *testing.T) {
	t.Parallel()

	from, to := gitlib.SplitRange("v4.4..v4.4.1")
	assert.Equal(t, "v4.4", from)
	assert.Equal(t, "v4.4.1", to)

	from, to = gitlib.SplitRange("v4.4")
	assert.Empty(t, from)
	assert.Equal(t, "v4.4", to)
}

func TestOpen_RejectsRemoteAndUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := gitlib.Open(gitlib.BackendCLI, "https://example.com/repo.git", nil)
	require.ErrorIs(t, err, gitlib.ErrRemoteNotSupported)

	_, err = gitlib.Open(gitlib.BackendCLI, "git@example.com:repo.git", nil)
	require.ErrorIs(t, err, gitlib.ErrRemoteNotSupported)

	_, err = gitlib.Open("svn", t.TempDir(), nil)
	require.ErrorIs(t, err, gitlib.ErrUnknownBackend)

	oracle, err := gitlib.Open("", t.TempDir(), nil)
	require.NoError(t, err)
	assert.IsType(t, &gitlib.CLI{}, oracle)
	require.NoError(t, oracle.Close())
}
