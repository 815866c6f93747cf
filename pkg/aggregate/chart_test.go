package aggregate_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/patchtally/pkg/aggregate"
)

func TestNewChart_SeriesPerTool(t *testing.T) {
	t.Parallel()

	matrix := aggregate.NewMatrix([]string{"v4.4", "v4.9"})
	matrix.Set("v4.4", "syzkaller", 12)
	matrix.Set("v4.9", "kasan", 3)

	bar := aggregate.NewChart(matrix)
	require.Len(t, bar.MultiSeries, 2)
	assert.Equal(t, "kasan", bar.MultiSeries[0].Name)
	assert.Equal(t, "syzkaller", bar.MultiSeries[1].Name)
}

func TestRenderChart(t *testing.T) {
	t.Parallel()

	matrix := aggregate.NewMatrix([]string{"v4.4"})
	matrix.Set("v4.4", "syzkaller", 12)

	var buf bytes.Buffer

	require.NoError(t, aggregate.RenderChart(&buf, matrix))
	assert.Contains(t, buf.String(), "<html")
	assert.Contains(t, buf.String(), "syzkaller")
	assert.Contains(t, buf.String(), "v4.4")
}

func TestWriteChart(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "backports.html")

	require.NoError(t, aggregate.WriteChart(out, aggregate.NewMatrix([]string{"v4.4"})))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	require.Error(t, aggregate.WriteChart(filepath.Join(out, "nested.html"), aggregate.NewMatrix(nil)))
}
