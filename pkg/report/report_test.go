package report_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/patchtally/pkg/counter"
	"github.com/Sumatoshi-tech/patchtally/pkg/report"
)

func sampleSeries() *counter.Series {
	return &counter.Series{Entries: []counter.Entry{
		{Version: "v4.4", Stat: counter.Stat{Timestamp: 1452466153, Count: 5}},
		{Version: "v4.4.10", Stat: counter.Stat{Timestamp: 1462800000, Count: 5}},
		{Version: "v4.4.2", Stat: counter.Stat{Timestamp: 1454000000, Count: 12}},
	}}
}

func TestEncode_KeepsSeriesOrder(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.Encode(&buf, "syzkaller_patches", sampleSeries()))

	want := "version,timestamp,syzkaller_patches\n" +
		"v4.4,1452466153,5\n" +
		"v4.4.10,1462800000,5\n" +
		"v4.4.2,1454000000,12\n"
	assert.Equal(t, want, buf.String())
}

func TestEncode_DefaultColumnAndEmptySeries(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.Encode(&buf, "", &counter.Series{}))
	assert.Equal(t, "version,timestamp,patches\n", buf.String())
}

func TestWriteRead_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), report.FileName("toolA", "v4.4"))
	require.NoError(t, os.WriteFile(path, []byte("stale contents that must disappear\n"), 0o600))

	require.NoError(t, report.Write(path, report.DefaultColumn, sampleSeries()))

	table, err := report.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"version", "timestamp", "patches"}, table.Header)
	require.Len(t, table.Rows, 3)

	values, err := table.Ints(report.DefaultColumn)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 5, 12}, values)
}

func TestTable_FallsBackToThirdColumn(t *testing.T) {
	t.Parallel()

	table, err := report.Decode(strings.NewReader("version,timestamp,syzkaller_patches\nv4.9,1,0\nv4.9.1,2,3\n"))
	require.NoError(t, err)

	values, err := table.Ints(report.DefaultColumn)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, values)
}

func TestTable_Errors(t *testing.T) {
	t.Parallel()

	_, err := report.Decode(strings.NewReader(""))
	require.ErrorIs(t, err, report.ErrEmptyReport)

	narrow, err := report.Decode(strings.NewReader("version,timestamp\nv4.4,1\n"))
	require.NoError(t, err)

	_, err = narrow.Ints(report.DefaultColumn)
	require.ErrorIs(t, err, report.ErrMissingColumn)

	bad, err := report.Decode(strings.NewReader("version,timestamp,patches\nv4.4,1,many\n"))
	require.NoError(t, err)

	_, err = bad.Ints(report.DefaultColumn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
}

func TestRead_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := report.Read(filepath.Join(t.TempDir(), "absent.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "patch_data_v4.14.csv", report.FileName("patch_data", "v4.14"))
	assert.Equal(t, "patch_data_zero.csv", report.FileName("patch_data", report.MainlineLine))
	assert.Equal(t, "syzkaller_v4.9_filtered.csv", report.FilteredFileName("syzkaller", "v4.9"))
}

func TestManifest_RecordUpserts(t *testing.T) {
	t.Parallel()

	m := &report.Manifest{}
	m.Record(report.Entry{Tool: "toolA", Line: "v4.4", Path: "toolA_v4.4.csv", Total: 3})
	m.Record(report.Entry{Tool: "toolB", Line: "v4.4", Path: "toolB_v4.4.csv"})
	m.Record(report.Entry{Tool: "toolA", Line: "v4.4", Path: "toolA_v4.4_filtered.csv", Filtered: true})
	m.Record(report.Entry{Tool: "toolA", Line: "v4.4", Path: "toolA_v4.4.csv", Total: 7})

	require.Len(t, m.Reports, 3)

	line := m.ForLine("v4.4")
	require.Len(t, line, 2)
	assert.Equal(t, "toolA", line[0].Tool)
	assert.Equal(t, 7, line[0].Total)
	assert.Equal(t, "toolB", line[1].Tool)
	assert.Empty(t, m.ForLine("v4.9"))
}

func TestManifest_SaveLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, report.DefaultManifest)

	empty, err := report.LoadManifest(path)
	require.NoError(t, err)
	assert.Empty(t, empty.Reports)

	written := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	empty.Record(report.Entry{
		Tool: "syzkaller", Line: "v4.9", Path: "syzkaller_v4.9.csv",
		Column: "syzkaller_patches", Versions: 120, Total: 431, WrittenAt: written,
	})
	require.NoError(t, empty.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tool: syzkaller")

	loaded, err := report.LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, loaded.Reports, 1)
	assert.Equal(t, "syzkaller_patches", loaded.Reports[0].Column)
	assert.True(t, written.Equal(loaded.Reports[0].WrittenAt))
	assert.Equal(t, filepath.Join(dir, "syzkaller_v4.9.csv"), loaded.Resolve(loaded.Reports[0]))

	abs := report.Entry{Path: "/tmp/elsewhere.csv"}
	assert.Equal(t, "/tmp/elsewhere.csv", loaded.Resolve(abs))
}

func TestLoadManifest_RejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := report.LoadManifest(filepath.Join(t.TempDir(), "manifest.ini"))
	require.Error(t, err)
}

func TestLoadManifest_RejectsSchemaViolations(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reports:\n  - tool: \"\"\n    line: \"\"\n    path: x.csv\n"), 0o600))

	_, err := report.LoadManifest(path)
	require.ErrorIs(t, err, report.ErrInvalidManifest)
	assert.Contains(t, err.Error(), "tool")
	assert.Contains(t, err.Error(), "line")
}

func TestManifest_ValidateEmpty(t *testing.T) {
	t.Parallel()

	assert.NoError(t, (&report.Manifest{}).Validate())
}
