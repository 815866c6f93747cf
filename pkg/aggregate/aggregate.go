// Package aggregate builds the line-by-tool backport matrix from written
// reports.
package aggregate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"

	"github.com/Sumatoshi-tech/patchtally/pkg/report"
)

// DefaultOutput is the aggregated table written when no path is configured.
const DefaultOutput = "LTS_aggregated.csv"

const versionHeader = "version"

// Matrix holds backport counts per (line, tool).
type Matrix struct {
	lines []string
	cells map[string]map[string]int
	tools map[string]struct{}
}

// NewMatrix creates an empty matrix with rows for lines, in order.
func NewMatrix(lines []string) *Matrix {
	return &Matrix{
		lines: slices.Clone(lines),
		cells: make(map[string]map[string]int, len(lines)),
		tools: map[string]struct{}{},
	}
}

// Set stores the backport count for (line, tool).
func (m *Matrix) Set(line, tool string, value int) {
	row, ok := m.cells[line]
	if !ok {
		row = map[string]int{}
		m.cells[line] = row
	}

	row[tool] = value
	m.tools[tool] = struct{}{}
}

// Get returns the count for (line, tool) and whether one was recorded.
func (m *Matrix) Get(line, tool string) (int, bool) {
	v, ok := m.cells[line][tool]

	return v, ok
}

// Lines returns the row keys in configured order.
func (m *Matrix) Lines() []string { return slices.Clone(m.lines) }

// Tools returns every tool seen, ordered case-insensitively by Unicode case
// folding. Names equal under folding are ordered by their raw bytes.
func (m *Matrix) Tools() []string {
	fold := cases.Fold()

	tools := make([]string, 0, len(m.tools))
	for tool := range m.tools {
		tools = append(tools, tool)
	}

	slices.SortFunc(tools, func(a, b string) int {
		if c := strings.Compare(fold.String(a), fold.String(b)); c != 0 {
			return c
		}

		return strings.Compare(a, b)
	})

	return tools
}

// Build reads every unfiltered report the manifest records for lines and
// stores last-minus-first of each report's count column. Missing and
// header-only reports leave the cell blank.
func Build(lines []string, manifest *report.Manifest, logger *slog.Logger) (*Matrix, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	m := NewMatrix(lines)

	for _, line := range lines {
		for _, entry := range manifest.ForLine(line) {
			path := manifest.Resolve(entry)

			backports, ok, err := backportsIn(path, entry.Column)
			if err != nil {
				return nil, fmt.Errorf("aggregate %s: %w", path, err)
			}

			if !ok {
				logger.Warn("report has no data", "line", line, "tool", entry.Tool, "path", path)

				continue
			}

			m.Set(line, entry.Tool, backports)
		}
	}

	return m, nil
}

func backportsIn(path, column string) (int, bool, error) {
	rep, err := report.Read(path)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, report.ErrEmptyReport) {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, err
	}

	if column == "" {
		column = report.DefaultColumn
	}

	values, err := rep.Ints(column)
	if err != nil {
		return 0, false, err
	}

	if len(values) == 0 {
		return 0, false, nil
	}

	return values[len(values)-1] - values[0], true, nil
}

// WriteCSV truncates path and writes the matrix to it.
func WriteCSV(path string, m *Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create aggregate: %w", err)
	}

	err = Encode(f, m)
	if err != nil {
		f.Close()

		return err
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("close aggregate: %w", err)
	}

	return nil
}

// Encode writes the matrix as CSV: header "version,<tools...>", one row per
// line, blank cells for unrecorded pairs.
func Encode(w io.Writer, m *Matrix) error {
	tools := m.Tools()
	cw := csv.NewWriter(w)

	err := cw.Write(append([]string{versionHeader}, tools...))
	if err != nil {
		return fmt.Errorf("write aggregate header: %w", err)
	}

	for _, line := range m.lines {
		row := make([]string, 0, len(tools)+1)
		row = append(row, line)

		for _, tool := range tools {
			cell := ""
			if v, ok := m.Get(line, tool); ok {
				cell = strconv.Itoa(v)
			}

			row = append(row, cell)
		}

		err = cw.Write(row)
		if err != nil {
			return fmt.Errorf("write aggregate row %s: %w", line, err)
		}
	}

	cw.Flush()

	err = cw.Error()
	if err != nil {
		return fmt.Errorf("flush aggregate: %w", err)
	}

	return nil
}

// Render writes the matrix as a terminal table with per-tool totals.
func Render(w io.Writer, m *Matrix) {
	tools := m.Tools()

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	header := table.Row{versionHeader}
	for _, tool := range tools {
		header = append(header, tool)
	}

	tbl.AppendHeader(header)

	totals := make([]int64, len(tools))

	for _, line := range m.lines {
		row := table.Row{line}

		for i, tool := range tools {
			v, ok := m.Get(line, tool)
			if !ok {
				row = append(row, "")

				continue
			}

			totals[i] += int64(v)
			row = append(row, humanize.Comma(int64(v)))
		}

		tbl.AppendRow(row)
	}

	footer := table.Row{"total"}
	for _, total := range totals {
		footer = append(footer, humanize.Comma(total))
	}

	tbl.AppendFooter(footer)

	configs := make([]table.ColumnConfig, 0, len(tools))
	for i := range tools {
		configs = append(configs, table.ColumnConfig{Number: i + 2, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}

	tbl.SetColumnConfigs(configs)
	tbl.Render()
}
