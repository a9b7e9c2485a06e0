// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
)

// rowKind selects how a row of a report table is rendered.
type rowKind int

const (
	plainRow rowKind = iota
	copyRow          // Rows that involve a layout copy.
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true).MarginTop(1).MarginBottom(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	copyStyle   = cellStyle.Foreground(lipgloss.AdaptiveColor{Light: "160", Dark: "203"})
	borderStyle = lipgloss.NewStyle().Faint(true)
)

// column of a report table. An empty title for every column renders the table without header.
type column struct {
	title string
	align lipgloss.Position
}

func left(title string) column  { return column{title, lipgloss.Left} }
func right(title string) column { return column{title, lipgloss.Right} }

// reportTable renders rows of strings under fixed columns.
type reportTable struct {
	table   *lgtable.Table
	columns []column
	kinds   []rowKind
}

func newReportTable(columns ...column) *reportTable {
	t := &reportTable{columns: columns}
	t.table = lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(t.style)
	titles := make([]string, len(columns))
	hasHeader := false
	for ii, col := range columns {
		titles[ii] = col.title
		hasHeader = hasHeader || col.title != ""
	}
	if hasHeader {
		t.table.Headers(titles...)
	}
	return t
}

func (t *reportTable) style(row, col int) lipgloss.Style {
	if row < 0 {
		return headerStyle
	}
	style := cellStyle
	if row < len(t.kinds) && t.kinds[row] == copyRow {
		style = copyStyle
	}
	if col < len(t.columns) {
		style = style.Align(t.columns[col].align)
	}
	return style
}

// add appends a row: cells past the last column are dropped.
func (t *reportTable) add(kind rowKind, cells ...string) {
	if len(cells) > len(t.columns) {
		cells = cells[:len(t.columns)]
	}
	t.kinds = append(t.kinds, kind)
	t.table.Row(cells...)
}

// kindIf returns copyRow if hasCopy, plainRow otherwise.
func kindIf(hasCopy bool) rowKind {
	if hasCopy {
		return copyRow
	}
	return plainRow
}

func (t *reportTable) writeTo(w io.Writer) {
	_, _ = fmt.Fprintln(w, t.table.Render())
}

func writeTitle(w io.Writer, title string) {
	_, _ = fmt.Fprintln(w, titleStyle.Render(title))
}
