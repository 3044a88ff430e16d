package export

import (
	"bytes"
	"fmt"
	"strings"
)

// TextRenderer emits a plain text page: header, pipe table, legend and statistics.
type TextRenderer struct{}

// NewTextRenderer constructs a text renderer.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Render produces the same bytes for the same document.
func (r *TextRenderer) Render(doc TimetableDocument) ([]byte, error) {
	if len(doc.Columns) == 0 {
		return nil, fmt.Errorf("text export requires at least one day column")
	}
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "# %s\n", doc.Title)
	if doc.Subtitle != "" {
		fmt.Fprintf(buf, "%s\n", doc.Subtitle)
	}
	fmt.Fprintf(buf, "Layout: %s %s\n\n", doc.PageSize, doc.Orientation)

	header := append([]string{"Period"}, doc.Columns...)
	table := [][]string{header}
	for _, row := range doc.Rows {
		line := []string{fmt.Sprintf("%s (%s)", row.Label, row.Time)}
		for _, cell := range row.Cells {
			line = append(line, strings.Join(cell.Lines, " / "))
		}
		table = append(table, line)
	}
	writeTable(buf, table)

	if len(doc.Legend) > 0 {
		buf.WriteString("\nLegend\n")
		for _, entry := range doc.Legend {
			fmt.Fprintf(buf, "  %s  %s\n", entry.Symbol, entry.Meaning)
		}
	}
	if len(doc.Statistics) > 0 {
		buf.WriteString("\nStatistics\n")
		for _, stat := range doc.Statistics {
			fmt.Fprintf(buf, "  %s: %s\n", stat.Label, stat.Value)
		}
	}
	return buf.Bytes(), nil
}

func writeTable(buf *bytes.Buffer, table [][]string) {
	widths := make([]int, len(table[0]))
	for _, row := range table {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	writeRow := func(row []string) {
		buf.WriteString("|")
		for i, width := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			fmt.Fprintf(buf, " %-*s |", width, cell)
		}
		buf.WriteString("\n")
	}
	writeRow(table[0])
	buf.WriteString("|")
	for _, width := range widths {
		buf.WriteString(strings.Repeat("-", width+2) + "|")
	}
	buf.WriteString("\n")
	for _, row := range table[1:] {
		writeRow(row)
	}
}
