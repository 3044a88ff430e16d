package export

import (
	"fmt"
	"strings"
)

// Orientation of the printed page.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// PageSize is one of the supported paper formats.
type PageSize string

const (
	PageSizeA4     PageSize = "A4"
	PageSizeLetter PageSize = "Letter"
	PageSizeLegal  PageSize = "Legal"
)

// ParseOrientation normalises user input, falling back when empty.
func ParseOrientation(raw string, fallback Orientation) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return fallback, nil
	case "portrait", "p":
		return OrientationPortrait, nil
	case "landscape", "l":
		return OrientationLandscape, nil
	default:
		return "", fmt.Errorf("unsupported orientation %q", raw)
	}
}

// ParsePageSize normalises user input, falling back when empty.
func ParsePageSize(raw string, fallback PageSize) (PageSize, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return fallback, nil
	case "a4":
		return PageSizeA4, nil
	case "letter":
		return PageSizeLetter, nil
	case "legal":
		return PageSizeLegal, nil
	default:
		return "", fmt.Errorf("unsupported page size %q", raw)
	}
}

// DocumentCell is one rendered grid cell. State mirrors the grid cell state.
type DocumentCell struct {
	State string   `json:"state"`
	Lines []string `json:"lines"`
}

// DocumentRow is one period across the rendered days.
type DocumentRow struct {
	Label string         `json:"label"`
	Time  string         `json:"time"`
	Cells []DocumentCell `json:"cells"`
}

// LegendEntry explains a symbol used in cells.
type LegendEntry struct {
	Symbol  string `json:"symbol"`
	Meaning string `json:"meaning"`
}

// StatLine is one label/value pair of the optional statistics block.
type StatLine struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// TimetableDocument is a format-independent page description of a projected view.
type TimetableDocument struct {
	Title       string        `json:"title"`
	Subtitle    string        `json:"subtitle"`
	Columns     []string      `json:"columns"`
	Rows        []DocumentRow `json:"rows"`
	Legend      []LegendEntry `json:"legend"`
	Statistics  []StatLine    `json:"statistics,omitempty"`
	Orientation Orientation   `json:"orientation"`
	PageSize    PageSize      `json:"pageSize"`
}

// Dataset flattens the grid for tabular exporters. Cell lines are joined with "; "
// and statistics become footer rows.
func (d TimetableDocument) Dataset() Dataset {
	headers := append([]string{"Period", "Time"}, d.Columns...)
	rows := make([]map[string]string, 0, len(d.Rows))
	for _, row := range d.Rows {
		record := map[string]string{"Period": row.Label, "Time": row.Time}
		for i, cell := range row.Cells {
			if i < len(d.Columns) {
				record[d.Columns[i]] = strings.Join(cell.Lines, "; ")
			}
		}
		rows = append(rows, record)
	}
	var footer [][]string
	for _, stat := range d.Statistics {
		footer = append(footer, []string{stat.Label, stat.Value})
	}
	return Dataset{Headers: headers, Rows: rows, Footer: footer}
}
