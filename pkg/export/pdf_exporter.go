package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// fixedCreationDate keeps PDF output byte-identical across renders.
var fixedCreationDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// PDFExporter renders timetable documents as a one-page grid.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render lays the document out using its orientation and page size.
func (e *PDFExporter) Render(doc TimetableDocument) ([]byte, error) {
	if len(doc.Columns) == 0 {
		return nil, fmt.Errorf("pdf requires at least one day column")
	}
	orientation := "L"
	if doc.Orientation == OrientationPortrait {
		orientation = "P"
	}
	size := string(doc.PageSize)
	if size == "" {
		size = string(PageSizeA4)
	}

	pdf := gofpdf.New(orientation, "mm", size, "")
	pdf.SetCreationDate(fixedCreationDate)
	pdf.SetCatalogSort(true)
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, strings.ToUpper(doc.Title), "", 1, "C", false, 0, "")
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, doc.Subtitle, "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)

	labelWidth := 28.0
	colWidth := (usable - labelWidth) / float64(len(doc.Columns))

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(labelWidth, 7, "Period", "1", 0, "C", true, 0, "")
	for _, column := range doc.Columns {
		pdf.CellFormat(colWidth, 7, column, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 7)
	lineHeight := 3.6
	for _, row := range doc.Rows {
		lines := 2
		for _, cell := range row.Cells {
			if len(cell.Lines) > lines {
				lines = len(cell.Lines)
			}
		}
		height := float64(lines)*lineHeight + 1
		x, y := pdf.GetXY()
		pdf.MultiCell(labelWidth, height/2, row.Label+"\n"+row.Time, "1", "C", false)
		pdf.SetXY(x+labelWidth, y)
		for i, cell := range row.Cells {
			cx := x + labelWidth + float64(i)*colWidth
			fill := cell.State == "NOT_APPLICABLE" || cell.State == "NON_TEACHING"
			if fill {
				pdf.SetFillColor(245, 245, 245)
			}
			pdf.Rect(cx, y, colWidth, height, map[bool]string{true: "FD", false: "D"}[fill])
			pdf.SetXY(cx, y+0.5)
			pdf.MultiCell(colWidth, lineHeight, strings.Join(cell.Lines, "\n"), "", "C", false)
		}
		pdf.SetXY(x, y+height)
	}

	if len(doc.Legend) > 0 {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(0, 5, "Legend", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 8)
		for _, entry := range doc.Legend {
			pdf.CellFormat(0, 4, entry.Symbol+"  "+entry.Meaning, "", 1, "", false, 0, "")
		}
	}
	if len(doc.Statistics) > 0 {
		pdf.Ln(2)
		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(0, 5, "Statistics", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 8)
		for _, stat := range doc.Statistics {
			pdf.CellFormat(0, 4, stat.Label+": "+stat.Value, "", 1, "", false, 0, "")
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
