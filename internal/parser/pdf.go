package parser

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const minCellGap = 4.0

// positionedCell is a run of glyphs on one visual row.
type positionedCell struct {
	x    float64
	text string
}

type positionedRow struct {
	top   float64
	cells []positionedCell
}

// OpenPDF extracts text lines and grid tables from a PDF file.
// Rows are rebuilt from glyph positions and split into cells on horizontal gaps.
func OpenPDF(path string) (*Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	doc := &Document{}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pdfRows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("failed to read text of page %d: %w", i, err)
		}
		doc.Pages = append(doc.Pages, buildPage(toPositionedRows(pdfRows)))
	}
	return doc, nil
}

func toPositionedRows(pdfRows pdf.Rows) []positionedRow {
	rows := make([]positionedRow, 0, len(pdfRows))
	for _, r := range pdfRows {
		if r == nil || len(r.Content) == 0 {
			continue
		}
		glyphs := append([]pdf.Text(nil), r.Content...)
		sort.Slice(glyphs, func(a, b int) bool { return glyphs[a].X < glyphs[b].X })

		var cells []positionedCell
		var current strings.Builder
		start, end := 0.0, 0.0
		for i, g := range glyphs {
			gap := math.Max(minCellGap, g.FontSize)
			if i > 0 && g.X-end > gap {
				cells = append(cells, positionedCell{x: start, text: strings.TrimSpace(current.String())})
				current.Reset()
			}
			if current.Len() == 0 {
				start = g.X
			}
			current.WriteString(g.S)
			end = g.X + g.W
		}
		if current.Len() > 0 {
			cells = append(cells, positionedCell{x: start, text: strings.TrimSpace(current.String())})
		}
		// PDF y grows upwards, negate it so smaller means higher on the page
		rows = append(rows, positionedRow{top: -float64(r.Position), cells: cells})
	}
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].top < rows[b].top })
	return rows
}

func buildPage(rows []positionedRow) Page {
	var page Page
	var text strings.Builder
	for _, row := range rows {
		parts := make([]string, 0, len(row.cells))
		for _, c := range row.cells {
			if c.text != "" {
				parts = append(parts, c.text)
			}
		}
		line := strings.Join(parts, " ")
		page.Lines = append(page.Lines, TextLine{Text: line, Top: row.top})
		text.WriteString(line)
		text.WriteString("\n")
	}
	page.Text = text.String()
	page.Tables = groupTables(rows)
	return page
}

// groupTables turns runs of consecutive multi-cell rows into tables aligned on
// the column positions of their widest row.
func groupTables(rows []positionedRow) []Table {
	var tables []Table
	var run []positionedRow
	flush := func() {
		if len(run) >= 2 {
			tables = append(tables, alignTable(run))
		}
		run = nil
	}
	for _, row := range rows {
		if len(row.cells) >= 2 {
			run = append(run, row)
			continue
		}
		flush()
	}
	flush()
	return tables
}

func alignTable(rows []positionedRow) Table {
	widest := rows[0]
	for _, r := range rows[1:] {
		if len(r.cells) > len(widest.cells) {
			widest = r
		}
	}
	anchors := make([]float64, len(widest.cells))
	for i, c := range widest.cells {
		anchors[i] = c.x
	}

	table := Table{Top: rows[0].top}
	for _, r := range rows {
		out := make([]string, len(anchors))
		for _, c := range r.cells {
			col := nearestAnchor(anchors, c.x)
			if out[col] != "" {
				out[col] += " " + c.text
			} else {
				out[col] = c.text
			}
		}
		table.Rows = append(table.Rows, out)
	}
	return table
}

func nearestAnchor(anchors []float64, x float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, a := range anchors {
		if d := math.Abs(a - x); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
