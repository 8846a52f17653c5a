package parser

import "strings"

// Document is the page-level layout of a care record file.
type Document struct {
	Pages []Page `json:"pages" yaml:"pages" toml:"pages"`
}

// Page holds the extracted text of one page, its positioned lines and its tables.
// Top coordinates grow downwards; only their ordering matters.
type Page struct {
	Text   string     `json:"text" yaml:"text" toml:"text"`
	Lines  []TextLine `json:"lines,omitempty" yaml:"lines,omitempty" toml:"lines,omitempty"`
	Tables []Table    `json:"tables,omitempty" yaml:"tables,omitempty" toml:"tables,omitempty"`
}

type TextLine struct {
	Text string  `json:"text" yaml:"text" toml:"text"`
	Top  float64 `json:"top" yaml:"top" toml:"top"`
}

type Table struct {
	Top  float64    `json:"top" yaml:"top" toml:"top"`
	Rows [][]string `json:"rows" yaml:"rows" toml:"rows"`
}

// Search returns the top coordinate of every line containing label.
func (p Page) Search(label string) []float64 {
	var tops []float64
	for _, line := range p.Lines {
		if strings.Contains(line.Text, label) {
			tops = append(tops, line.Top)
		}
	}
	return tops
}

// cell returns the trimmed cell value with newlines folded, or "" when out of range.
func (t Table) cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	if col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(t.Rows[row][col], "\n", " "))
}
