package web

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Table is the text content of an HTML table.
type Table struct {
	ID      string     `json:"id,omitempty"`
	Caption string     `json:"caption,omitempty"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// ExtractTable reads the table with the given id, or the first table in doc
// when id is empty. Headers come from the first row made only of th cells.
func ExtractTable(doc *html.Node, id string) (*Table, error) {
	var node *html.Node
	if id != "" {
		node = FindByID(doc, id)
		if node != nil && node.DataAtom != atom.Table {
			// An id on a wrapper div is common; look for the table inside it.
			if inner := FindAll(node, "table"); len(inner) > 0 {
				node = inner[0]
			} else {
				node = nil
			}
		}
	} else if tables := FindAll(doc, "table"); len(tables) > 0 {
		node = tables[0]
	}
	if node == nil {
		if id != "" {
			return nil, fmt.Errorf("%w: id %q", ErrTableNotFound, id)
		}
		return nil, ErrTableNotFound
	}

	t := &Table{ID: attr(node, "id")}
	if captions := FindAll(node, "caption"); len(captions) > 0 {
		t.Caption = Text(captions[0])
	}
	for _, tr := range FindAll(node, "tr") {
		cells, allHeaders := rowCells(tr)
		if len(cells) == 0 {
			continue
		}
		if allHeaders && t.Headers == nil && len(t.Rows) == 0 {
			t.Headers = cells
			continue
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, nil
}

func rowCells(tr *html.Node) ([]string, bool) {
	var cells []string
	allHeaders := true
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Th:
			cells = append(cells, Text(c))
		case atom.Td:
			allHeaders = false
			cells = append(cells, Text(c))
		}
	}
	return cells, allHeaders
}

// Records maps each row to its headers. Cells past the last header are
// dropped; missing cells are empty.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		out = append(out, rec)
	}
	return out
}

// Markdown renders up to maxRows rows as a markdown table. maxRows <= 0
// renders all rows.
func (t *Table) Markdown(maxRows int) string {
	rows := t.Rows
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	width := len(t.Headers)
	for _, r := range rows {
		width = max(width, len(r))
	}
	if width == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := range width {
			cell := ""
			if i < len(cells) {
				cell = strings.ReplaceAll(cells[i], "|", `\|`)
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}
	writeRow(t.Headers)
	b.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
	for _, r := range rows {
		writeRow(r)
	}
	return b.String()
}
