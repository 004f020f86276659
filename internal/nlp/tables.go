package nlp

import (
	"regexp"
	"strings"
)

// Table is a run of aligned lines detected on one page.
type Table struct {
	Page   int        `json:"page"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

var (
	columnSeparator = regexp.MustCompile(`\t+|\s{2,}|\s*\|\s*`)
	ruleLine        = regexp.MustCompile(`^[\s|:+-]+$`)
)

// minTableColumns is the cell count of a line with two column separators.
const minTableColumns = 3

// Tables detects naive tables: two or more consecutive lines that each split
// into at least three cells on tabs, runs of spaces or pipes. Page numbers
// are 1-based positions in pages.
func Tables(pages []string) []Table {
	out := []Table{}
	for i, page := range pages {
		var run [][]string
		flush := func() {
			if len(run) >= 2 {
				out = append(out, Table{Page: i + 1, Header: run[0], Rows: run[1:]})
			}
			run = nil
		}
		for _, line := range strings.Split(Normalize(page), "\n") {
			if strings.TrimSpace(line) != "" && ruleLine.MatchString(line) {
				// Markdown style separators belong to the surrounding table.
				continue
			}
			cells := splitCells(line)
			if len(cells) < minTableColumns {
				flush()
				continue
			}
			run = append(run, cells)
		}
		flush()
	}
	return out
}

func splitCells(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	if strings.TrimSpace(line) == "" {
		return nil
	}
	parts := columnSeparator.Split(strings.TrimSpace(line), -1)
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cells = append(cells, p)
		}
	}
	return cells
}
