package reports

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary  = "Summary"
	sheetUploads  = "Uploads"
	sheetStatus   = "Status"
	sheetEntities = "Entities"
	sheetKeywords = "Keywords"
)

// ContentTypeXLSX is the media type of Export output.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Export renders the report as an XLSX workbook with one sheet per section.
func Export(r Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetUploads, sheetStatus, sheetEntities, sheetKeywords} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", name, err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	w := &sheetWriter{f: f, header: bold}
	w.rows(sheetSummary, []any{"Metric", "Value"}, [][]any{
		{"Generated at", r.GeneratedAt.Format(time.RFC3339)},
		{"Documents", r.TotalDocuments},
		{"Average pages", r.AveragePages},
		{"Tables detected", r.TablesDetected},
	})

	uploads := make([][]any, 0, len(r.UploadsPerDay))
	for _, d := range r.UploadsPerDay {
		uploads = append(uploads, []any{d.Date, d.Count})
	}
	w.rows(sheetUploads, []any{"Date", "Uploads"}, uploads)

	statuses := make([]string, 0, len(r.StatusBreakdown))
	for s := range r.StatusBreakdown {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	status := make([][]any, 0, len(statuses))
	for _, s := range statuses {
		status = append(status, []any{s, r.StatusBreakdown[s]})
	}
	w.rows(sheetStatus, []any{"Status", "Documents"}, status)

	types := make([]string, 0, len(r.TopEntities))
	for t := range r.TopEntities {
		types = append(types, t)
	}
	sort.Strings(types)
	var entities [][]any
	for _, t := range types {
		for _, e := range r.TopEntities[t] {
			entities = append(entities, []any{t, e.Text, e.Count})
		}
	}
	w.rows(sheetEntities, []any{"Type", "Entity", "Mentions"}, entities)

	keywords := make([][]any, 0, len(r.TopKeywords))
	for _, k := range r.TopKeywords {
		keywords = append(keywords, []any{k.Term, k.Count, k.Documents})
	}
	w.rows(sheetKeywords, []any{"Keyword", "Mentions", "Documents"}, keywords)

	if w.err != nil {
		return nil, w.err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter keeps the first error so callers check once.
type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (w *sheetWriter) rows(sheet string, header []any, rows [][]any) {
	if w.err != nil {
		return
	}
	if w.err = w.f.SetSheetRow(sheet, "A1", &header); w.err != nil {
		return
	}
	if w.err = w.f.SetRowStyle(sheet, 1, 1, w.header); w.err != nil {
		return
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			w.err = err
			return
		}
		if w.err = w.f.SetSheetRow(sheet, cell, &row); w.err != nil {
			return
		}
	}
	last, _ := excelize.ColumnNumberToName(len(header))
	w.err = w.f.SetColWidth(sheet, "A", last, 18)
}
