package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseWorkbook reads the first sheet of an .xlsx workbook into a
// RawTable under the same contract as ParseCSV: row 1 is the header
// row, short rows leave trailing headers absent, and a header-only
// sheet yields zero rows.
func ParseWorkbook(r io.Reader) (RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return RawTable{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return RawTable{}, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return RawTable{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return RawTable{}, nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = CleanCell(h)
	}

	table := RawTable{Headers: headers}
	for _, cells := range rows[1:] {
		if allEmpty(cells) {
			continue
		}
		row := make(Row, len(headers))
		for i, h := range headers {
			if i >= len(cells) {
				break
			}
			row[h] = cells[i]
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
