package ingest

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// readXLSX reads a sheet of an Excel workbook. The first row holds the column names.
//
// When no sheet is specified, the first sheet of the workbook is read.
func readXLSX(file, sheet string) (Table, error) {
	f, err := excelize.OpenFile(file)
	if err != nil {
		return Table{}, err
	}
	defer func() {
		_ = f.Close()
	}()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return Table{}, fmt.Errorf("workbook %s has no sheet", file)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("sheet %q: %w", sheet, err)
	}

	return parseRecords("", rows), nil
}
