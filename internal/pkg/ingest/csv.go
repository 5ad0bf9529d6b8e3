package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
)

func (ld *Loader) readCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = ld.comma
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("reading csv: %w", err)
	}

	return parseRecords("", records), nil
}
