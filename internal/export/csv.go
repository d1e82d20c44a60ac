package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/KaramelBytes/tabprep/internal/table"
	"github.com/KaramelBytes/tabprep/internal/utils"
)

// WriteCSV writes t with a header row. Nulls are empty fields.
func WriteCSV(w io.Writer, t *table.Table, delim rune) error {
	cw := csv.NewWriter(w)
	if delim != 0 {
		cw.Comma = delim
	}
	if err := cw.Write(t.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, t.Width())
	for i := 0; i < t.Rows(); i++ {
		for j, v := range t.Row(i) {
			rec[j] = v.String()
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes t to path atomically.
func WriteCSVFile(path string, t *table.Table, delim rune) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t, delim); err != nil {
		return err
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
