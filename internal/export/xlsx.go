package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tabprep/internal/table"
	"github.com/KaramelBytes/tabprep/internal/utils"
)

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>` +
		`<Override PartName="/xl/worksheets/sheet1.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>` +
		`</Types>`
	rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/>` +
		`</Relationships>`
	workbookRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>` +
		`</Relationships>`
	workbookXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
		`<sheets><sheet name="%s" sheetId="1" r:id="rId1"/></sheets></workbook>`
)

// EncodeXLSX renders t as a single-sheet workbook. Text cells are written as
// inline strings, so no shared string table is needed.
func EncodeXLSX(t *table.Table, sheet string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(rootRelsXML)},
		{"xl/workbook.xml", []byte(fmt.Sprintf(workbookXML, escape(sheet)))},
		{"xl/_rels/workbook.xml.rels", []byte(workbookRelsXML)},
		{"xl/worksheets/sheet1.xml", sheetXML(t)},
	}
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("xlsx %s: %w", p.name, err)
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, fmt.Errorf("xlsx %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteXLSXFile writes t to path atomically.
func WriteXLSXFile(path string, t *table.Table, sheet string) error {
	b, err := EncodeXLSX(t, sheet)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, b)
}

func sheetXML(t *table.Table) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString(`<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>`)
	header := make([]table.Value, t.Width())
	for i, n := range t.Names() {
		header[i] = table.Text(n)
	}
	writeXLSXRow(&b, 1, header)
	for i := 0; i < t.Rows(); i++ {
		writeXLSXRow(&b, i+2, t.Row(i))
	}
	b.WriteString(`</sheetData></worksheet>`)
	return []byte(b.String())
}

// writeXLSXRow emits one <row>. Null cells are omitted.
func writeXLSXRow(b *strings.Builder, r int, cells []table.Value) {
	fmt.Fprintf(b, `<row r="%d">`, r)
	for c, v := range cells {
		ref := columnName(c) + strconv.Itoa(r)
		switch v.Kind() {
		case table.KindNumber:
			f, _ := v.Float()
			fmt.Fprintf(b, `<c r="%s"><v>%s</v></c>`, ref, strconv.FormatFloat(f, 'g', -1, 64))
		case table.KindBool:
			x := "0"
			if on, _ := v.Truth(); on {
				x = "1"
			}
			fmt.Fprintf(b, `<c r="%s" t="b"><v>%s</v></c>`, ref, x)
		case table.KindText:
			fmt.Fprintf(b, `<c r="%s" t="inlineStr"><is><t xml:space="preserve">%s</t></is></c>`, ref, escape(v.String()))
		}
	}
	b.WriteString(`</row>`)
}

// columnName converts a 0-based index into spreadsheet letters (0 → A,
// 26 → AA).
func columnName(i int) string {
	var out []byte
	for i++; i > 0; i = (i - 1) / 26 {
		out = append([]byte{byte('A' + (i-1)%26)}, out...)
	}
	return string(out)
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
