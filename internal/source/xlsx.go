package source

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/KaramelBytes/tabprep/internal/pipeline"
	"github.com/KaramelBytes/tabprep/internal/table"
)

type xlsxReader struct{}

func (xlsxReader) Kind() string { return "xlsx" }

func (xlsxReader) CanRead(location string) bool {
	return strings.EqualFold(filepath.Ext(location), ".xlsx")
}

func (xlsxReader) List(_ context.Context, location string) ([]string, error) {
	wb, err := openWorkbook(location)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(wb.sheets))
	for i, s := range wb.sheets {
		names[i] = s.name
	}
	return names, nil
}

func (xlsxReader) Read(_ context.Context, location string, opt Options) (*table.Table, pipeline.Source, error) {
	src := pipeline.Source{Kind: "xlsx", Location: location}
	wb, err := openWorkbook(location)
	if err != nil {
		return nil, src, err
	}
	names := make([]string, len(wb.sheets))
	for i, s := range wb.sheets {
		names[i] = s.name
	}
	var sheet workbookSheet
	if len(names) == 0 {
		// workbook.xml missing or empty: fall back to the first worksheet part
		sheet = workbookSheet{name: "Sheet1", part: "xl/worksheets/sheet1.xml"}
	} else {
		name, err := pickPart(names, opt)
		if err != nil {
			return nil, src, fmt.Errorf("%s: %w", filepath.Base(location), err)
		}
		for _, s := range wb.sheets {
			if s.name == name {
				sheet = s
			}
		}
	}
	src.Part = sheet.name
	data, err := wb.entry(sheet.part)
	if err != nil {
		return nil, src, err
	}
	rows := readSheetRows(data, wb.shared)
	if len(rows) == 0 {
		return nil, src, fmt.Errorf("sheet %q: %w", sheet.name, ErrEmpty)
	}
	t, err := fromCells(rows[0], rows[1:], opt)
	if err != nil {
		return nil, src, fmt.Errorf("sheet %q: %w", sheet.name, err)
	}
	return t, src, nil
}

type workbookSheet struct {
	name string
	part string
}

type workbook struct {
	zr     *zip.Reader
	sheets []workbookSheet
	shared []string
}

func openWorkbook(location string) (*workbook, error) {
	b, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	wb := &workbook{zr: zr}
	wbXML, _ := wb.entry("xl/workbook.xml")
	relsXML, _ := wb.entry("xl/_rels/workbook.xml.rels")
	sharedXML, _ := wb.entry("xl/sharedStrings.xml")
	rels := sheetTargets(relsXML)
	for _, s := range sheetEntries(wbXML) {
		part, ok := rels[s.rid]
		if !ok {
			continue
		}
		wb.sheets = append(wb.sheets, workbookSheet{name: s.name, part: zipPath(part)})
	}
	wb.shared = sharedStrings(sharedXML)
	return wb, nil
}

func (wb *workbook) entry(name string) ([]byte, error) {
	for _, f := range wb.zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("xlsx entry %s: %w", name, os.ErrNotExist)
}

type sheetEntry struct {
	name string
	rid  string
}

// sheetEntries lists <sheet> elements of workbook.xml in workbook order.
func sheetEntries(data []byte) []sheetEntry {
	var out []sheetEntry
	walkXML(data, func(dec *xml.Decoder, se xml.StartElement) {
		if se.Name.Local != "sheet" {
			return
		}
		var s sheetEntry
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "name":
				s.name = a.Value
			case "id":
				s.rid = a.Value
			}
		}
		out = append(out, s)
	})
	return out
}

// sheetTargets maps relationship ids to their target parts.
func sheetTargets(data []byte) map[string]string {
	out := map[string]string{}
	walkXML(data, func(dec *xml.Decoder, se xml.StartElement) {
		if se.Name.Local != "Relationship" {
			return
		}
		var id, target string
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "Id":
				id = a.Value
			case "Target":
				target = a.Value
			}
		}
		if id != "" && target != "" {
			out[id] = target
		}
	})
	return out
}

func sharedStrings(data []byte) []string {
	var out []string
	walkXML(data, func(dec *xml.Decoder, se xml.StartElement) {
		if se.Name.Local != "si" {
			return
		}
		out = append(out, innerText(dec, "si"))
	})
	return out
}

func walkXML(data []byte, fn func(*xml.Decoder, xml.StartElement)) {
	if len(data) == 0 {
		return
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		if se, ok := tok.(xml.StartElement); ok {
			fn(dec, se)
		}
	}
}

// innerText concatenates the <t> runs until the closing element named end.
// Phonetic runs (<rPh>) are skipped.
func innerText(dec *xml.Decoder, end string) string {
	var sb strings.Builder
	inT, skip := false, 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return sb.String()
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inT = true
			case "rPh":
				skip++
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inT = false
			case "rPh":
				skip--
			case end:
				return sb.String()
			}
		case xml.CharData:
			if inT && skip == 0 {
				sb.Write(el)
			}
		}
	}
}

// zipPath turns a relationship target into a ZIP entry name.
func zipPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}

// xlsxCell is a raw cell: numeric cells keep their number, everything else
// its text.
type xlsxCell struct {
	kind table.Kind
	num  float64
	text string
}

// readSheetRows collects every row of a worksheet, placing cells at the
// column their reference names so sparse rows keep their alignment.
func readSheetRows(data []byte, shared []string) [][]xlsxCell {
	var rows [][]xlsxCell
	var cur []xlsxCell
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return rows
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "row":
				cur = nil
			case "c":
				var ref, typ string
				for _, a := range el.Attr {
					switch a.Name.Local {
					case "r":
						ref = a.Value
					case "t":
						typ = a.Value
					}
				}
				col := columnIndex(ref)
				if col < 0 {
					col = len(cur)
				}
				for len(cur) <= col {
					cur = append(cur, xlsxCell{})
				}
				cur[col] = readCell(dec, typ, shared)
			}
		case xml.EndElement:
			if el.Name.Local == "row" {
				rows = append(rows, cur)
			}
		}
	}
}

func readCell(dec *xml.Decoder, typ string, shared []string) xlsxCell {
	var raw string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if se, ok := tok.(xml.StartElement); ok {
			switch se.Name.Local {
			case "v":
				raw = innerChars(dec, "v")
			case "is":
				raw = innerText(dec, "is")
			}
			continue
		}
		if ee, ok := tok.(xml.EndElement); ok && ee.Name.Local == "c" {
			break
		}
	}
	switch typ {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || i < 0 || i >= len(shared) {
			return xlsxCell{}
		}
		return xlsxCell{kind: table.KindText, text: shared[i]}
	case "b":
		return xlsxCell{kind: table.KindBool, text: strings.TrimSpace(raw)}
	case "str", "inlineStr":
		return xlsxCell{kind: table.KindText, text: raw}
	case "e":
		return xlsxCell{}
	}
	if raw == "" {
		return xlsxCell{}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return xlsxCell{kind: table.KindText, text: raw}
	}
	return xlsxCell{kind: table.KindNumber, num: f}
}

func innerChars(dec *xml.Decoder, end string) string {
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return sb.String()
		}
		switch el := tok.(type) {
		case xml.CharData:
			sb.Write(el)
		case xml.EndElement:
			if el.Name.Local == end {
				return sb.String()
			}
		}
	}
}

// columnIndex converts the letters of a reference such as "C12" into a
// 0-based column index, or -1 when the reference has none.
func columnIndex(ref string) int {
	idx := 0
	n := 0
	for _, r := range strings.ToUpper(ref) {
		if r < 'A' || r > 'Z' {
			break
		}
		idx = idx*26 + int(r-'A'+1)
		n++
	}
	if n == 0 {
		return -1
	}
	return idx - 1
}

// fromCells builds a table from typed spreadsheet cells. Text cells matching
// a null token are missing.
func fromCells(header []xlsxCell, rows [][]xlsxCell, opt Options) (*table.Table, error) {
	width := len(header)
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	if width == 0 {
		return nil, ErrEmpty
	}
	raw := make([]string, width)
	for i := range raw {
		if i < len(header) {
			raw[i] = cellText(header[i])
		}
	}
	names := cleanHeader(raw)
	cols := make([]*table.Column, width)
	for c := range cols {
		vals := make([]table.Value, len(rows))
		for r, row := range rows {
			if c >= len(row) {
				continue
			}
			vals[r] = cellValue(row[c], opt)
		}
		cols[c] = table.NewColumn(names[c], vals)
	}
	return table.New(cols...)
}

func cellText(c xlsxCell) string {
	if c.kind == table.KindNumber {
		return table.FormatNumber(c.num)
	}
	return c.text
}

func cellValue(c xlsxCell, opt Options) table.Value {
	switch c.kind {
	case table.KindNumber:
		return table.Number(c.num)
	case table.KindBool:
		return table.Bool(c.text == "1" || strings.EqualFold(c.text, "true"))
	case table.KindText:
		if isNull(c.text, opt) {
			return table.Null()
		}
		return table.Text(norm.NFC.String(strings.TrimSpace(c.text)))
	}
	return table.Null()
}
