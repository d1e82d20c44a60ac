package source

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/KaramelBytes/tabprep/internal/table"
)

const utf8BOM = "\uFEFF"

// cleanHeader strips a leading BOM, NFC-normalizes and trims names, names
// blank headers "Unnamed: <i>" and suffixes repeated names with ".1", ".2".
func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	used := map[string]bool{}
	suffix := map[string]int{}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		h = strings.TrimSpace(norm.NFC.String(h))
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for used[name] {
			suffix[h]++
			name = fmt.Sprintf("%s.%d", h, suffix[h])
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func isNull(s string, opt Options) bool {
	t := strings.TrimSpace(s)
	for _, tok := range opt.NullTokens {
		if t == tok {
			return true
		}
	}
	return false
}

// parseNumeric parses s honoring the configured separators. When no decimal
// separator is configured it is inferred from the rightmost '.' or ','.
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.ReplaceAll(s, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0 && strings.Count(raw, ",") == 1:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// inferColumn turns raw cell texts into a typed column. A column whose
// non-null cells all parse as numbers becomes numeric, one whose cells are
// all true/false becomes boolean, anything else is text.
func inferColumn(name string, cells []string, opt Options) *table.Column {
	vals := make([]table.Value, len(cells))
	present := make([]bool, len(cells))
	numeric, boolean := true, true
	seen := false
	for i, c := range cells {
		if isNull(c, opt) {
			continue
		}
		present[i] = true
		seen = true
		if numeric {
			if _, ok := parseNumeric(c, opt); !ok {
				numeric = false
			}
		}
		if boolean {
			if _, ok := parseBool(c); !ok {
				boolean = false
			}
		}
	}
	typ := table.TypeText
	switch {
	case !seen || numeric:
		typ = table.TypeNumber
	case boolean:
		typ = table.TypeBool
	}
	for i, c := range cells {
		if !present[i] {
			continue
		}
		switch typ {
		case table.TypeNumber:
			f, _ := parseNumeric(c, opt)
			vals[i] = table.Number(f)
		case table.TypeBool:
			b, _ := parseBool(c)
			vals[i] = table.Bool(b)
		default:
			vals[i] = table.Text(norm.NFC.String(strings.TrimSpace(c)))
		}
	}
	return &table.Column{Name: name, Type: typ, Values: vals}
}

// fromRecords builds a table from a header and string records. Short
// records are padded with empty cells.
func fromRecords(header []string, records [][]string, opt Options) (*table.Table, error) {
	if len(header) == 0 {
		return nil, ErrEmpty
	}
	names := cleanHeader(header)
	cells := make([][]string, len(names))
	for i := range cells {
		cells[i] = make([]string, len(records))
	}
	for r, rec := range records {
		if len(rec) > len(names) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", r+2, len(rec), len(names))
		}
		for c, v := range rec {
			cells[c][r] = v
		}
	}
	cols := make([]*table.Column, len(names))
	for i, n := range names {
		cols[i] = inferColumn(n, cells[i], opt)
	}
	return table.New(cols...)
}
