package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/tabprep/internal/pipeline"
	"github.com/KaramelBytes/tabprep/internal/table"
)

type csvReader struct{}

func (csvReader) Kind() string { return "csv" }

func (csvReader) CanRead(location string) bool {
	switch strings.ToLower(filepath.Ext(location)) {
	case ".csv", ".tsv", ".txt":
		return true
	}
	return false
}

func (csvReader) Read(_ context.Context, location string, opt Options) (*table.Table, pipeline.Source, error) {
	src := pipeline.Source{Kind: "csv", Location: location}
	f, err := os.Open(location)
	if err != nil {
		return nil, src, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	t, err := ReadDelimited(f, location, opt)
	if err != nil {
		return nil, src, fmt.Errorf("read %s: %w", filepath.Base(location), err)
	}
	return t, src, nil
}

// ReadDelimited parses delimited text from r. name is only used to pick a
// default delimiter for .tsv files.
func ReadDelimited(r io.Reader, name string, opt Options) (*table.Table, error) {
	br := bufio.NewReader(r)
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(br, name)
	}
	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		// skip fully blank lines
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" && len(header) > 1 {
			continue
		}
		records = append(records, rec)
	}
	return fromRecords(header, records, opt)
}

// sniffDelimiter peeks at the header line and picks whichever of ',', ';'
// or tab occurs most often. .tsv files default to tab.
func sniffDelimiter(br *bufio.Reader, name string) rune {
	def := ','
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		def = '\t'
	}
	peek, _ := br.Peek(4096)
	line := string(peek)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	best, bestN := def, strings.Count(line, string(def))
	for _, d := range []rune{',', ';', '\t'} {
		if n := strings.Count(line, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}
