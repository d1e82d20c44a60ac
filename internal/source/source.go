// Package source reads working tables from delimited text, spreadsheets and
// relational databases.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/tabprep/internal/pipeline"
	"github.com/KaramelBytes/tabprep/internal/table"
)

// Options controls how sources are read.
type Options struct {
	// Delimiter for delimited text. If 0, sniffed from the header line.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// NullTokens are cell texts read as missing values.
	NullTokens []string
	// Part selects a sheet or table by name. PartIndex is 1-based and used
	// when Part is empty; 0 means the first.
	Part      string
	PartIndex int
}

// DefaultNullTokens are the cell texts treated as missing by default.
var DefaultNullTokens = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "None", "#N/A"}

// DefaultOptions returns reasonable defaults for reading sources.
func DefaultOptions() Options {
	return Options{NullTokens: append([]string(nil), DefaultNullTokens...)}
}

// Reader reads one kind of source.
type Reader interface {
	Kind() string
	CanRead(location string) bool
	Read(ctx context.Context, location string, opt Options) (*table.Table, pipeline.Source, error)
}

// Lister is implemented by readers whose sources hold several sheets or
// tables.
type Lister interface {
	List(ctx context.Context, location string) ([]string, error)
}

var registry []Reader

// Register adds a reader to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

var (
	// ErrUnsupported indicates no reader accepts a location.
	ErrUnsupported = errors.New("unsupported source format")
	// ErrPartNotFound indicates a requested sheet or table does not exist.
	ErrPartNotFound = errors.New("sheet or table not found")
	// ErrEmpty indicates a source without a header row or columns.
	ErrEmpty = errors.New("source has no columns")
)

func lookup(location string) (Reader, error) {
	for _, r := range registry {
		if r.CanRead(location) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, location)
}

// KindOf returns the kind of the reader that accepts location.
func KindOf(location string) (string, error) {
	r, err := lookup(location)
	if err != nil {
		return "", err
	}
	return r.Kind(), nil
}

// Open reads location with the first registered reader that accepts it.
func Open(ctx context.Context, location string, opt Options) (*table.Table, pipeline.Source, error) {
	r, err := lookup(location)
	if err != nil {
		return nil, pipeline.Source{}, err
	}
	return r.Read(ctx, location, opt)
}

// Parts lists the sheets or tables of location. Single-table sources return
// nil.
func Parts(ctx context.Context, location string) ([]string, error) {
	r, err := lookup(location)
	if err != nil {
		return nil, err
	}
	if l, ok := r.(Lister); ok {
		return l.List(ctx, location)
	}
	return nil, nil
}

// pickPart resolves opt.Part / opt.PartIndex against the available names.
func pickPart(names []string, opt Options) (string, error) {
	if len(names) == 0 {
		return "", ErrPartNotFound
	}
	if opt.Part != "" {
		for _, n := range names {
			if strings.EqualFold(n, opt.Part) {
				return n, nil
			}
		}
		return "", fmt.Errorf("%w: %q (available: %s)", ErrPartNotFound, opt.Part, strings.Join(names, ", "))
	}
	idx := opt.PartIndex
	if idx <= 0 {
		idx = 1
	}
	if idx > len(names) {
		return "", fmt.Errorf("%w: index %d of %d", ErrPartNotFound, idx, len(names))
	}
	return names[idx-1], nil
}

// Loader adapts a fixed location to pipeline.Loader.
type Loader struct {
	Location string
	Options  Options
}

func (l Loader) Load(ctx context.Context) (*table.Table, pipeline.Source, error) {
	return Open(ctx, l.Location, l.Options)
}

func init() {
	Register(csvReader{})
	Register(xlsxReader{})
	Register(sqliteReader{})
	Register(postgresReader{})
}
