// Package dataset loads delimited article tables into an immutable Dataset.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ColumnMapping names the header columns that carry each article field.
// Names are matched case-insensitively after trimming.
type ColumnMapping struct {
	ID       string `mapstructure:"id" yaml:"id"`
	Title    string `mapstructure:"title" yaml:"title"`
	Abstract string `mapstructure:"abstract" yaml:"abstract"`
	Source   string `mapstructure:"source" yaml:"source"`
	Group    string `mapstructure:"group" yaml:"group"`
	Manual   string `mapstructure:"manual" yaml:"manual"`
}

// DefaultColumns matches the standardized article export.
func DefaultColumns() ColumnMapping {
	return ColumnMapping{
		ID:       "pmid",
		Title:    "title",
		Abstract: "abstract",
		Source:   "source",
		Group:    "group",
		Manual:   "Manual",
	}
}

// LabelSeparator joins multiple group labels inside one field.
const LabelSeparator = "|"

// LoadOptions controls how a file is read.
type LoadOptions struct {
	// Delimiter between fields. If 0, ';' is used.
	Delimiter rune
	Columns   ColumnMapping
}

// DefaultLoadOptions returns the semicolon layout of the article export.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{Delimiter: ';', Columns: DefaultColumns()}
}

// Article is one row of the dataset.
type Article struct {
	ID       string
	Title    string
	Abstract string
	Source   string
	Group    string
	// Labels holds the pipe-split, trimmed group labels.
	Labels []string
	// Manual is nil when the column is absent or the cell is empty.
	Manual *string
	// Row is the 1-based data row number in the source file (header excluded).
	Row int
}

// Text returns title and abstract joined by a space.
func (a Article) Text() string {
	return strings.TrimSpace(a.Title + " " + a.Abstract)
}

// MultiLabel reports whether the group field carries more than one label.
func (a Article) MultiLabel() bool { return len(a.Labels) > 1 }

// Dataset is an ordered, read-only collection of articles sharing one schema.
type Dataset struct {
	name    string
	header  []string
	records []Article
	// raw rows kept for duplicate-row detection
	raw       [][]string
	hasManual bool
}

// Name returns the base name of the loaded file.
func (d *Dataset) Name() string { return d.name }

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// Header returns a copy of the header row.
func (d *Dataset) Header() []string { return append([]string(nil), d.header...) }

// HasManual reports whether the optional manual-annotation column exists.
func (d *Dataset) HasManual() bool { return d.hasManual }

// At returns the i-th record.
func (d *Dataset) At(i int) Article { return cloneArticle(d.records[i]) }

// Records returns a copy of all records.
func (d *Dataset) Records() []Article {
	out := make([]Article, len(d.records))
	for i, r := range d.records {
		out[i] = cloneArticle(r)
	}
	return out
}

// RawRows returns a copy of the raw cells of every row, header order.
func (d *Dataset) RawRows() [][]string {
	out := make([][]string, len(d.raw))
	for i, r := range d.raw {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func cloneArticle(a Article) Article {
	a.Labels = append([]string(nil), a.Labels...)
	if a.Manual != nil {
		v := *a.Manual
		a.Manual = &v
	}
	return a
}

// New builds a Dataset from already parsed articles. Used by tests and callers
// that assemble records in memory.
func New(name string, articles []Article) *Dataset {
	d := &Dataset{name: name, header: []string{"id", "title", "abstract", "source", "group", "manual"}}
	for i, a := range articles {
		a = cloneArticle(a)
		if a.Labels == nil {
			a.Labels = SplitLabels(a.Group)
		}
		if a.Row == 0 {
			a.Row = i + 1
		}
		manual := ""
		if a.Manual != nil {
			manual = *a.Manual
			d.hasManual = true
		}
		d.records = append(d.records, a)
		d.raw = append(d.raw, []string{a.ID, a.Title, a.Abstract, a.Source, a.Group, manual})
	}
	return d
}

// Load reads a delimited file into a Dataset. Required columns missing from
// the header yield a *SchemaError before any row is read.
func Load(path string, opt LoadOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Read(f, filepath.Base(path), opt)
}

// Read parses delimited content from r. name is used for reporting only.
func Read(r io.Reader, name string, opt LoadOptions) (*Dataset, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = ';'
	}
	cols := opt.Columns
	if cols == (ColumnMapping{}) {
		cols = DefaultColumns()
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SchemaError{Path: name, Missing: requiredNames(cols)}
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	header = append([]string(nil), header...)

	idx, err := resolveColumns(name, header, cols)
	if err != nil {
		return nil, err
	}

	d := &Dataset{name: name, header: header, hasManual: idx.manual >= 0}
	ncol := len(header)
	row := 0
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		row++
		// Normalize length
		cells := make([]string, ncol)
		copy(cells, rec)
		d.raw = append(d.raw, cells)

		a := Article{
			ID:       strings.TrimSpace(cells[idx.id]),
			Title:    strings.TrimSpace(cells[idx.title]),
			Abstract: strings.TrimSpace(cells[idx.abstract]),
			Source:   strings.TrimSpace(cells[idx.source]),
			Group:    strings.TrimSpace(cells[idx.group]),
			Row:      row,
		}
		a.Labels = SplitLabels(a.Group)
		if idx.manual >= 0 {
			if v := strings.TrimSpace(cells[idx.manual]); v != "" {
				a.Manual = &v
			}
		}
		d.records = append(d.records, a)
	}
	return d, nil
}

// SplitLabels splits a multi-label group field on the pipe separator.
func SplitLabels(group string) []string {
	parts := strings.Split(group, LabelSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

type columnIndex struct {
	id, title, abstract, source, group, manual int
}

func resolveColumns(name string, header []string, cols ColumnMapping) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}
	lookup := func(col string) int {
		if i, ok := pos[strings.ToLower(strings.TrimSpace(col))]; ok && col != "" {
			return i
		}
		return -1
	}
	idx := columnIndex{
		id:       lookup(cols.ID),
		title:    lookup(cols.Title),
		abstract: lookup(cols.Abstract),
		source:   lookup(cols.Source),
		group:    lookup(cols.Group),
		manual:   lookup(cols.Manual),
	}
	var missing []string
	for _, c := range []struct {
		name string
		at   int
	}{
		{cols.ID, idx.id},
		{cols.Title, idx.title},
		{cols.Abstract, idx.abstract},
		{cols.Source, idx.source},
		{cols.Group, idx.group},
	} {
		if c.at < 0 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return idx, &SchemaError{Path: name, Missing: missing}
	}
	return idx, nil
}

func requiredNames(cols ColumnMapping) []string {
	return []string{cols.ID, cols.Title, cols.Abstract, cols.Source, cols.Group}
}
