// Package analysis profiles an article dataset: data quality, text
// lengths, category breakdowns, correlations and word frequencies.
package analysis

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/medtext-cli/internal/dataset"
	"github.com/KaramelBytes/medtext-cli/internal/textnorm"
	"github.com/KaramelBytes/medtext-cli/internal/utils"
)

// Options controls profiling.
type Options struct {
	// TopWords is the length of the raw and meaningful word tables.
	TopWords int
	// TopCategories limits each category table; 0 keeps every value.
	TopCategories int
	// OutlierThreshold flags lengths with robust |z| (MAD) above it; 0 disables.
	OutlierThreshold float64
	// Normalizer produces the "meaningful" words; nil skips that table.
	Normalizer *textnorm.Normalizer
}

// DefaultOptions returns the options used by the profile command.
func DefaultOptions() Options {
	return Options{TopWords: 20, TopCategories: 10, OutlierThreshold: 3.5}
}

// Numeric column names, in report order.
const (
	TitleLength       = "title_length"
	AbstractLength    = "abstract_length"
	TitleWordCount    = "title_word_count"
	AbstractWordCount = "abstract_word_count"
)

// Report is a read-only profile of a dataset.
type Report struct {
	Name       string
	Rows       int
	Columns    int
	Quality    Quality
	Numeric    []NumericColumn
	Categories []CategoryTable
	Corr       *CorrMatrix
	Text       TextStats
	Warnings   []string
}

// Quality summarises missing and duplicated data.
type Quality struct {
	Missing        []CategoryCount // per header column, empty cells
	DuplicateRows  int             // rows identical to an earlier row
	UniqueIDs      int
	DuplicateIDs   int // Rows - UniqueIDs; rows with a missing ID count as duplicates
	MissingIDs     int
	EmptyTextRows  int // title and abstract both blank
	MultiLabelRows int
}

// Distribution mirrors a describe() row. Std is the sample deviation.
type Distribution struct {
	Count                      int
	Mean, Std                  float64
	Min, Q25, Median, Q75, Max float64
}

// NumericColumn is a derived per-row measure and its distribution.
type NumericColumn struct {
	Name   string
	Values []float64
	Dist   Distribution
	// Outliers counts rows whose robust z-score exceeds the threshold.
	Outliers        int
	OutliersMaxAbsZ float64
}

// CategoryCount is one value of a frequency table.
type CategoryCount struct {
	Value   string
	Count   int
	Percent float64
}

// CategoryTable is a frequency table sorted by count desc, value asc.
type CategoryTable struct {
	Field  string
	Unique int
	Total  int
	Values []CategoryCount
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// TextStats covers the combined title and abstract text.
type TextStats struct {
	TotalChars int
	TotalWords int
	TopRaw     []CategoryCount
	// TopMeaningful counts normalizer output: no stopwords, lemmatized.
	TopMeaningful []CategoryCount
}

var rawWord = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Profile computes the report. It does not modify ds and is deterministic.
func Profile(ds *dataset.Dataset, opt Options) *Report {
	records := ds.Records()
	header := ds.Header()
	rep := &Report{Name: ds.Name(), Rows: len(records), Columns: len(header)}

	rep.Quality = quality(ds, header, records)

	cols := map[string][]float64{}
	for _, a := range records {
		cols[TitleLength] = append(cols[TitleLength], float64(utils.CountChars(a.Title)))
		cols[AbstractLength] = append(cols[AbstractLength], float64(utils.CountChars(a.Abstract)))
		cols[TitleWordCount] = append(cols[TitleWordCount], float64(utils.CountWords(a.Title)))
		cols[AbstractWordCount] = append(cols[AbstractWordCount], float64(utils.CountWords(a.Abstract)))
	}
	names := []string{TitleLength, AbstractLength, TitleWordCount, AbstractWordCount}
	for _, name := range names {
		vals := cols[name]
		nc := NumericColumn{Name: name, Values: vals, Dist: describe(vals)}
		if opt.OutlierThreshold > 0 {
			nc.Outliers, nc.OutliersMaxAbsZ = robustOutliers(vals, opt.OutlierThreshold)
		}
		rep.Numeric = append(rep.Numeric, nc)
	}
	if len(records) >= 2 {
		rep.Corr = correlations(names, cols)
	}

	var sources, groups, labels, manual []string
	for _, a := range records {
		sources = append(sources, a.Source)
		groups = append(groups, a.Group)
		labels = append(labels, a.Labels...)
		if a.Manual != nil {
			manual = append(manual, *a.Manual)
		} else {
			manual = append(manual, "")
		}
	}
	rep.Categories = append(rep.Categories,
		frequency("source", sources, opt.TopCategories),
		frequency("group", groups, opt.TopCategories),
		frequency("group_label", labels, opt.TopCategories),
	)
	if ds.HasManual() {
		rep.Categories = append(rep.Categories, frequency("manual", manual, opt.TopCategories))
	}

	rep.Text = textStats(records, opt)
	rep.Warnings = warnings(rep)
	return rep
}

// Column returns the numeric column by name.
func (r *Report) Column(name string) (NumericColumn, bool) {
	for _, c := range r.Numeric {
		if c.Name == name {
			return c, true
		}
	}
	return NumericColumn{}, false
}

// Category returns the frequency table by field name.
func (r *Report) Category(field string) (CategoryTable, bool) {
	for _, c := range r.Categories {
		if c.Field == field {
			return c, true
		}
	}
	return CategoryTable{}, false
}

func quality(ds *dataset.Dataset, header []string, records []dataset.Article) Quality {
	var q Quality
	raw := ds.RawRows()
	missing := make([]int, len(header))
	seenRow := make(map[string]struct{}, len(raw))
	for _, row := range raw {
		for i := range header {
			if i < len(row) && strings.TrimSpace(row[i]) == "" {
				missing[i]++
			}
		}
		key := strings.Join(row, "\x1f")
		if _, dup := seenRow[key]; dup {
			q.DuplicateRows++
		} else {
			seenRow[key] = struct{}{}
		}
	}
	for i, h := range header {
		q.Missing = append(q.Missing, CategoryCount{Value: h, Count: missing[i], Percent: pct(missing[i], len(raw))})
	}

	ids := make(map[string]struct{})
	for _, a := range records {
		if strings.TrimSpace(a.Title) == "" && strings.TrimSpace(a.Abstract) == "" {
			q.EmptyTextRows++
		}
		if a.MultiLabel() {
			q.MultiLabelRows++
		}
		id := strings.TrimSpace(a.ID)
		if id == "" {
			q.MissingIDs++
			continue
		}
		ids[id] = struct{}{}
	}
	q.UniqueIDs = len(ids)
	q.DuplicateIDs = len(records) - q.UniqueIDs
	return q
}

func describe(vals []float64) Distribution {
	d := Distribution{Count: len(vals)}
	if len(vals) == 0 {
		return d
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	d.Mean = stat.Mean(vals, nil)
	if len(vals) > 1 {
		d.Std = stat.StdDev(vals, nil)
	}
	d.Min = sorted[0]
	d.Max = sorted[len(sorted)-1]
	d.Q25 = quantile(sorted, 0.25)
	d.Median = quantile(sorted, 0.5)
	d.Q75 = quantile(sorted, 0.75)
	return d
}

func correlations(names []string, cols map[string][]float64) *CorrMatrix {
	m := &CorrMatrix{Columns: names, Values: make([][]float64, len(names))}
	for i := range names {
		m.Values[i] = make([]float64, len(names))
	}
	for i := range names {
		m.Values[i][i] = 1
		for j := i + 1; j < len(names); j++ {
			r := stat.Correlation(cols[names[i]], cols[names[j]], nil)
			if math.IsNaN(r) {
				r = 0
			}
			m.Values[i][j], m.Values[j][i] = r, r
		}
	}
	return m
}

func frequency(field string, values []string, limit int) CategoryTable {
	counts := make(map[string]int)
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			v = "(missing)"
		}
		counts[v]++
	}
	t := CategoryTable{Field: field, Unique: len(counts), Total: len(values)}
	t.Values = topCounts(counts, len(values), limit)
	return t
}

// topCounts sorts by count desc then value asc and keeps limit entries
// (all when limit <= 0).
func topCounts(counts map[string]int, total, limit int) []CategoryCount {
	out := make([]CategoryCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, CategoryCount{Value: v, Count: c, Percent: pct(c, total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func textStats(records []dataset.Article, opt Options) TextStats {
	var ts TextStats
	raw := make(map[string]int)
	meaningful := make(map[string]int)
	rawTotal, meaningfulTotal := 0, 0
	for _, a := range records {
		text := a.Text()
		ts.TotalChars += utils.CountChars(text)
		ts.TotalWords += utils.CountWords(text)
		for _, w := range rawWord.FindAllString(strings.ToLower(text), -1) {
			raw[w]++
			rawTotal++
		}
		if opt.Normalizer != nil {
			for _, w := range opt.Normalizer.Normalize(text) {
				meaningful[w]++
				meaningfulTotal++
			}
		}
	}
	ts.TopRaw = topCounts(raw, rawTotal, opt.TopWords)
	if opt.Normalizer != nil {
		ts.TopMeaningful = topCounts(meaningful, meaningfulTotal, opt.TopWords)
	}
	return ts
}

func warnings(r *Report) []string {
	var w []string
	q := r.Quality
	if q.DuplicateIDs > 0 {
		w = append(w, plural(q.DuplicateIDs, "duplicate ID", "duplicate IDs")+" (rows minus unique IDs, blank IDs included); duplicates are kept as independent records")
	}
	if q.DuplicateRows > 0 {
		w = append(w, plural(q.DuplicateRows, "row is", "rows are")+" an exact duplicate of an earlier row")
	}
	if q.MissingIDs > 0 {
		w = append(w, plural(q.MissingIDs, "row has", "rows have")+" no ID")
	}
	if q.EmptyTextRows > 0 {
		w = append(w, plural(q.EmptyTextRows, "row has", "rows have")+" neither title nor abstract and will be excluded from training")
	}
	if q.MultiLabelRows > 0 {
		w = append(w, plural(q.MultiLabelRows, "row carries", "rows carry")+" more than one group label")
	}
	for _, c := range r.Numeric {
		if c.Outliers > 0 {
			w = append(w, plural(c.Outliers, "outlier", "outliers")+" in "+c.Name+" (robust z)")
		}
	}
	return w
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

// robustOutliers counts |z| > threshold with z = 0.6745*(x-median)/MAD.
func robustOutliers(vals []float64, threshold float64) (int, float64) {
	median, mad := medianMAD(vals)
	if mad == 0 {
		return 0, 0
	}
	count, maxAbs := 0, 0.0
	for _, v := range vals {
		z := math.Abs(0.6745 * (v - median) / mad)
		if z > threshold {
			count++
		}
		if z > maxAbs {
			maxAbs = z
		}
	}
	return count, maxAbs
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

// quantile interpolates linearly between closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
