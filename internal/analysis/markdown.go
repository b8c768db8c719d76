package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Markdown renders a compact report suitable for a terminal or a standalone doc.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", r.Columns))
	b.WriteString(fmt.Sprintf("Unique IDs: %d\n", r.Quality.UniqueIDs))
	b.WriteString(fmt.Sprintf("Duplicate IDs: %d\n\n", r.Quality.DuplicateIDs))

	b.WriteString("[DATA QUALITY]\n")
	for _, m := range r.Quality.Missing {
		b.WriteString(fmt.Sprintf("- %s: missing %d (%.1f%%)\n", safeName(m.Value), m.Count, m.Percent))
	}
	b.WriteString(fmt.Sprintf("- duplicate rows: %d\n", r.Quality.DuplicateRows))
	b.WriteString(fmt.Sprintf("- missing IDs: %d\n", r.Quality.MissingIDs))
	b.WriteString(fmt.Sprintf("- empty title+abstract: %d\n", r.Quality.EmptyTextRows))
	b.WriteString(fmt.Sprintf("- multi-label rows: %d\n", r.Quality.MultiLabelRows))

	if len(r.Numeric) > 0 {
		b.WriteString("\n[TEXT LENGTHS]\n")
		b.WriteString("| measure | count | mean | std | min | 25% | 50% | 75% | max |\n")
		b.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|---:|\n")
		for _, c := range r.Numeric {
			d := c.Dist
			b.WriteString(fmt.Sprintf("| %s | %d | %.1f | %.1f | %.0f | %.1f | %.1f | %.1f | %.0f |\n",
				c.Name, d.Count, d.Mean, d.Std, d.Min, d.Q25, d.Median, d.Q75, d.Max))
		}
	}

	if len(r.Categories) > 0 {
		b.WriteString("\n[CATEGORIES]\n")
		for _, t := range r.Categories {
			b.WriteString(fmt.Sprintf("- %s (unique=%d)", t.Field, t.Unique))
			if len(t.Values) > 0 {
				b.WriteString(" — top: ")
				for i, kv := range t.Values {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d, %.1f%%)", safeVal(kv.Value), kv.Count, kv.Percent))
				}
			}
			b.WriteString("\n")
		}
	}

	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		type pr struct {
			A, B string
			R    float64
		}
		var pairs []pr
		n := len(r.Corr.Columns)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				pairs = append(pairs, pr{A: r.Corr.Columns[i], B: r.Corr.Columns[j], R: r.Corr.Values[i][j]})
			}
		}
		sort.Slice(pairs, func(i, j int) bool {
			ai := math.Abs(pairs[i].R)
			aj := math.Abs(pairs[j].R)
			if ai == aj {
				return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
			}
			return ai > aj
		})
		for _, p := range pairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}

	if len(r.Text.TopRaw) > 0 || len(r.Text.TopMeaningful) > 0 {
		b.WriteString("\n[TOP WORDS]\n")
		b.WriteString(fmt.Sprintf("Total characters: %d, total words: %d\n", r.Text.TotalChars, r.Text.TotalWords))
		writeWords(&b, "raw", r.Text.TopRaw)
		writeWords(&b, "meaningful", r.Text.TopMeaningful)
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeWords(b *strings.Builder, label string, words []CategoryCount) {
	if len(words) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("- %s: ", label))
	for i, w := range words {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprintf("%s(%d)", w.Value, w.Count))
	}
	b.WriteString("\n")
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
