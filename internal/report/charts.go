package report

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/KaramelBytes/medtext-cli/internal/analysis"
	"github.com/KaramelBytes/medtext-cli/internal/selection"
	"github.com/KaramelBytes/medtext-cli/internal/utils"
)

const histBins = 30

// RenderCharts writes PNG charts into dir and returns the written paths.
// res may be nil when no model was trained. Histograms of constant
// columns are skipped.
func RenderCharts(dir string, rep *analysis.Report, res *selection.Result) ([]string, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure chart dir: %w", err)
	}
	var written []string
	save := func(p *plot.Plot, name string, w, h vg.Length) error {
		path := filepath.Join(dir, name)
		if err := p.Save(w, h, path); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	if rep != nil {
		titles := map[string]string{
			analysis.TitleLength:       "Title length (characters)",
			analysis.AbstractLength:    "Abstract length (characters)",
			analysis.TitleWordCount:    "Title word count",
			analysis.AbstractWordCount: "Abstract word count",
		}
		for _, col := range rep.Numeric {
			if col.Dist.Count < 2 || col.Dist.Min == col.Dist.Max {
				continue
			}
			p, err := histogram(titles[col.Name], col.Values)
			if err != nil {
				return written, err
			}
			if err := save(p, col.Name+".png", 6*vg.Inch, 4*vg.Inch); err != nil {
				return written, err
			}
		}
		if t, ok := rep.Category("source"); ok && len(t.Values) > 0 {
			p, err := categoryBars("Articles by source", t.Values, false)
			if err != nil {
				return written, err
			}
			if err := save(p, "sources.png", 6*vg.Inch, 4*vg.Inch); err != nil {
				return written, err
			}
		}
		if t, ok := rep.Category("group"); ok && len(t.Values) > 0 {
			p, err := categoryBars("Top groups", t.Values, true)
			if err != nil {
				return written, err
			}
			if err := save(p, "top_groups.png", 8*vg.Inch, 5*vg.Inch); err != nil {
				return written, err
			}
		}
		words, title := rep.Text.TopMeaningful, "Top terms (normalized)"
		if len(words) == 0 {
			words, title = rep.Text.TopRaw, "Top words"
		}
		if len(words) > 0 {
			p, err := categoryBars(title, words, true)
			if err != nil {
				return written, err
			}
			if err := save(p, "top_words.png", 8*vg.Inch, 6*vg.Inch); err != nil {
				return written, err
			}
		}
	}

	if res != nil && len(res.Families) > 0 {
		p, err := cvScores(res)
		if err != nil {
			return written, err
		}
		if err := save(p, "cv_scores.png", 6*vg.Inch, 4*vg.Inch); err != nil {
			return written, err
		}
	}
	return written, nil
}

func histogram(title string, vals []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "articles"
	h, err := plotter.NewHist(plotter.Values(vals), histBins)
	if err != nil {
		return nil, fmt.Errorf("histogram %q: %w", title, err)
	}
	h.FillColor = plotutil.Color(0)
	p.Add(h)
	return p, nil
}

// categoryBars draws counts in table order; horizontal charts list the
// first entry at the top.
func categoryBars(title string, values []analysis.CategoryCount, horizontal bool) (*plot.Plot, error) {
	n := len(values)
	counts := make(plotter.Values, n)
	names := make([]string, n)
	for i, v := range values {
		j := i
		if horizontal {
			j = n - 1 - i
		}
		counts[j] = float64(v.Count)
		names[j] = v.Value
	}
	p := plot.New()
	p.Title.Text = title
	bars, err := plotter.NewBarChart(counts, vg.Points(14))
	if err != nil {
		return nil, fmt.Errorf("bar chart %q: %w", title, err)
	}
	bars.Color = plotutil.Color(1)
	bars.Horizontal = horizontal
	p.Add(bars)
	if horizontal {
		p.NominalY(names...)
		p.X.Label.Text = "count"
	} else {
		p.NominalX(names...)
		p.Y.Label.Text = "count"
	}
	return p, nil
}

func cvScores(res *selection.Result) (*plot.Plot, error) {
	scores := make(plotter.Values, len(res.Families))
	names := make([]string, len(res.Families))
	for i, f := range res.Families {
		scores[i] = f.CVScore
		names[i] = string(f.Family)
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Best cross-validated %s per family", res.Scoring)
	bars, err := plotter.NewBarChart(scores, vg.Points(24))
	if err != nil {
		return nil, fmt.Errorf("cv chart: %w", err)
	}
	bars.Color = plotutil.Color(2)
	p.Add(bars)
	p.NominalX(names...)
	p.Y.Min, p.Y.Max = 0, 1
	return p, nil
}
