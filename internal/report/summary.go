// Package report writes the human-facing outputs of a run: the metrics
// summary and the descriptive charts.
package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/medtext-cli/internal/classify"
	"github.com/KaramelBytes/medtext-cli/internal/evaluation"
	"github.com/KaramelBytes/medtext-cli/internal/selection"
	"github.com/KaramelBytes/medtext-cli/internal/utils"
)

// File names written by WriteSummary.
const (
	MetricsJSON     = "metrics.json"
	MetricsMarkdown = "metrics.md"
)

// FamilyRecord is one evaluated family: its best configuration, CV score
// and test metrics after refitting on the training split.
type FamilyRecord struct {
	Family   classify.Family   `json:"family"`
	Params   classify.Params   `json:"params"`
	Config   string            `json:"config"`
	CVScore  float64           `json:"cv_score"`
	CVStd    float64           `json:"cv_std"`
	Test     evaluation.Report `json:"test"`
	Selected bool              `json:"selected"`
}

// Counts tracks how many rows reached training.
type Counts struct {
	Rows     int `json:"rows"`
	Used     int `json:"used"`
	Excluded int `json:"excluded_empty_text"`
	Dropped  int `json:"dropped_by_label_policy"`
	Train    int `json:"train"`
	Test     int `json:"test"`
}

// Summary is the metrics document of one training run.
type Summary struct {
	RunID       string                      `json:"run_id"`
	CreatedAt   time.Time                   `json:"created_at"`
	Dataset     string                      `json:"dataset"`
	Scoring     evaluation.Scoring          `json:"scoring"`
	Seed        uint64                      `json:"seed"`
	LabelPolicy string                      `json:"label_policy"`
	Labels      []string                    `json:"labels"`
	Vocabulary  int                         `json:"vocabulary"`
	Counts      Counts                      `json:"counts"`
	Families    []FamilyRecord              `json:"families"`
	Candidates  []selection.CandidateResult `json:"candidates"`
}

// Selected returns the winning family record.
func (s Summary) Selected() (FamilyRecord, bool) {
	for _, f := range s.Families {
		if f.Selected {
			return f, true
		}
	}
	return FamilyRecord{}, false
}

// FamilyRecords flattens a selection result into per-family records.
func FamilyRecords(res *selection.Result) []FamilyRecord {
	out := make([]FamilyRecord, 0, len(res.Families))
	for _, f := range res.Families {
		cr := res.Candidates[f.Best.Index]
		out = append(out, FamilyRecord{
			Family:   f.Family,
			Params:   f.Best.Params,
			Config:   f.Best.Params.Describe(f.Family),
			CVScore:  f.CVScore,
			CVStd:    cr.Std,
			Test:     f.Test,
			Selected: f.Best.Index == res.Best.Index,
		})
	}
	return out
}

// WriteSummary writes metrics.json and metrics.md into dir.
func WriteSummary(dir string, s Summary) error {
	b, err := utils.PrettyJSON(s)
	if err != nil {
		return err
	}
	if err := utils.SafeWriteFile(filepath.Join(dir, MetricsJSON), b); err != nil {
		return fmt.Errorf("write %s: %w", MetricsJSON, err)
	}
	if err := utils.SafeWriteFile(filepath.Join(dir, MetricsMarkdown), []byte(s.Markdown())); err != nil {
		return fmt.Errorf("write %s: %w", MetricsMarkdown, err)
	}
	return nil
}

// Markdown renders the summary for humans.
func (s Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("# Classification report\n\n")
	b.WriteString(fmt.Sprintf("- Run: `%s`\n", s.RunID))
	b.WriteString(fmt.Sprintf("- Dataset: %s\n", s.Dataset))
	b.WriteString(fmt.Sprintf("- Rows: %d total, %d used, %d excluded (empty text), %d dropped (label policy %s)\n",
		s.Counts.Rows, s.Counts.Used, s.Counts.Excluded, s.Counts.Dropped, s.LabelPolicy))
	b.WriteString(fmt.Sprintf("- Split: %d train / %d test, seed %d\n", s.Counts.Train, s.Counts.Test, s.Seed))
	b.WriteString(fmt.Sprintf("- Vocabulary: %d terms\n", s.Vocabulary))
	b.WriteString(fmt.Sprintf("- Scoring: %s\n\n", s.Scoring))

	b.WriteString("## Families\n\n")
	b.WriteString("| family | best config | CV | CV std | test accuracy | test macro F1 |\n")
	b.WriteString("|---|---|---:|---:|---:|---:|\n")
	for _, f := range s.Families {
		name := string(f.Family)
		if f.Selected {
			name = "**" + name + "** ✓"
		}
		b.WriteString(fmt.Sprintf("| %s | %s | %.4f | %.4f | %.4f | %.4f |\n",
			name, f.Config, f.CVScore, f.CVStd, f.Test.Accuracy, f.Test.MacroF1))
	}

	if sel, ok := s.Selected(); ok {
		b.WriteString(fmt.Sprintf("\n## Selected: %s (%s)\n\n", sel.Family, sel.Config))
		b.WriteString(sel.Test.Table())
		b.WriteString("\n### Confusion matrix (rows = true, columns = predicted)\n\n")
		b.WriteString("| |")
		for _, l := range sel.Test.Labels {
			b.WriteString(" " + l + " |")
		}
		b.WriteString("\n|---|")
		for range sel.Test.Labels {
			b.WriteString("---:|")
		}
		b.WriteString("\n")
		for i, row := range sel.Test.Confusion {
			b.WriteString("| " + sel.Test.Labels[i] + " |")
			for _, n := range row {
				b.WriteString(fmt.Sprintf(" %d |", n))
			}
			b.WriteString("\n")
		}
	}

	if len(s.Candidates) > 0 {
		b.WriteString("\n## All candidates\n\n")
		b.WriteString("| # | candidate | CV mean | CV std |\n|---:|---|---:|---:|\n")
		for _, c := range s.Candidates {
			b.WriteString(fmt.Sprintf("| %d | %s | %.4f | %.4f |\n", c.Index, c.Candidate, c.Mean, c.Std))
		}
	}
	return b.String()
}
