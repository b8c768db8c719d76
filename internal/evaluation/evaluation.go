// Package evaluation scores predictions against true labels.
package evaluation

import (
	"fmt"
	"strings"
)

// Scoring names the metric used to rank candidates.
type Scoring string

const (
	Accuracy Scoring = "accuracy"
	MacroF1  Scoring = "macro_f1"
)

// Valid reports whether s is a known metric.
func (s Scoring) Valid() bool { return s == Accuracy || s == MacroF1 }

// ClassMetrics holds one class's scores.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report summarises predictions over one evaluation set.
type Report struct {
	Accuracy       float64        `json:"accuracy"`
	MacroPrecision float64        `json:"macro_precision"`
	MacroRecall    float64        `json:"macro_recall"`
	MacroF1        float64        `json:"macro_f1"`
	PerClass       []ClassMetrics `json:"per_class"`
	// Confusion[i][j] counts rows of class Labels[i] predicted as Labels[j].
	Confusion [][]int  `json:"confusion"`
	Labels    []string `json:"labels"`
	N         int      `json:"n"`
}

// Score returns the metric named by s.
func (r Report) Score(s Scoring) float64 {
	if s == MacroF1 {
		return r.MacroF1
	}
	return r.Accuracy
}

// Evaluate compares class indices; labels names each index and fixes the
// row order of the report.
func Evaluate(yTrue, yPred []int, labels []string) (Report, error) {
	if len(yTrue) != len(yPred) {
		return Report{}, fmt.Errorf("evaluate: %d true labels vs %d predictions", len(yTrue), len(yPred))
	}
	k := len(labels)
	conf := make([][]int, k)
	for i := range conf {
		conf[i] = make([]int, k)
	}
	correct := 0
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if t < 0 || t >= k || p < 0 || p >= k {
			return Report{}, fmt.Errorf("evaluate: row %d has class outside [0,%d)", i, k)
		}
		conf[t][p]++
		if t == p {
			correct++
		}
	}
	r := Report{Confusion: conf, Labels: append([]string(nil), labels...), N: len(yTrue)}
	if len(yTrue) > 0 {
		r.Accuracy = float64(correct) / float64(len(yTrue))
	}

	// macro averages cover classes present in either truth or predictions
	present := 0
	for c := 0; c < k; c++ {
		tp := conf[c][c]
		var support, predicted int
		for j := 0; j < k; j++ {
			support += conf[c][j]
			predicted += conf[j][c]
		}
		m := ClassMetrics{Label: labels[c], Support: support}
		m.Precision = ratio(tp, predicted)
		m.Recall = ratio(tp, support)
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.PerClass = append(r.PerClass, m)
		if support == 0 && predicted == 0 {
			continue
		}
		present++
		r.MacroPrecision += m.Precision
		r.MacroRecall += m.Recall
		r.MacroF1 += m.F1
	}
	if present > 0 {
		r.MacroPrecision /= float64(present)
		r.MacroRecall /= float64(present)
		r.MacroF1 /= float64(present)
	}
	return r, nil
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// Table renders per-class metrics as a Markdown table.
func (r Report) Table() string {
	var b strings.Builder
	b.WriteString("| class | precision | recall | f1 | support |\n")
	b.WriteString("|---|---:|---:|---:|---:|\n")
	for _, m := range r.PerClass {
		fmt.Fprintf(&b, "| %s | %.3f | %.3f | %.3f | %d |\n", m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
	fmt.Fprintf(&b, "| **macro avg** | %.3f | %.3f | %.3f | %d |\n", r.MacroPrecision, r.MacroRecall, r.MacroF1, r.N)
	return b.String()
}
