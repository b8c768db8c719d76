package classify

import (
	"math"
	"sort"

	"github.com/KaramelBytes/medtext-cli/internal/features"
)

// Node is one node of a flattened decision tree. Feature -1 marks a leaf.
// Rows with x[Feature] <= Threshold go Left.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Class     int     `json:"c"`
}

// Tree is a decision tree rooted at Nodes[0].
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t Tree) predict(x features.SparseVector) int {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Class
		}
		if x.Get(n.Feature) <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type forest struct {
	params  Params
	dim     int
	classes int
	trees   []Tree
}

func (m *forest) Family() Family { return RandomForest }
func (m *forest) Params() Params { return m.params }
func (m *forest) Dim() int       { return m.dim }

// Fit grows Trees bootstrap-sampled Gini trees, each considering sqrt(dim)
// random features per split.
func (m *forest) Fit(X []features.SparseVector, y []int, classes int, seed uint64) error {
	dim, err := checkTrainingSet(X, y, classes)
	if err != nil {
		return err
	}
	m.dim, m.classes = dim, classes
	mtry := int(math.Sqrt(float64(dim)))
	if mtry < 1 {
		mtry = 1
	}
	m.trees = make([]Tree, m.params.Trees)
	for t := range m.trees {
		rng := newRand(seed + uint64(t)*0x2545f4914f6cdd1d)
		sample := make([]int, len(X))
		for i := range sample {
			sample[i] = rng.IntN(len(X))
		}
		b := &treeBuilder{X: X, y: y, classes: classes, dim: dim, mtry: mtry, params: m.params, rng: rng}
		b.grow(sample, 0)
		m.trees[t] = Tree{Nodes: b.nodes}
	}
	return nil
}

func (m *forest) Predict(x features.SparseVector) int {
	votes := make([]float64, m.classes)
	for _, t := range m.trees {
		votes[t.predict(x)]++
	}
	return argmax(votes)
}

func (m *forest) State() State {
	return State{Family: RandomForest, Params: m.params, Dim: m.dim, Classes: m.classes, Trees: m.trees}
}

type treeBuilder struct {
	X       []features.SparseVector
	y       []int
	classes int
	dim     int
	mtry    int
	params  Params
	rng     interface{ IntN(int) int }
	nodes   []Node
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	counts := make([]int, b.classes)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	pos := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1, Class: majority(counts)})

	if isPure(counts) || len(idx) < 2*b.params.MinSamplesLeaf {
		return pos
	}
	if b.params.MaxDepth > 0 && depth >= b.params.MaxDepth {
		return pos
	}
	feat, thr, ok := b.bestSplit(idx, counts)
	if !ok {
		return pos
	}
	var left, right []int
	for _, i := range idx {
		if b.X[i].Get(feat) <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[pos].Feature = feat
	b.nodes[pos].Threshold = thr
	b.nodes[pos].Left = l
	b.nodes[pos].Right = r
	return pos
}

type valueClass struct {
	v float64
	c int
}

// bestSplit scans batches of sqrt(dim) random features, drawing more
// when no batch yields a valid split, until every feature was tried.
func (b *treeBuilder) bestSplit(idx []int, counts []int) (int, float64, bool) {
	seen := make(map[int]struct{})
	for len(seen) < b.dim {
		cand := b.drawFeatures(seen)
		if f, thr, ok := b.scan(idx, counts, cand); ok {
			return f, thr, true
		}
	}
	return -1, 0, false
}

// scan evaluates every threshold of the candidate features. TF-IDF values
// are non-negative, so the implicit zeros of a sparse column sort first.
func (b *treeBuilder) scan(idx []int, counts []int, cand []int) (int, float64, bool) {
	slot := make(map[int]int, len(cand))
	for s, f := range cand {
		slot[f] = s
	}
	cols := make([][]valueClass, len(cand))
	for _, i := range idx {
		x := b.X[i]
		for k, j := range x.Indices {
			if s, ok := slot[j]; ok && x.Values[k] != 0 {
				cols[s] = append(cols[s], valueClass{x.Values[k], b.y[i]})
			}
		}
	}

	n := len(idx)
	minLeaf := b.params.MinSamplesLeaf
	parent := gini(counts, n)
	bestGain, bestFeat, bestThr := 1e-12, -1, 0.0
	left := make([]int, b.classes)
	right := make([]int, b.classes)

	for s, f := range cand {
		col := cols[s]
		if len(col) == 0 {
			continue
		}
		sort.Slice(col, func(i, j int) bool {
			if col[i].v != col[j].v {
				return col[i].v < col[j].v
			}
			return col[i].c < col[j].c
		})
		clear(right)
		for _, e := range col {
			right[e.c]++
		}
		for c := range left {
			left[c] = counts[c] - right[c]
		}
		nLeft, nRight := n-len(col), len(col)
		try := func(thr float64) {
			if nLeft < minLeaf || nRight < minLeaf {
				return
			}
			g := parent - (float64(nLeft)*gini(left, nLeft)+float64(nRight)*gini(right, nRight))/float64(n)
			if g > bestGain {
				bestGain, bestFeat, bestThr = g, f, thr
			}
		}
		if nLeft > 0 {
			try(col[0].v / 2)
		}
		for k := 0; k < len(col)-1; k++ {
			left[col[k].c]++
			right[col[k].c]--
			nLeft++
			nRight--
			if col[k].v == col[k+1].v {
				continue
			}
			try((col[k].v + col[k+1].v) / 2)
		}
	}
	return bestFeat, bestThr, bestFeat >= 0
}

// drawFeatures returns up to mtry features not in seen and marks them.
// Once few features remain it takes all of them in index order.
func (b *treeBuilder) drawFeatures(seen map[int]struct{}) []int {
	remaining := b.dim - len(seen)
	if remaining <= 2*b.mtry {
		out := make([]int, 0, remaining)
		for f := 0; f < b.dim; f++ {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				out = append(out, f)
			}
		}
		return out
	}
	out := make([]int, 0, b.mtry)
	for len(out) < b.mtry {
		f := b.rng.IntN(b.dim)
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		g -= p * p
	}
	return g
}

func isPure(counts []int) bool {
	nonzero := 0
	for _, c := range counts {
		if c > 0 {
			nonzero++
		}
	}
	return nonzero <= 1
}

func majority(counts []int) int {
	best := 0
	for c := 1; c < len(counts); c++ {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}
