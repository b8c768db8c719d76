package selection

import (
	"math"
	"math/rand/v2"
	"sort"
)

// StratifiedSplit partitions row positions into train and test sets. Each
// class sends round(n_c*testRatio) of its rows to test but always keeps at
// least one in train. Both slices are sorted.
func StratifiedSplit(y []int, testRatio float64, seed uint64) (train, test []int) {
	rng := rand.New(rand.NewPCG(seed, streamSplit))
	for _, rows := range byClass(y) {
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		nTest := int(math.Round(float64(len(rows)) * testRatio))
		if nTest >= len(rows) {
			nTest = len(rows) - 1
		}
		test = append(test, rows[:nTest]...)
		train = append(train, rows[nTest:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}

// StratifiedKFold returns k validation folds over positions of y. Each
// class is shuffled and dealt round-robin, continuing across classes so
// fold sizes differ by at most one.
func StratifiedKFold(y []int, k int, seed uint64) [][]int {
	rng := rand.New(rand.NewPCG(seed, streamFolds))
	folds := make([][]int, k)
	next := 0
	for _, rows := range byClass(y) {
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		for _, r := range rows {
			folds[next] = append(folds[next], r)
			next = (next + 1) % k
		}
	}
	for _, f := range folds {
		sort.Ints(f)
	}
	return folds
}

// complement returns positions in [0,n) not in fold (fold must be sorted).
func complement(n int, fold []int) []int {
	out := make([]int, 0, n-len(fold))
	j := 0
	for i := 0; i < n; i++ {
		if j < len(fold) && fold[j] == i {
			j++
			continue
		}
		out = append(out, i)
	}
	return out
}

// byClass groups positions by label in ascending label order.
func byClass(y []int) [][]int {
	groups := make(map[int][]int)
	for i, c := range y {
		groups[c] = append(groups[c], i)
	}
	keys := make([]int, 0, len(groups))
	for c := range groups {
		keys = append(keys, c)
	}
	sort.Ints(keys)
	out := make([][]int, len(keys))
	for i, c := range keys {
		out[i] = groups[c]
	}
	return out
}

const (
	streamSplit uint64 = 0x5eed0001
	streamFolds uint64 = 0x5eed0002
)

// deriveSeed mixes parts into seed with splitmix64 so every
// (candidate, fold) pair gets an independent, reproducible seed.
func deriveSeed(seed uint64, parts ...uint64) uint64 {
	s := splitmix(seed)
	for _, p := range parts {
		s = splitmix(s ^ (p + 1))
	}
	return s
}

func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
