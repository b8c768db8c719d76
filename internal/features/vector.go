package features

// SparseVector stores the non-zero entries of a fixed-length vector.
// Indices are strictly increasing.
type SparseVector struct {
	Dim     int       `json:"dim"`
	Indices []int     `json:"indices"`
	Values  []float64 `json:"values"`
}

// Dense expands the vector to its full length.
func (s SparseVector) Dense() []float64 {
	out := make([]float64, s.Dim)
	for k, i := range s.Indices {
		out[i] = s.Values[k]
	}
	return out
}

// Get returns the value at index i.
func (s SparseVector) Get(i int) float64 {
	lo, hi := 0, len(s.Indices)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case s.Indices[mid] == i:
			return s.Values[mid]
		case s.Indices[mid] < i:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0
}

// Dot returns the inner product with a dense weight vector.
func (s SparseVector) Dot(w []float64) float64 {
	var sum float64
	for k, i := range s.Indices {
		sum += w[i] * s.Values[k]
	}
	return sum
}

// NNZ is the number of stored entries.
func (s SparseVector) NNZ() int { return len(s.Indices) }
