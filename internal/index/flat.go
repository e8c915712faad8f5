// Package index implements an exact (flat) inner-product vector index.
//
// Vectors are expected to be L2-normalized, which makes inner product equal to
// cosine similarity. Row i of the index corresponds to metadata record i.
package index

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/healthrag/internal/domain"
)

// Flat stores vectors row-major and scans all of them on every search.
type Flat struct {
	dim  int
	data []float32
}

// NewFlat creates an empty index of the given dimension.
func NewFlat(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("index dimension must be positive, got %d", dim)
	}
	return &Flat{dim: dim}, nil
}

// Dim returns the vector dimension.
func (f *Flat) Dim() int { return f.dim }

// Len returns the number of indexed vectors.
func (f *Flat) Len() int { return len(f.data) / f.dim }

// Add appends vectors in order. Either all vectors are added or none.
func (f *Flat) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("vector %d: %w: got %d, index has %d",
				i, domain.ErrDimensionMismatch, len(v), f.dim)
		}
	}
	f.data = append(f.data, flatten(vectors)...)
	return nil
}

// Vector returns a copy of row i.
func (f *Flat) Vector(i int) ([]float32, error) {
	if i < 0 || i >= f.Len() {
		return nil, fmt.Errorf("%w: row %d, index has %d", ErrRowOutOfRange, i, f.Len())
	}
	out := make([]float32, f.dim)
	copy(out, f.data[i*f.dim:(i+1)*f.dim])
	return out, nil
}

// Search returns up to k rows with the highest inner product against q, best first.
// Equal scores keep index order.
func (f *Flat) Search(q []float32, k int) (scores []float32, ids []int, err error) {
	if len(q) != f.dim {
		return nil, nil, fmt.Errorf("query: %w: got %d, index has %d",
			domain.ErrDimensionMismatch, len(q), f.dim)
	}
	if k <= 0 {
		return nil, nil, errors.New("k must be positive")
	}

	n := f.Len()
	all := make([]int, n)
	sims := make([]float32, n)
	for i := range n {
		all[i] = i
		sims[i] = dot(f.data[i*f.dim:(i+1)*f.dim], q)
	}
	sort.SliceStable(all, func(a, b int) bool { return sims[all[a]] > sims[all[b]] })

	k = min(k, n)
	scores = make([]float32, k)
	ids = make([]int, k)
	for i := range k {
		ids[i] = all[i]
		scores[i] = sims[all[i]]
	}
	return scores, ids, nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func flatten(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	out := make([]float32, 0, len(vectors)*len(vectors[0]))
	for _, v := range vectors {
		out = append(out, v...)
	}
	return out
}
