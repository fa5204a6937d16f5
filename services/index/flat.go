// Package index implements exact nearest-neighbor search over the utterance
// embedding matrix.
package index

import (
	"fmt"
	"sort"

	"github.com/upb/intent-chatbot/services"
)

// Neighbor is one search hit: the row position of a stored vector and its
// squared Euclidean distance to the query
type Neighbor struct {
	Index    int
	Distance float32
}

// FlatIndex is a brute-force squared-L2 index. It is immutable after Build
// and safe for concurrent searches.
type FlatIndex struct {
	dim     int
	vectors [][]float32
}

// Build copies vectors into a new index. Every vector must share the same
// dimension; zero vectors is an empty-index error.
func Build(vectors [][]float32) (*FlatIndex, error) {
	if len(vectors) == 0 {
		return nil, services.NewEmptyIndexError("cannot build index from zero vectors")
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, services.NewDataFormatError("embedding vectors have zero dimension", nil)
	}

	stored := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, services.NewDataFormatError(
				fmt.Sprintf("vector %d has dimension %d, expected %d", i, len(v), dim), nil)
		}
		row := make([]float32, dim)
		copy(row, v)
		stored[i] = row
	}

	return &FlatIndex{dim: dim, vectors: stored}, nil
}

// Len returns the number of stored vectors
func (x *FlatIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.vectors)
}

// Dimension returns the width of the stored vectors
func (x *FlatIndex) Dimension() int {
	if x == nil {
		return 0
	}
	return x.dim
}

// Search returns up to k nearest vectors ordered by ascending distance,
// equal distances ordered by lowest index. k larger than the index is
// capped; k <= 0 returns no neighbors.
func (x *FlatIndex) Search(query []float32, k int) ([]Neighbor, error) {
	if x.Len() == 0 {
		return nil, services.NewEmptyIndexError("search on empty index")
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), x.dim)
	}
	if k <= 0 {
		return []Neighbor{}, nil
	}
	if k > len(x.vectors) {
		k = len(x.vectors)
	}

	all := make([]Neighbor, len(x.vectors))
	for i, v := range x.vectors {
		all[i] = Neighbor{Index: i, Distance: squaredL2(query, v)}
	}

	sort.SliceStable(all, func(a, b int) bool {
		return all[a].Distance < all[b].Distance
	})

	return all[:k], nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
