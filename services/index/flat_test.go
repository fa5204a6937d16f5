package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/intent-chatbot/services"
)

func TestBuild(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		idx, err := Build(nil)
		assert.Nil(t, idx)
		assert.True(t, services.IsEmptyIndexError(err))
	})

	t.Run("ragged dimensions", func(t *testing.T) {
		_, err := Build([][]float32{{1, 2}, {1}})
		assert.True(t, services.IsDataFormatError(err))
	})

	t.Run("zero dimension", func(t *testing.T) {
		_, err := Build([][]float32{{}})
		assert.True(t, services.IsDataFormatError(err))
	})

	t.Run("copies input", func(t *testing.T) {
		input := [][]float32{{1, 0}}
		idx, err := Build(input)
		require.NoError(t, err)

		input[0][0] = 99
		got, err := idx.Search([]float32{1, 0}, 1)
		require.NoError(t, err)
		assert.Equal(t, float32(0), got[0].Distance)
		assert.Equal(t, 1, idx.Len())
		assert.Equal(t, 2, idx.Dimension())
	})
}

func TestFlatIndex_Search(t *testing.T) {
	idx, err := Build([][]float32{
		{0, 0},
		{3, 4},
		{1, 0},
		{0, 1},
		{1, 1},
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		query []float32
		k     int
		want  []Neighbor
	}{
		{
			name:  "ascending with ties by lowest index",
			query: []float32{0, 0},
			k:     4,
			want:  []Neighbor{{0, 0}, {2, 1}, {3, 1}, {4, 2}},
		},
		{
			name:  "squared distance",
			query: []float32{0, 0},
			k:     5,
			want:  []Neighbor{{0, 0}, {2, 1}, {3, 1}, {4, 2}, {1, 25}},
		},
		{
			name:  "k capped at size",
			query: []float32{3, 4},
			k:     50,
			want:  []Neighbor{{1, 0}, {4, 13}, {3, 18}, {2, 20}, {0, 25}},
		},
		{
			name:  "k zero",
			query: []float32{0, 0},
			k:     0,
			want:  []Neighbor{},
		},
		{
			name:  "negative k",
			query: []float32{0, 0},
			k:     -3,
			want:  []Neighbor{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.Search(tt.query, tt.k)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlatIndex_SearchDeterministic(t *testing.T) {
	idx, err := Build([][]float32{{1, 0}, {0, 1}, {-1, 0}, {0, -1}})
	require.NoError(t, err)

	first, err := idx.Search([]float32{0, 0}, 4)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := idx.Search([]float32{0, 0}, 4)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, []Neighbor{{0, 1}, {1, 1}, {2, 1}, {3, 1}}, first)
}

func TestFlatIndex_SearchErrors(t *testing.T) {
	var empty *FlatIndex
	_, err := empty.Search([]float32{1}, 1)
	assert.True(t, services.IsEmptyIndexError(err))

	idx, err := Build([][]float32{{1, 2, 3}})
	require.NoError(t, err)
	_, err = idx.Search([]float32{1, 2}, 1)
	assert.Error(t, err)
}
