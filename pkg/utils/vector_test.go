package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical vectors", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"opposite vectors", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1},
		{"orthogonal vectors", []float32{1, 0, 0}, []float32{0, 1, 0}, 0},
		{"scaled vectors", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"different lengths", []float32{1, 2, 3}, []float32{1, 2}, 0},
		{"empty vectors", []float32{}, []float32{}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1, math.Sqrt(sum), 1e-6)

	assert.Equal(t, []float32{0, 0}, Normalize([]float32{0, 0}))
}

func TestTopKStableOnTies(t *testing.T) {
	items := []ScoredItem[string]{
		{Item: "a", Score: 0.5},
		{Item: "b", Score: 0.9},
		{Item: "c", Score: 0.5},
		{Item: "d", Score: 0.1},
	}

	top := TopK(items, 3)

	got := make([]string, len(top))
	for i, it := range top {
		got[i] = it.Item
	}
	assert.Equal(t, []string{"b", "a", "c"}, got)
	assert.Equal(t, "a", items[0].Item, "input must not be reordered")
	assert.Nil(t, TopK(items, 0))
	assert.Len(t, TopK(items, 10), 4)
}
