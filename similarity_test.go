package profsim

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	strategies := map[string]SimilarityFunc{
		"gonum": CosineSimilarity,
		"pure":  cosineSimilarityPure,
	}

	for name, sim := range strategies {
		t.Run(name, func(t *testing.T) {
			a := []float64{1, 2, 3}
			b := []float64{-2, 0.5, 4}

			assert.InDelta(t, 1.0, sim(a, a), 1e-12, "self similarity")
			assert.InDelta(t, sim(a, b), sim(b, a), 1e-12, "symmetry")
			assert.Equal(t, 0.0, sim([]float64{0, 0, 0}, a), "zero magnitude")
			assert.Equal(t, 0.0, sim(a, []float64{1, 2}), "length mismatch")

			orthogonal := sim([]float64{1, 0}, []float64{0, 1})
			assert.InDelta(t, 0.0, orthogonal, 1e-12)
			opposite := sim([]float64{1, 0}, []float64{-1, 0})
			assert.InDelta(t, -1.0, opposite, 1e-12)
		})
	}
}

func TestRankerRank(t *testing.T) {
	faculty := []Faculty{
		{ID: "1", Name: "A", Department: "CS"},
		{ID: "2", Name: "B", Department: "CS"},
		{ID: "3", Name: "C", Department: "Math"},
	}
	embeddings := [][]float64{
		{1, 0, 0},
		{1, 0, 0},
		{0, 1, 0},
	}
	query := []float64{1, 0, 0}

	results, err := NewRanker().Rank(query, embeddings, faculty, 2, 0.1)
	require.NoError(t, err)

	// C is orthogonal to the query and falls below the threshold.
	require.Len(t, results, 2)
	assert.Equal(t, "1", results[0].ID)
	assert.Equal(t, "2", results[1].ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-12)
	assert.InDelta(t, 1.0, results[1].Similarity, 1e-12)
}

func TestRankerRankProperties(t *testing.T) {
	faculty := make([]Faculty, 5)
	embeddings := [][]float64{
		{1, 0}, {0.9, 0.1}, {0.5, 0.5}, {0, 1}, {-1, 0},
	}
	for i := range faculty {
		faculty[i] = Faculty{ID: string(rune('a' + i)), Name: "F"}
	}

	results, err := NewRanker().Rank([]float64{1, 0}, embeddings, faculty, 3, 0.2)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(results), 3)
	for i, r := range results {
		assert.GreaterOrEqual(t, r.Similarity, 0.2)
		if i > 0 {
			assert.LessOrEqual(t, r.Similarity, results[i-1].Similarity, "sorted non-increasing")
		}
	}
}

func TestRankerTiesKeepInputOrder(t *testing.T) {
	faculty := []Faculty{
		{ID: "first", Name: "F"},
		{ID: "second", Name: "F"},
		{ID: "third", Name: "F"},
	}
	embeddings := [][]float64{
		{2, 0},
		{5, 0},
		{1, 0},
	}

	results, err := NewRanker().Rank([]float64{1, 0}, embeddings, faculty, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{results[0].ID, results[1].ID, results[2].ID})
}

func TestRankerEmptyAndMismatchedInput(t *testing.T) {
	results, err := NewRanker().Rank([]float64{1, 0}, nil, nil, 10, 0.1)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = NewRanker().Rank([]float64{1, 0}, [][]float64{{1, 0}}, nil, 10, 0.1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewRanker().Rank([]float64{1, 0, 0}, [][]float64{{1, 0}}, []Faculty{{ID: "1", Name: "A"}}, 10, 0.1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRankerCustomStrategy(t *testing.T) {
	called := false
	r := NewRanker(WithSimilarityFunc(func(a, b []float64) float64 {
		called = true
		return cosineSimilarityPure(a, b)
	}))
	_, err := r.Rank([]float64{1}, [][]float64{{1}}, []Faculty{{ID: "1", Name: "A"}}, 1, 0)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRunFindSimilar(t *testing.T) {
	input := `{
		"target_embedding": [1, 0, 0],
		"all_embeddings": [[1, 0, 0], [0, 1, 0]],
		"faculty_data": [
			{"faculty_id": "f1", "name": "Ada"},
			{"faculty_id": "f2", "name": "Grace", "department": "CS"}
		],
		"top_k": 5
	}`
	var out bytes.Buffer
	runFindSimilar(strings.NewReader(input), &out)

	var resp findSimilarResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.SimilarFaculty, 1)
	assert.Equal(t, "f1", resp.SimilarFaculty[0].ID)
	assert.Equal(t, "Unknown", resp.SimilarFaculty[0].Department, "department default applied")
}

func TestRunFindSimilarErrors(t *testing.T) {
	cases := map[string]string{
		"malformed json":    `{"target_embedding": [1,`,
		"missing name":      `{"target_embedding": [1], "all_embeddings": [[1]], "faculty_data": [{"faculty_id": "f1"}]}`,
		"length mismatch":   `{"target_embedding": [1], "all_embeddings": [[1], [2]], "faculty_data": [{"faculty_id": "f1", "name": "A"}]}`,
		"ragged dimensions": `{"target_embedding": [1, 2], "all_embeddings": [[1, 2], [3]], "faculty_data": [{"faculty_id": "a", "name": "A"}, {"faculty_id": "b", "name": "B"}]}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			runFindSimilar(strings.NewReader(input), &out)

			var resp errorResult
			require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}
