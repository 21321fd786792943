package profsim

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
)

// SimilarityResult is a faculty record together with its cosine similarity
// to the query embedding.
type SimilarityResult struct {
	Faculty
	Similarity float64 `json:"similarity"`
}

// SimilarityFunc scores two equal-length vectors. Cosine implementations
// return values in [-1, 1].
type SimilarityFunc func(a, b []float64) float64

// CosineSimilarity computes cosine similarity with gonum vector primitives.
// Mismatched lengths or a zero-magnitude vector score 0 rather than faulting.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(a, b) / (normA * normB)
}

// cosineSimilarityPure is the dependency-free scoring strategy. Same
// contract as CosineSimilarity.
func cosineSimilarityPure(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Ranker performs ranked top-k retrieval over candidate embeddings.
type Ranker struct {
	sim SimilarityFunc
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithSimilarityFunc selects the scoring strategy. The default is the
// gonum-backed CosineSimilarity; cosineSimilarityPure is the pure-Go
// alternative.
func WithSimilarityFunc(sim SimilarityFunc) RankerOption {
	return func(r *Ranker) {
		if sim != nil {
			r.sim = sim
		}
	}
}

// NewRanker creates a Ranker with the default cosine strategy.
func NewRanker(opts ...RankerOption) *Ranker {
	r := &Ranker{sim: CosineSimilarity}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank scores every candidate against the target, keeps those at or above
// threshold, sorts by similarity descending (ties keep input order) and
// truncates to topK.
func (r *Ranker) Rank(target []float64, embeddings [][]float64, faculty []Faculty, topK int, threshold float64) ([]SimilarityResult, error) {
	if err := ValidateEmbeddings(embeddings, len(faculty)); err != nil {
		return nil, err
	}
	if len(embeddings) > 0 && len(embeddings[0]) != len(target) {
		return nil, fmt.Errorf("%w: target embedding has dimension %d, candidates have %d",
			ErrInvalidInput, len(target), len(embeddings[0]))
	}

	results := []SimilarityResult{}
	for i, embedding := range embeddings {
		similarity := r.sim(target, embedding)
		if similarity >= threshold {
			results = append(results, SimilarityResult{Faculty: faculty[i], Similarity: similarity})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if topK >= 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

type findSimilarRequest struct {
	TargetEmbedding []float64   `json:"target_embedding" jsonschema:"description=Query embedding vector"`
	AllEmbeddings   [][]float64 `json:"all_embeddings" jsonschema:"description=Candidate embeddings in faculty_data order"`
	FacultyData     []Faculty   `json:"faculty_data" jsonschema:"description=Faculty records matching all_embeddings by index"`
	TopK            int         `json:"top_k,omitempty" jsonschema:"description=Maximum number of results (default 10)"`
	Threshold       *float64    `json:"threshold,omitempty" jsonschema:"description=Minimum similarity to include (default 0.1)"`
}

type findSimilarResponse struct {
	Success        bool               `json:"success"`
	SimilarFaculty []SimilarityResult `json:"similar_faculty"`
}

var FindSimilarCmd = &cobra.Command{
	Use:   "find_similar",
	Short: "Rank faculty by cosine similarity to a target embedding",
	Run: func(cmd *cobra.Command, args []string) {
		runFindSimilar(cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func runFindSimilar(in io.Reader, out io.Writer) {
	var req findSimilarRequest
	if err := decodeRequest(in, &req); err != nil {
		writeError(out, err)
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	threshold := defaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	faculty, err := ValidateFaculty(req.FacultyData)
	if err != nil {
		writeError(out, err)
		return
	}

	results, err := NewRanker().Rank(req.TargetEmbedding, req.AllEmbeddings, faculty, topK, threshold)
	if err != nil {
		writeError(out, err)
		return
	}
	writeResult(out, findSimilarResponse{Success: true, SimilarFaculty: results})
}
