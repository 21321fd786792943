package profsim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	gotTexts []string
	err      error
}

func (s *stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	s.gotTexts = texts
	if s.err != nil {
		return nil, s.err
	}
	embeddings := make([][]float64, len(texts))
	for i := range embeddings {
		embeddings[i] = []float64{float64(i), 1}
	}
	return embeddings, nil
}

func withStubEmbedder(t *testing.T, embedder TextEmbedder, err error) {
	t.Helper()
	original := newEmbedder
	newEmbedder = func() (TextEmbedder, error) { return embedder, err }
	t.Cleanup(func() { newEmbedder = original })
}

func TestRunTest(t *testing.T) {
	withStubEmbedder(t, &stubEmbedder{}, nil)

	var out bytes.Buffer
	runTest(&out)

	var resp testResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Message)
}

func TestRunTestModelUnavailable(t *testing.T) {
	withStubEmbedder(t, nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrModelInit))

	var out bytes.Buffer
	runTest(&out)

	var resp errorResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "OPENAI_API_KEY")
}

func TestRunGenerateEmbeddings(t *testing.T) {
	stub := &stubEmbedder{}
	withStubEmbedder(t, stub, nil)

	input := `{"texts": ["deep  learning;\nsystems", "databases"]}`
	var out bytes.Buffer
	runGenerateEmbeddings(context.Background(), strings.NewReader(input), &out)

	var resp generateEmbeddingsResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Embeddings, 2)

	// Texts are normalized before they reach the embedder.
	assert.Equal(t, []string{"deep learning, systems", "databases"}, stub.gotTexts)
}

func TestRunGenerateEmbeddingsEmptyBatch(t *testing.T) {
	withStubEmbedder(t, &stubEmbedder{}, nil)

	var out bytes.Buffer
	runGenerateEmbeddings(context.Background(), strings.NewReader(`{"texts": []}`), &out)

	var resp generateEmbeddingsResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Embeddings)
	assert.Empty(t, resp.Embeddings)
}

func TestRunGenerateEmbeddingsFailure(t *testing.T) {
	stub := &stubEmbedder{err: fmt.Errorf("%w: upstream timeout", ErrEmbedding)}
	withStubEmbedder(t, stub, nil)

	var out bytes.Buffer
	runGenerateEmbeddings(context.Background(), strings.NewReader(`{"texts": ["x"]}`), &out)

	var resp errorResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "embedding generation failed")
}

func TestNewOpenAIEmbedderRequiresKey(t *testing.T) {
	original := Config.OpenAIAPIKey
	Config.OpenAIAPIKey = ""
	t.Cleanup(func() { Config.OpenAIAPIKey = original })

	_, err := NewOpenAIEmbedder()
	assert.ErrorIs(t, err, ErrModelInit)
}
