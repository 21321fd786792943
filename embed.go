package profsim

import (
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/spf13/cobra"
)

// TextEmbedder turns texts into fixed-dimension embedding vectors. Vectors
// in one batch are returned in input order and share dimensionality.
type TextEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}

// newEmbedder builds the configured embedder. Swapped out in tests.
var newEmbedder = func() (TextEmbedder, error) { return NewOpenAIEmbedder() }

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder creates an embedder from the package Config. It fails
// when no API key is configured.
func NewOpenAIEmbedder() (*OpenAIEmbedder, error) {
	if Config.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrModelInit)
	}
	model := openai.EmbeddingModelTextEmbedding3Large
	if Config.EmbeddingModel != "" {
		model = openai.EmbeddingModel(Config.EmbeddingModel)
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(option.WithAPIKey(Config.OpenAIAPIKey)),
		model:  model,
	}, nil
}

// EmbedTexts embeds the whole batch in a single API call.
func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	response, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmbedding, len(response.Data), len(texts))
	}

	embeddings := make([][]float64, len(texts))
	for _, item := range response.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(embeddings) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrEmbedding, idx)
		}
		embeddings[idx] = item.Embedding
	}
	for i, embedding := range embeddings {
		if embedding == nil {
			return nil, fmt.Errorf("%w: no embedding returned for text %d", ErrEmbedding, i)
		}
	}
	return embeddings, nil
}

type testResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

var TestCmd = &cobra.Command{
	Use:   "test",
	Short: "Verify the embedding model can be initialized",
	Run: func(cmd *cobra.Command, args []string) {
		runTest(cmd.OutOrStdout())
	},
}

func runTest(out io.Writer) {
	if _, err := newEmbedder(); err != nil {
		writeError(out, err)
		return
	}
	writeResult(out, testResponse{Success: true, Message: "embedding model initialized"})
}

type generateEmbeddingsRequest struct {
	Texts []string `json:"texts" jsonschema:"description=Texts to embed, one vector per text"`
}

type generateEmbeddingsResponse struct {
	Success    bool        `json:"success"`
	Embeddings [][]float64 `json:"embeddings"`
}

var GenerateEmbeddingsCmd = &cobra.Command{
	Use:   "generate_embeddings",
	Short: "Generate embedding vectors for a batch of texts",
	Run: func(cmd *cobra.Command, args []string) {
		runGenerateEmbeddings(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func runGenerateEmbeddings(ctx context.Context, in io.Reader, out io.Writer) {
	var req generateEmbeddingsRequest
	if err := decodeRequest(in, &req); err != nil {
		writeError(out, err)
		return
	}

	embedder, err := newEmbedder()
	if err != nil {
		writeError(out, err)
		return
	}

	normalized := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		normalized[i] = NormalizeText(text)
	}

	embeddings, err := embedder.EmbedTexts(ctx, normalized)
	if err != nil {
		writeError(out, err)
		return
	}
	writeResult(out, generateEmbeddingsResponse{Success: true, Embeddings: embeddings})
}
