package profsim

// Config holds all environment variables
var Config struct {
	OpenAIAPIKey   string
	EmbeddingModel string
}
