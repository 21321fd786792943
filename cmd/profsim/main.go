package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tolgag/profsim"
)

func main() {
	// Everything below answers on stdout with one JSON object. Only an
	// uncaught fault escapes with a non-zero exit status, and even then an
	// error object is printed first.
	defer func() {
		if r := recover(); r != nil {
			printErrorObject(fmt.Sprintf("unexpected error: %v", r))
			os.Exit(1)
		}
	}()

	// .env is optional; only the embedding commands need an API key.
	_ = godotenv.Load()
	profsim.Config.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	profsim.Config.EmbeddingModel = os.Getenv("PROFSIM_EMBEDDING_MODEL")

	rootCmd := &cobra.Command{
		Use:           "profsim",
		Short:         "Faculty similarity and clustering service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(profsim.TestCmd)
	rootCmd.AddCommand(profsim.GenerateEmbeddingsCmd)
	rootCmd.AddCommand(profsim.FindSimilarCmd)
	rootCmd.AddCommand(profsim.ClusterFacultyCmd)
	rootCmd.AddCommand(profsim.AnalyzeTopicsCmd)
	rootCmd.AddCommand(profsim.SchemaCmd)
	rootCmd.AddCommand(profsim.ReportCmd)

	if err := rootCmd.Execute(); err != nil {
		// Unrecognized commands are a logical failure, not a fault.
		printErrorObject(err.Error())
	}
}

func printErrorObject(message string) {
	out, _ := json.Marshal(map[string]any{"success": false, "error": message})
	fmt.Println(string(out))
}
