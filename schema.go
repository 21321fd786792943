package profsim

import (
	"fmt"
	"io"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

type schemaResponse struct {
	Success bool               `json:"success"`
	Command string             `json:"command"`
	Schema  *jsonschema.Schema `json:"schema"`
}

// commandPayloads maps each stdin-reading command to its request type.
func commandPayloads() map[string]any {
	return map[string]any{
		"generate_embeddings": &generateEmbeddingsRequest{},
		"find_similar":        &findSimilarRequest{},
		"cluster_faculty":     &clusterFacultyRequest{},
		"analyze_topics":      &analyzeTopicsRequest{},
		"generate-report":     &generateReportRequest{},
	}
}

var SchemaCmd = &cobra.Command{
	Use:   "schema <command>",
	Short: "Print the JSON schema of a command's stdin payload",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSchema(cmd.OutOrStdout(), args[0])
	},
}

func runSchema(out io.Writer, command string) {
	payload, ok := commandPayloads()[command]
	if !ok {
		writeError(out, fmt.Errorf("%w: no input schema for command %q", ErrInvalidInput, command))
		return
	}

	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	writeResult(out, schemaResponse{Success: true, Command: command, Schema: reflector.Reflect(payload)})
}
