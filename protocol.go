package profsim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
)

// Defaults for optional request fields, matching the documented command
// surface.
const (
	defaultTopK           = 10
	defaultThreshold      = 0.1
	defaultMinClusterSize = 3
	defaultNumTopics      = 10
)

// errorResult is the envelope for any logical failure. Commands always print
// exactly one JSON object and exit 0; the success flag carries the outcome.
type errorResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// decodeRequest reads one JSON object from the command's input stream.
func decodeRequest(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: failed to read input: %v", ErrInvalidInput, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: expected a JSON object on stdin", ErrInvalidInput)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", ErrInvalidInput, err)
	}
	return nil
}

func writeResult(w io.Writer, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write result: %v", err)
	}
}

func writeError(w io.Writer, err error) {
	writeResult(w, errorResult{Success: false, Error: err.Error()})
}
