package profsim

import (
	"errors"
	"fmt"
)

// Error kinds reported through the {success:false} envelope. Handlers wrap
// these so callers can tell a bad request from a failed model or primitive.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrModelInit    = errors.New("failed to initialize embedding model")
	ErrEmbedding    = errors.New("embedding generation failed")
	ErrClustering   = errors.New("clustering failed")
)

// Faculty represents a single faculty member as supplied by the caller.
// ID and Name are required; Department and Keywords are optional.
type Faculty struct {
	ID         string `json:"faculty_id" jsonschema:"description=Unique faculty identifier"`
	Name       string `json:"name" jsonschema:"description=Faculty member name"`
	Department string `json:"department,omitempty" jsonschema:"description=Department name"`
	Keywords   string `json:"keywords,omitempty" jsonschema:"description=Free-text research keywords"`
}

const defaultDepartment = "Unknown"

// ValidateFaculty checks required fields and fills the department default.
// Input is validated once here; the pipeline stages trust the records.
func ValidateFaculty(faculty []Faculty) ([]Faculty, error) {
	validated := make([]Faculty, len(faculty))
	for i, f := range faculty {
		if f.ID == "" {
			return nil, fmt.Errorf("%w: faculty_data[%d] is missing faculty_id", ErrInvalidInput, i)
		}
		if f.Name == "" {
			return nil, fmt.Errorf("%w: faculty_data[%d] is missing name", ErrInvalidInput, i)
		}
		if f.Department == "" {
			f.Department = defaultDepartment
		}
		validated[i] = f
	}
	return validated, nil
}

// ValidateEmbeddings checks that there is one embedding per faculty record
// and that every vector shares the same dimensionality.
func ValidateEmbeddings(embeddings [][]float64, recordCount int) error {
	if len(embeddings) != recordCount {
		return fmt.Errorf("%w: %d embeddings for %d faculty records", ErrInvalidInput, len(embeddings), recordCount)
	}
	if len(embeddings) == 0 {
		return nil
	}
	dim := len(embeddings[0])
	if dim == 0 {
		return fmt.Errorf("%w: embeddings must not be empty vectors", ErrInvalidInput)
	}
	for i, e := range embeddings {
		if len(e) != dim {
			return fmt.Errorf("%w: embedding %d has dimension %d, expected %d", ErrInvalidInput, i, len(e), dim)
		}
	}
	return nil
}
