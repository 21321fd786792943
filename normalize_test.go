package profsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", " \t\r\n ", ""},
		{"collapses runs", "machine   learning\t\tsystems", "machine learning systems"},
		{"newlines and carriage returns", "deep\r\nlearning\nmodels\r", "deep learning models"},
		{"semicolons become commas", "nlp; vision; robotics", "nlp, vision, robotics"},
		{"trims edges", "  data mining  ", "data mining"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.input))
		})
	}
}

func TestNormalizeTextIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"machine learning, data mining",
		"a; b\nc\t d",
	}
	for _, input := range inputs {
		once := NormalizeText(input)
		assert.Equal(t, once, NormalizeText(once))
	}
}
