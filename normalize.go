package profsim

import "strings"

// NormalizeText prepares raw text for embedding: runs of whitespace
// (including newlines and carriage returns) collapse to single spaces,
// semicolons become commas, and the result is trimmed. Idempotent.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, ";", ",")
	return strings.Join(strings.Fields(text), " ")
}
