package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFirstCodeBlock(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		ignoreLanguage bool
		want           string
	}{
		{"plain fence", "Query:\n```\nLanny Flaherty birthplace\n```", true, "Lanny Flaherty birthplace"},
		{"language dropped", "```text\nwho founded Laksa\n```", true, "who founded Laksa"},
		{"language kept", "```text\nwho founded Laksa\n```", false, "text\nwho founded Laksa"},
		{"inline fence", "Search for ```Pontotoc Mississippi actors``` please", true, "Pontotoc Mississippi actors"},
		{"first block wins", "```\nfirst\n```\nthen\n```\nsecond\n```", true, "first"},
		{"no block", "I would search for his birthplace.", true, ""},
		{"empty input", "", true, ""},
		{"unterminated", "```\nnever closed", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFirstCodeBlock(tt.input, tt.ignoreLanguage))
		})
	}
}

func TestExtractFirstSquareBrackets(t *testing.T) {
	assert.Equal(t, "Supported", ExtractFirstSquareBrackets("Reasoning... so the answer is [Supported]."))
	assert.Equal(t, "Not Supported", ExtractFirstSquareBrackets("[Not Supported] and later [Supported]"))
	assert.Equal(t, "", ExtractFirstSquareBrackets("no brackets here"))
	assert.Equal(t, "", ExtractFirstSquareBrackets("empty [] brackets"))
}

func TestStripString(t *testing.T) {
	in := "  \nInstructions:   \n1. Do it.\t\n\n"
	assert.Equal(t, "Instructions:\n1. Do it.", StripString(in))
}
