package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n{\"name\": \"Ada\"}\n```",
			expected: `{"name": "Ada"}`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"name\": \"Ada\"}\n```",
			expected: `{"name": "Ada"}`,
		},
		{
			name:     "code block with other language",
			input:    "```javascript\n{\"score\": 70}\n```",
			expected: `{"score": 70}`,
		},
		{
			name:     "plain JSON",
			input:    `  {"score": 70}  `,
			expected: `{"score": 70}`,
		},
		{
			name:     "preamble before object",
			input:    "Here is the report:\n{\"score\": 55}",
			expected: `{"score": 55}`,
		},
		{
			name:     "no JSON at all",
			input:    "sorry, I cannot help",
			expected: "sorry, I cannot help",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}
