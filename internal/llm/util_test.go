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
		{"json code block", "```json\n{\"key\": \"value\"}\n```", `{"key": "value"}`},
		{"generic code block", "```\n{\"key\": \"value\"}\n```", `{"key": "value"}`},
		{"code block with language", "```javascript\n{\"key\": \"value\"}\n```", `{"key": "value"}`},
		{"plain JSON", `{"key": "value"}`, `{"key": "value"}`},
		{"preamble before object", "As requested, here is the JSON:\n{\"company\": \"Acme\"}", `{"company": "Acme"}`},
		{"preamble before array", "Here are the items:\n[\"item1\", \"item2\"]", `["item1", "item2"]`},
		{"trailing text", "{\"key\": \"value\"}\n\nLet me know if you need anything else!", `{"key": "value"}`},
		{"escaped quotes", "Result: {\"message\": \"He said \\\"hello\\\"\"}", `{"message": "He said \"hello\""}`},
		{"braces inside strings", `{"template": "Hello {name}!"}`, `{"template": "Hello {name}!"}`},
		{"no json at all", "nothing here", "nothing here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestExtractBalanced(t *testing.T) {
	assert.Equal(t, `{"a": {"b": 1}}`, extractJSONObject(`{"a": {"b": 1}} tail`))
	assert.Equal(t, `[[1, 2], [3]]`, extractJSONArray(`[[1, 2], [3]] tail`))
	assert.Equal(t, "", extractJSONObject(""))
	assert.Equal(t, "", extractJSONObject("not json"))
	assert.Equal(t, "", extractJSONObject(`{"open": true`))
}

func TestCleanLaTeXBlock(t *testing.T) {
	section := "\\section{Summary}\n\\begin{itemize}\n\\item One\n\\end{itemize}"

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already clean", section, section},
		{"fenced with language", "```latex\n" + section + "\n```", section},
		{"fenced without language", "```\n" + section + "\n```", section},
		{"prose before directive", "Here is the tailored section:\n\n" + section, section},
		{"prose and fence", "Sure!\n```tex\n" + section + "\n```\nHope this helps.", section},
		{"starts with item", "Updated bullets:\n  \\item One\n  \\item Two", "\\item One\n  \\item Two"},
		{"no directive", "I cannot help with that.", "I cannot help with that."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanLaTeXBlock(tt.input))
		})
	}
}
