package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	tests := []struct {
		text string
		term string
		want bool
	}{
		{"Built services in Go, Python", "go", true},
		{"Worked at Google", "go", false},
		{"Shipped pydantic-ai tools", "pydantic-ai", true},
		{"LLMs and agents", "llms", true},
		{"C++ backend", "c++", true},
		{"Python3 scripts", "python", false},
		{"anything", "", false},
		{"PYTHON developer", "Python", true},
	}
	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, Contains(tt.text, tt.term))
		})
	}
}

func TestMatched_PreservesOrder(t *testing.T) {
	text := "Deployed Docker agents with Python"
	got := Matched(text, []string{"python", "kubernetes", "agents", "docker"})
	assert.Equal(t, []string{"python", "agents", "docker"}, got)
}

func TestCoverage(t *testing.T) {
	assert.Equal(t, 0.5, Coverage("go and rust", []string{"go", "java"}))
	assert.Equal(t, 0.0, Coverage("go", nil))
}
