package ingestion

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"only whitespace", "   \n  \n  ", ""},
		{"headings keep markers", "  # Title\n## Subtitle\nContent here", "# Title\n## Subtitle\nContent here"},
		{"ascii bullets kept", "- Item 1\n- Item 2\n* Item 3", "- Item 1\n- Item 2\n* Item 3"},
		{"unicode bullets normalized", "• Go\n· Kubernetes", "- Go\n- Kubernetes"},
		{"inner whitespace collapsed", "Line    with \t multiple    spaces", "Line with multiple spaces"},
		{"blank runs capped", "Line 1\n\n\n\n\nLine 2", "Line 1\n\nLine 2"},
		{"line endings normalized", "Line 1\r\nLine 2\rLine 3", "Line 1\nLine 2\nLine 3"},
		{"indentation kept", "Intro\n    Indented   line", "Intro\n    Indented line"},
		{"unicode preserved", "Test with émojis 🚀 and spéciàl chàracters", "Test with émojis 🚀 and spéciàl chàracters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.input))
		})
	}
}

func TestCleanText_DeterministicOutput(t *testing.T) {
	input := "Test content   with   spaces\n\n\nMultiple   blank   lines"
	assert.Equal(t, CleanText(input), CleanText(input))
}

func TestIngestFromFile_Success(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "job.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("# Job Title\n\nDescription   here"), 0o644))

	text, metadata, err := IngestFromFile(testFile)
	require.NoError(t, err)
	assert.Equal(t, "# Job Title\n\nDescription here", text)
	assert.Equal(t, SourceFile, metadata.Source)
	assert.Equal(t, testFile, metadata.Path)
	assert.Empty(t, metadata.URL)
	assert.Len(t, metadata.Hash, 64)
	assert.NotEmpty(t, metadata.Timestamp)
}

func TestIngestFromFile_FileNotFound(t *testing.T) {
	_, _, err := IngestFromFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestIngestFromFile_HashFollowsContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	c := filepath.Join(dir, "c.txt")
	require.NoError(t, os.WriteFile(a, []byte("Go engineer"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("Rust engineer"), 0o644))
	require.NoError(t, os.WriteFile(c, []byte("Go    engineer  \n\n\n"), 0o644))

	_, metaA, err := IngestFromFile(a)
	require.NoError(t, err)
	_, metaB, err := IngestFromFile(b)
	require.NoError(t, err)
	_, metaC, err := IngestFromFile(c)
	require.NoError(t, err)

	assert.NotEqual(t, metaA.Hash, metaB.Hash)
	// Hash covers the cleaned text, so formatting noise does not change it
	assert.Equal(t, metaA.Hash, metaC.Hash)
}

func TestIngestFromReader(t *testing.T) {
	text, metadata, err := IngestFromReader(strings.NewReader("Senior Go Engineer\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "Senior Go Engineer", text)
	assert.Equal(t, SourceStdin, metadata.Source)
}

func TestWriteOutput(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "nested", "out")
	metadata := NewMetadata("text", "https://example.com/job")
	metadata.Source = SourceURL

	require.NoError(t, WriteOutput(outDir, "text", metadata))

	written, err := os.ReadFile(filepath.Join(outDir, "job_description.txt"))
	require.NoError(t, err)
	assert.Equal(t, "text", string(written))

	metaJSON, err := os.ReadFile(filepath.Join(outDir, "job_description.meta.json"))
	require.NoError(t, err)
	assert.Contains(t, string(metaJSON), `"source": "url"`)
	assert.Contains(t, string(metaJSON), `"url": "https://example.com/job"`)
}
