package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/section-tailor/internal/compiling"
	"github.com/jonathan/section-tailor/internal/llm"
	"github.com/jonathan/section-tailor/internal/rendering"
	"github.com/jonathan/section-tailor/internal/types"
)

const jobText = "Python Python Python agents agents production LLMs LLMs pydantic-ai workflows workflows clinical clinical Docker"

const resumeDoc = `\documentclass[letterpaper,11pt]{article}
\begin{document}
\section{Summary}
\begin{itemize}
  \item First summary bullet
\end{itemize}

\section{Professional Experience}
\resumeSubHeadingListStart
  \resumeSubheading
    {Acme}{2021 -- Present}{Engineer}{Remote}
    \resumeItemListStart
      \resumeItem{First experience bullet}
    \resumeItemListEnd
\resumeSubHeadingListEnd

\section{Technical Skills}
\begin{itemize}
  \item \textbf{Languages:} Go, Python
\end{itemize}
\end{document}
`

var passingSummary = []string{
	"AI Engineer with 5+ yrs building LLM agents in Python; shipped pydantic-ai tools saving 1,000 hours monthly",
	"Designed clinical workflows for 120 hospitals using LLMs, cutting chart review time by 35% in production",
	"Containerized 20 evaluation services with Docker and automated regression checks across 14 model releases",
	"Partnered with 6 product teams to deploy retrieval pipelines raising answer accuracy from 71% to 89% in Q3",
}

func summaryMarkup(bullets ...string) string {
	var sb strings.Builder
	sb.WriteString("\\section{Summary}\n\\begin{itemize}\n")
	for _, b := range bullets {
		sb.WriteString("  \\item " + rendering.EscapeLaTeX(b) + "\n")
	}
	sb.WriteString("\\end{itemize}\n")
	return sb.String()
}

// MockLLMClient answers every prompt with the same text
type MockLLMClient struct {
	Output string
	Err    error
	calls  atomic.Int32
}

func (m *MockLLMClient) GenerateContent(context.Context, string, llm.ModelTier) (string, error) {
	m.calls.Add(1)
	return m.Output, m.Err
}

func (m *MockLLMClient) GenerateJSON(context.Context, string, llm.ModelTier) (string, error) {
	m.calls.Add(1)
	return "{}", m.Err
}

func (m *MockLLMClient) GetModel(llm.ModelTier) string { return "mock" }

func (m *MockLLMClient) Close() error { return nil }

func useMockClient(t *testing.T, mock *MockLLMClient) {
	t.Helper()
	orig := newClient
	newClient = func(context.Context, *llm.Config, string, *slog.Logger) (llm.Client, error) {
		return mock, nil
	}
	t.Cleanup(func() { newClient = orig })
	t.Setenv("GEMINI_API_KEY", "test-key")
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// execute runs the CLI in-process and returns stdout. Environment overrides
// other than API keys are cleared.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{
		"LLM_PROVIDER", "LLM_MODEL", "STRICTNESS", "SUMMARY_CHAR_MIN", "SUMMARY_CHAR_MAX",
		"SUMMARY_BULLET_COUNT", "MIN_KEYWORDS_REQUIRED", "TOP_KEYWORDS_COUNT",
	} {
		t.Setenv(key, "")
	}
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestKeywordsCommand(t *testing.T) {
	dir := t.TempDir()
	jobPath := writeFile(t, dir, "job.txt", jobText)

	t.Run("from file", func(t *testing.T) {
		out, err := execute(t, "", "keywords", "--job", jobPath, "--top", "3")
		require.NoError(t, err)
		var kws []types.Keyword
		require.NoError(t, json.Unmarshal([]byte(out), &kws))
		require.Len(t, kws, 3)
		assert.Equal(t, "python", kws[0].Term)
	})

	t.Run("from stdin", func(t *testing.T) {
		out, err := execute(t, jobText, "keywords", "--job", "-")
		require.NoError(t, err)
		var kws []types.Keyword
		require.NoError(t, json.Unmarshal([]byte(out), &kws))
		assert.Equal(t, "python", kws[0].Term)
	})

	t.Run("top from config file", func(t *testing.T) {
		cfgPath := writeFile(t, dir, "config.json", `{"top_keywords": 2}`)
		out, err := execute(t, "", "--config", cfgPath, "keywords", "--job", jobPath)
		require.NoError(t, err)
		var kws []types.Keyword
		require.NoError(t, json.Unmarshal([]byte(out), &kws))
		assert.Len(t, kws, 2)
	})

	t.Run("to file", func(t *testing.T) {
		outPath := filepath.Join(dir, "keywords.json")
		out, err := execute(t, "", "keywords", "--job", jobPath, "--out", outPath)
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.FileExists(t, outPath)
	})

	t.Run("missing job", func(t *testing.T) {
		_, err := execute(t, "", "keywords")
		assert.ErrorContains(t, err, "--job is required")
	})
}

func TestValidateSectionCommand(t *testing.T) {
	dir := t.TempDir()
	jobPath := writeFile(t, dir, "job.txt", jobText)
	goodPath := writeFile(t, dir, "good.tex", summaryMarkup(passingSummary...))
	docPath := writeFile(t, dir, "resume.tex", resumeDoc)

	t.Run("passing section", func(t *testing.T) {
		out, err := execute(t, "", "validate-section", "--kind", "summary", "--in", goodPath, "--job", jobPath)
		require.NoError(t, err)
		var result types.ValidationResult
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.True(t, result.Passed)
		assert.Empty(t, result.Errors)
	})

	t.Run("section extracted from document fails", func(t *testing.T) {
		out, err := execute(t, "", "validate-section", "--kind", "summary", "--resume", docPath, "--job", jobPath)
		require.Error(t, err)
		assert.ErrorIs(t, err, errSectionRejected)
		var result types.ValidationResult
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.False(t, result.Passed)
	})

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown kind", []string{"--kind", "education", "--in", goodPath, "--job", jobPath}, "unknown section kind"},
		{"no section source", []string{"--kind", "summary", "--job", jobPath}, "one of --in or --resume"},
		{"both section sources", []string{"--kind", "summary", "--in", goodPath, "--resume", docPath, "--job", jobPath}, "mutually exclusive"},
		{"bad strictness", []string{"--strictness", "harsh", "--kind", "summary", "--in", goodPath, "--job", jobPath}, "config error"},
		{"missing rules file", []string{"--rules", filepath.Join(dir, "nope.yaml"), "--kind", "summary", "--in", goodPath, "--job", jobPath}, "rules file not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", append([]string{"validate-section"}, tt.args...)...)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestTailorSectionCommand(t *testing.T) {
	dir := t.TempDir()
	jobPath := writeFile(t, dir, "job.txt", jobText)
	docPath := writeFile(t, dir, "resume.tex", resumeDoc)

	t.Run("accepted first attempt", func(t *testing.T) {
		mock := &MockLLMClient{Output: summaryMarkup(passingSummary...)}
		useMockClient(t, mock)

		outPath := filepath.Join(dir, "summary.tex")
		reportPath := filepath.Join(dir, "outcome.json")
		_, err := execute(t, "", "tailor-section", "--kind", "summary", "--resume", docPath, "--job", jobPath,
			"--out", outPath, "--report", reportPath)
		require.NoError(t, err)
		assert.Equal(t, int32(1), mock.calls.Load())

		tex, err := os.ReadFile(outPath)
		require.NoError(t, err)
		assert.Contains(t, string(tex), "Containerized 20 evaluation services")

		data, err := os.ReadFile(reportPath)
		require.NoError(t, err)
		var outcome types.Outcome
		require.NoError(t, json.Unmarshal(data, &outcome))
		assert.True(t, outcome.Accepted())
		assert.Len(t, outcome.Attempts, 1)
	})

	t.Run("generation failure", func(t *testing.T) {
		mock := &MockLLMClient{Err: &llm.GenerationError{Kind: llm.KindRateLimited, Message: "quota"}}
		useMockClient(t, mock)

		_, err := execute(t, "", "tailor-section", "--kind", "summary", "--resume", docPath, "--job", jobPath)
		var genErr *llm.GenerationError
		require.ErrorAs(t, err, &genErr)
		assert.Equal(t, llm.KindRateLimited, genErr.Kind)
	})

	t.Run("no api key", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		_, err := execute(t, "", "tailor-section", "--kind", "summary", "--resume", docPath, "--job", jobPath)
		assert.ErrorContains(t, err, "no API key")
	})
}

func TestTailorCommand(t *testing.T) {
	dir := t.TempDir()
	jobPath := writeFile(t, dir, "job.txt", jobText)
	docPath := writeFile(t, dir, "resume.tex", resumeDoc)
	outDir := filepath.Join(dir, "out")

	mock := &MockLLMClient{Output: summaryMarkup(passingSummary...)}
	useMockClient(t, mock)

	out, err := execute(t, "", "tailor", "--job", jobPath, "--resume", docPath, "--out-dir", outDir, "--kinds", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "summary")
	assert.Contains(t, out, "accepted")
	assert.FileExists(t, filepath.Join(outDir, "tailored.tex"))
	assert.FileExists(t, filepath.Join(outDir, "report.json"))

	tex, err := os.ReadFile(filepath.Join(outDir, "tailored.tex"))
	require.NoError(t, err)
	assert.Contains(t, string(tex), "Containerized 20 evaluation services")
	assert.Contains(t, string(tex), `\resumeItem{First experience bullet}`)
}

func TestTailorCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	jobPath := writeFile(t, dir, "job.txt", jobText)
	docPath := writeFile(t, dir, "resume.tex", resumeDoc)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing job", []string{"--resume", docPath, "--out-dir", dir}, "--job is required"},
		{"missing resume", []string{"--job", jobPath, "--out-dir", dir}, "--resume is required"},
		{"missing out dir", []string{"--job", jobPath, "--resume", docPath}, "--out-dir is required"},
		{"bad kind", []string{"--job", jobPath, "--resume", docPath, "--out-dir", dir, "--kinds", "summary,awards"}, "unknown section kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useMockClient(t, &MockLLMClient{})
			_, err := execute(t, "", append([]string{"tailor"}, tt.args...)...)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseKinds(t *testing.T) {
	kinds, err := parseKinds(" Summary , projects,skills")
	require.NoError(t, err)
	assert.Equal(t, []types.SectionKind{types.KindSummary, types.KindExperience, types.KindSkills}, kinds)

	kinds, err = parseKinds("")
	require.NoError(t, err)
	assert.Nil(t, kinds)
}

// minimalPDF assembles a PDF with the given number of blank pages
func minimalPDF(pages int) []byte {
	objects := []string{"<< /Type /Catalog /Pages 2 0 R >>"}
	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func useCompiler(t *testing.T, c compiling.Compiler) {
	t.Helper()
	orig := newCompiler
	newCompiler = func(*slog.Logger) compiling.Compiler { return c }
	t.Cleanup(func() { newCompiler = orig })
}

func TestCompileCommand(t *testing.T) {
	dir := t.TempDir()
	docPath := writeFile(t, dir, "resume.tex", resumeDoc)

	t.Run("default output path", func(t *testing.T) {
		useCompiler(t, compiling.CompileFunc(func(context.Context, string) ([]byte, error) { return minimalPDF(1), nil }))
		out, err := execute(t, "", "compile", "--in", docPath, "--max-pages", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "(1 pages)")
		assert.FileExists(t, filepath.Join(dir, "resume.pdf"))
	})

	t.Run("over page limit", func(t *testing.T) {
		useCompiler(t, compiling.CompileFunc(func(context.Context, string) ([]byte, error) { return minimalPDF(2), nil }))
		_, err := execute(t, "", "compile", "--in", docPath, "--out", filepath.Join(dir, "two.pdf"), "--max-pages", "1")
		assert.ErrorContains(t, err, "document has 2 pages, limit is 1")
		assert.FileExists(t, filepath.Join(dir, "two.pdf"))
	})

	t.Run("compiler failure", func(t *testing.T) {
		useCompiler(t, compiling.CompileFunc(func(context.Context, string) ([]byte, error) {
			return nil, &compiling.CompilationError{Message: "pdflatex failed"}
		}))
		_, err := execute(t, "", "compile", "--in", docPath)
		var compErr *compiling.CompilationError
		assert.ErrorAs(t, err, &compErr)
	})
}
