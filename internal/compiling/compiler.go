package compiling

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout is the maximum time to wait for one pdflatex run
const DefaultTimeout = 30 * time.Second

// Compiler turns document markup into a PDF
type Compiler interface {
	Compile(ctx context.Context, markup string) ([]byte, error)
}

// CompileFunc adapts a function to the Compiler interface
type CompileFunc func(ctx context.Context, markup string) ([]byte, error)

// Compile calls f
func (f CompileFunc) Compile(ctx context.Context, markup string) ([]byte, error) {
	return f(ctx, markup)
}

// PDFLaTeX compiles markup with the pdflatex binary in a scratch directory
type PDFLaTeX struct {
	Binary  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewPDFLaTeX returns a compiler using pdflatex from PATH
func NewPDFLaTeX(logger *slog.Logger) *PDFLaTeX {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFLaTeX{Binary: "pdflatex", Timeout: DefaultTimeout, Logger: logger}
}

// Available reports whether the compiler binary can be found
func (p *PDFLaTeX) Available() bool {
	_, err := exec.LookPath(p.binary())
	return err == nil
}

func (p *PDFLaTeX) binary() string {
	if p.Binary == "" {
		return "pdflatex"
	}
	return p.Binary
}

// Compile writes markup to a temp dir, runs pdflatex in nonstop mode and returns the PDF bytes.
// A run that exits non-zero but still produces a PDF is logged and treated as success.
func (p *PDFLaTeX) Compile(ctx context.Context, markup string) ([]byte, error) {
	if _, err := exec.LookPath(p.binary()); err != nil {
		return nil, &CompilationError{
			Message: p.binary() + " not found in PATH. Please install a LaTeX distribution (e.g., TeX Live, MiKTeX)",
			Cause:   err,
		}
	}

	workDir, err := os.MkdirTemp("", "latex-compile-*")
	if err != nil {
		return nil, &CompilationError{Message: "failed to create temporary working directory", Cause: err}
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	texPath := filepath.Join(workDir, "document.tex")
	if err := os.WriteFile(texPath, []byte(markup), 0644); err != nil {
		return nil, &CompilationError{
			Message: fmt.Sprintf("failed to write LaTeX file to working directory: %s", workDir),
			Cause:   err,
		}
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, p.binary(), "-interaction=nonstopmode", "-output-directory", workDir, texPath)
	cmd.Dir = workDir
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	logOutput := stdout.String() + stderr.String()

	if runCtx.Err() == context.DeadlineExceeded {
		return nil, &CompilationError{
			Message:   fmt.Sprintf("compilation timed out after %s", timeout),
			LogOutput: logOutput,
			Cause:     runCtx.Err(),
		}
	}

	pdfBytes, err := os.ReadFile(filepath.Join(workDir, "document.pdf"))
	if err != nil {
		return nil, &CompilationError{
			Message:   "LaTeX compilation failed: PDF was not generated",
			LogOutput: logOutput,
			Cause:     runErr,
		}
	}

	if runErr != nil {
		p.Logger.Warn("pdflatex reported errors but produced a PDF", "error", runErr, "bytes", len(pdfBytes))
	}
	p.Logger.Debug("compiled document", "duration", time.Since(start), "bytes", len(pdfBytes))
	return pdfBytes, nil
}

// FirstErrorLine returns the first "! ..." line of a pdflatex transcript
func FirstErrorLine(logOutput string) string {
	for _, line := range strings.Split(logOutput, "\n") {
		if strings.HasPrefix(line, "!") {
			return strings.TrimSpace(line)
		}
	}
	return ""
}
