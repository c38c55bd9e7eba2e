package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/section-tailor/internal/compiling"
	"github.com/jonathan/section-tailor/internal/config"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a LaTeX document and check its page count",
	Long:  "Runs pdflatex on --in, writes the PDF to --out (default: --in with .pdf) and fails when it exceeds --max-pages.",
	RunE:  runCompile,
}

var (
	compileIn       string
	compileOut      string
	compileMaxPages int
)

// newCompiler is swapped in tests.
var newCompiler = func(logger *slog.Logger) compiling.Compiler {
	return compiling.NewPDFLaTeX(logger)
}

func init() {
	compileCmd.Flags().StringVarP(&compileIn, "in", "i", "", "LaTeX document (required)")
	compileCmd.Flags().StringVarP(&compileOut, "out", "o", "", "Output PDF path")
	compileCmd.Flags().IntVar(&compileMaxPages, "max-pages", 0, "Fail when the PDF has more pages (0: no limit)")

	if err := compileCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(config.Config{MaxPages: compileMaxPages})
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	markup, err := os.ReadFile(compileIn)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	pdf, err := newCompiler(logger).Compile(cmd.Context(), string(markup))
	if err != nil {
		return err
	}

	out := compileOut
	if out == "" {
		out = strings.TrimSuffix(compileIn, filepath.Ext(compileIn)) + ".pdf"
	}
	if err := os.WriteFile(out, pdf, 0o644); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}

	pages, err := compiling.CountPDFPages(out)
	if err != nil {
		return fmt.Errorf("failed to count pages: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d pages)\n", out, pages)
	if cfg.MaxPages > 0 && pages > cfg.MaxPages {
		return fmt.Errorf("document has %d pages, limit is %d", pages, cfg.MaxPages)
	}
	return nil
}
