package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/section-tailor/internal/compiling"
	"github.com/jonathan/section-tailor/internal/config"
	"github.com/jonathan/section-tailor/internal/parsing"
	"github.com/jonathan/section-tailor/internal/pipeline"
	"github.com/jonathan/section-tailor/internal/types"
	"github.com/jonathan/section-tailor/internal/validation"
)

var tailorCmd = &cobra.Command{
	Use:   "tailor",
	Short: "Tailor every section of a resume document",
	Long: `Tailors the Summary, Experience and Skills sections of a LaTeX document concurrently
and splices the results back. Writes tailored.tex, report.json and the cleaned job
description to --out-dir, and tailored.pdf with --compile.

A section whose generation fails keeps its original markup; the failure is
recorded in report.json.`,
	RunE: runTailor,
}

var (
	tailorJob         string
	tailorResume      string
	tailorOutDir      string
	tailorKinds       string
	tailorProvider    string
	tailorModel       string
	tailorTopKeywords int
	tailorMaxPages    int
	tailorCompile     bool
	tailorAnalyze     bool
	tailorUseBrowser  bool
)

func init() {
	f := tailorCmd.Flags()
	f.StringVarP(&tailorJob, "job", "j", "", "Job description path, URL or - for stdin")
	f.StringVarP(&tailorResume, "resume", "r", "", "LaTeX document to tailor")
	f.StringVarP(&tailorOutDir, "out-dir", "o", "", "Output directory")
	f.StringVar(&tailorKinds, "kinds", "", "Comma-separated section kinds (default: all)")
	f.StringVar(&tailorProvider, "provider", "", "LLM provider: gemini or anthropic")
	f.StringVar(&tailorModel, "model", "", "Model name used for every tier")
	f.IntVar(&tailorTopKeywords, "top-keywords", 0, "Number of job keywords the rules consider")
	f.IntVar(&tailorMaxPages, "max-pages", 0, "Page limit checked after compiling (0: no limit)")
	f.BoolVar(&tailorCompile, "compile", false, "Compile the tailored document with pdflatex")
	f.BoolVar(&tailorAnalyze, "analyze", false, "Analyze job metadata with the model for semantic checks")
	f.BoolVar(&tailorUseBrowser, "use-browser", false, "Render script-heavy job pages in headless Chrome")

	rootCmd.AddCommand(tailorCmd)
}

func parseKinds(s string) ([]types.SectionKind, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var kinds []types.SectionKind
	for _, part := range strings.Split(s, ",") {
		kind, err := types.ParseSectionKind(part)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func runTailor(cmd *cobra.Command, _ []string) error {
	kinds, err := parseKinds(tailorKinds)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(config.Config{
		Job:             tailorJob,
		Resume:          tailorResume,
		OutDir:          tailorOutDir,
		Provider:        tailorProvider,
		Model:           tailorModel,
		TopKeywords:     tailorTopKeywords,
		MaxPages:        tailorMaxPages,
		Compile:         tailorCompile,
		AnalyzeMetadata: tailorAnalyze,
		UseBrowser:      tailorUseBrowser,
	})
	if err != nil {
		return err
	}
	switch {
	case cfg.Job == "":
		return fmt.Errorf("--job is required (or set job in the config file)")
	case cfg.Resume == "":
		return fmt.Errorf("--resume is required (or set resume in the config file)")
	case cfg.OutDir == "":
		return fmt.Errorf("--out-dir is required (or set out_dir in the config file)")
	}

	ctx := cmd.Context()
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	rules, err := cfg.BuildRules()
	if err != nil {
		return err
	}
	strictness, err := validation.ParseStrictness(cfg.Strictness)
	if err != nil {
		return err
	}

	g, err := newGeneration(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer g.Close()

	opts := pipeline.Options{
		JobSource:   cfg.Job,
		ResumePath:  cfg.Resume,
		OutDir:      cfg.OutDir,
		Rules:       rules,
		Strictness:  strictness,
		TopKeywords: cfg.KeywordCount(),
		Kinds:       kinds,
		MaxPages:    cfg.MaxPages,
		Generator:   g.gen,
		RetryGen:    g.retry,
		Fetcher:     newFetcher(cfg, logger),
		Stdin:       cmd.InOrStdin(),
		Logger:      logger,
		Printer:     newPrinter(cmd, cfg),
	}
	if cfg.AnalyzeMetadata {
		opts.Analyzer = parsing.NewAnalyzer(g.client, logger)
	}
	if cfg.Compile {
		opts.Compiler = compiling.NewPDFLaTeX(logger)
	}

	result, err := pipeline.Run(ctx, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", result.Report.RunID)
	for _, s := range result.Report.Sections {
		fmt.Fprintf(out, "  %-10s %-16s score=%d attempt=%d\n", s.Kind, s.Status, s.Score, s.Attempt)
	}
	fmt.Fprintf(out, "Wrote %s\n", result.TexPath)
	fmt.Fprintf(out, "Wrote %s\n", result.ReportPath)
	if result.PDFPath != "" {
		fmt.Fprintf(out, "Wrote %s\n", result.PDFPath)
	}
	if c := result.Report.Compilation; c != nil && !c.OK {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: compilation check failed: %s\n", c.Error)
	}
	return nil
}
