package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/section-tailor/internal/config"
	"github.com/jonathan/section-tailor/internal/rendering"
	"github.com/jonathan/section-tailor/internal/tailoring"
	"github.com/jonathan/section-tailor/internal/types"
)

var tailorSectionCmd = &cobra.Command{
	Use:   "tailor-section",
	Short: "Rewrite one section for a job description",
	Long: `Runs one tailoring session: generate the section, validate it and regenerate once
with the violations when it fails. The best attempt's markup is written to --out
(stdout by default); --report receives the full outcome as JSON.`,
	RunE: runTailorSection,
}

var (
	tailorSectionKind     string
	tailorSectionIn       string
	tailorSectionResume   string
	tailorSectionJob      string
	tailorSectionOut      string
	tailorSectionReport   string
	tailorSectionProvider string
	tailorSectionModel    string
	tailorSectionAnalyze  bool
)

func init() {
	f := tailorSectionCmd.Flags()
	f.StringVarP(&tailorSectionKind, "kind", "k", "", "Section kind: summary, experience or skills (required)")
	f.StringVarP(&tailorSectionIn, "in", "i", "", "File holding only the section markup")
	f.StringVarP(&tailorSectionResume, "resume", "r", "", "Whole LaTeX document to extract the section from")
	f.StringVarP(&tailorSectionJob, "job", "j", "", "Job description path, URL or - for stdin (required)")
	f.StringVarP(&tailorSectionOut, "out", "o", "", "Write the tailored section here instead of stdout")
	f.StringVar(&tailorSectionReport, "report", "", "Write the outcome JSON (attempts and validation) here")
	f.StringVar(&tailorSectionProvider, "provider", "", "LLM provider: gemini or anthropic")
	f.StringVar(&tailorSectionModel, "model", "", "Model name used for every tier")
	f.BoolVar(&tailorSectionAnalyze, "analyze", false, "Analyze job metadata with the model for semantic checks")

	if err := tailorSectionCmd.MarkFlagRequired("kind"); err != nil {
		panic(fmt.Sprintf("failed to mark kind flag as required: %v", err))
	}

	rootCmd.AddCommand(tailorSectionCmd)
}

func runTailorSection(cmd *cobra.Command, _ []string) error {
	kind, err := types.ParseSectionKind(tailorSectionKind)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(config.Config{
		Job:             tailorSectionJob,
		Provider:        tailorSectionProvider,
		Model:           tailorSectionModel,
		AnalyzeMetadata: tailorSectionAnalyze,
	})
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	rules, err := cfg.BuildRules()
	if err != nil {
		return err
	}
	markup, err := sectionMarkup(tailorSectionIn, tailorSectionResume, kind)
	if err != nil {
		return err
	}

	g, err := newGeneration(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer g.Close()

	jd, err := jobDescription(ctx, cmd, cfg, g.client, logger)
	if err != nil {
		return err
	}
	orch, err := tailoring.New(g.gen, rules,
		tailoring.WithLogger(logger),
		tailoring.WithRetryGenerator(g.retry),
	)
	if err != nil {
		return err
	}

	outcome, err := orch.Run(ctx, tailoring.Request{Kind: kind, OldSection: markup, Job: jd})
	if err != nil {
		return fmt.Errorf("tailoring %s failed: %w", kind, err)
	}
	if p := newPrinter(cmd, cfg); p != nil {
		p.PrintOutcome(outcome)
	}

	if tailorSectionReport != "" {
		data, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal outcome: %w", err)
		}
		if err := os.WriteFile(tailorSectionReport, data, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	rendered, err := rendering.RenderSection(outcome.Final.Section)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd, tailorSectionOut, []byte(rendered)); err != nil {
		return err
	}
	if !outcome.Accepted() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: best attempt still has %d validation error(s)\n", len(outcome.Final.Validation.Errors))
	}
	return nil
}
