package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/section-tailor/internal/config"
	"github.com/jonathan/section-tailor/internal/rendering"
	"github.com/jonathan/section-tailor/internal/types"
	"github.com/jonathan/section-tailor/internal/validation"
)

// errSectionRejected makes the command exit non-zero after printing the result.
var errSectionRejected = errors.New("section did not pass validation")

var validateSectionCmd = &cobra.Command{
	Use:   "validate-section",
	Short: "Check one section against the rule tables",
	Long: `Parses one section (from --in, or extracted from the document given with --resume)
and validates it against the job description. Prints the validation result as JSON
and exits non-zero when the section has errors.`,
	RunE: runValidateSection,
}

var (
	validateKind    string
	validateIn      string
	validateResume  string
	validateJob     string
	validateOut     string
	validateAnalyze bool
)

func init() {
	validateSectionCmd.Flags().StringVarP(&validateKind, "kind", "k", "", "Section kind: summary, experience or skills (required)")
	validateSectionCmd.Flags().StringVarP(&validateIn, "in", "i", "", "File holding only the section markup")
	validateSectionCmd.Flags().StringVarP(&validateResume, "resume", "r", "", "Whole LaTeX document to extract the section from")
	validateSectionCmd.Flags().StringVarP(&validateJob, "job", "j", "", "Job description path, URL or - for stdin (required)")
	validateSectionCmd.Flags().StringVarP(&validateOut, "out", "o", "", "Write the result JSON here instead of stdout")
	validateSectionCmd.Flags().BoolVar(&validateAnalyze, "analyze", false, "Derive job metadata for the semantic checks (heuristics only)")

	if err := validateSectionCmd.MarkFlagRequired("kind"); err != nil {
		panic(fmt.Sprintf("failed to mark kind flag as required: %v", err))
	}

	rootCmd.AddCommand(validateSectionCmd)
}

func runValidateSection(cmd *cobra.Command, _ []string) error {
	kind, err := types.ParseSectionKind(validateKind)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(config.Config{Job: validateJob, AnalyzeMetadata: validateAnalyze})
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	rules, err := cfg.BuildRules()
	if err != nil {
		return err
	}
	markup, err := sectionMarkup(validateIn, validateResume, kind)
	if err != nil {
		return err
	}
	section, err := rendering.ParseSection(markup, kind)
	if err != nil {
		return err
	}
	jd, err := jobDescription(cmd.Context(), cmd, cfg, nil, logger)
	if err != nil {
		return err
	}

	result, err := validation.ValidateSection(section, jd, rules)
	if err != nil {
		return err
	}
	if p := newPrinter(cmd, cfg); p != nil {
		p.PrintValidation(kind, result)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := writeOutput(cmd, validateOut, append(data, '\n')); err != nil {
		return err
	}
	if !result.Passed {
		return fmt.Errorf("%w: %d error(s), score %d", errSectionRejected, len(result.Errors), result.Score)
	}
	return nil
}
