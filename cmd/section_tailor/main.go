// Package main provides the section_tailor CLI: keyword extraction, section
// validation and tailoring, whole-document runs, compilation and the HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "section_tailor",
	Short: "Tailor LaTeX resume sections to a job description",
	Long: `section_tailor rewrites the Summary, Experience and Skills sections of a LaTeX
resume for one job description. Every generated section is checked against
deterministic rules (bullet counts, character ranges, keyword coverage) and
regenerated once with the violations when it fails.

Configuration comes from --config (JSON), command-line flags and the
environment (.env is loaded when present). Flags override the file and
environment variables override both.`,
	SilenceUsage: true,
}

var (
	globalConfigPath string
	globalRules      string
	globalStrictness string
	globalVerbose    bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalConfigPath, "config", "", "Path to config.json")
	pf.StringVar(&globalRules, "rules", "", "Path to a YAML file overriding rule tables")
	pf.StringVar(&globalStrictness, "strictness", "", "Rule strictness: lenient, standard or strict")
	pf.BoolVarP(&globalVerbose, "verbose", "v", false, "Print debug logs and detailed result boxes")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
