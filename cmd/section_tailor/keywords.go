package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/section-tailor/internal/config"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Rank the keywords of a job description",
	Long:  "Reads a job description from a file, a URL or stdin (-) and prints its top-N keywords as JSON.",
	RunE:  runKeywords,
}

var (
	keywordsJob        string
	keywordsTop        int
	keywordsOut        string
	keywordsUseBrowser bool
)

func init() {
	keywordsCmd.Flags().StringVarP(&keywordsJob, "job", "j", "", "Job description path, URL or - for stdin (required)")
	keywordsCmd.Flags().IntVarP(&keywordsTop, "top", "n", 0, "Number of keywords (default from config, else 8)")
	keywordsCmd.Flags().StringVarP(&keywordsOut, "out", "o", "", "Write JSON here instead of stdout")
	keywordsCmd.Flags().BoolVar(&keywordsUseBrowser, "use-browser", false, "Render script-heavy job pages in headless Chrome")

	rootCmd.AddCommand(keywordsCmd)
}

func runKeywords(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(config.Config{Job: keywordsJob, TopKeywords: keywordsTop, UseBrowser: keywordsUseBrowser})
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	jd, err := jobDescription(cmd.Context(), cmd, cfg, nil, logger)
	if err != nil {
		return err
	}
	if p := newPrinter(cmd, cfg); p != nil {
		p.PrintJobDescription(jd)
	}

	data, err := json.MarshalIndent(jd.Keywords, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}
	return writeOutput(cmd, keywordsOut, append(data, '\n'))
}
