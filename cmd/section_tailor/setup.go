package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/section-tailor/internal/config"
	"github.com/jonathan/section-tailor/internal/fetch"
	"github.com/jonathan/section-tailor/internal/ingestion"
	"github.com/jonathan/section-tailor/internal/keywords"
	"github.com/jonathan/section-tailor/internal/llm"
	"github.com/jonathan/section-tailor/internal/observability"
	"github.com/jonathan/section-tailor/internal/parsing"
	"github.com/jonathan/section-tailor/internal/rendering"
	"github.com/jonathan/section-tailor/internal/types"
)

// newClient is swapped in tests.
var newClient = llm.NewClient

// loadConfig merges, in increasing precedence, the --config file, the
// command's flag values and the environment, then validates the result.
func loadConfig(flags config.Config) (config.Config, error) {
	flags.Rules = firstNonEmpty(flags.Rules, globalRules)
	flags.Strictness = firstNonEmpty(flags.Strictness, globalStrictness)
	flags.Verbose = flags.Verbose || globalVerbose

	cfg := flags
	if globalConfigPath != "" {
		fileCfg, err := config.LoadConfig(globalConfigPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = flags.MergeWithDefaults(*fileCfg)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// newLogger writes text logs to stderr; verbose lowers the level to debug.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newPrinter(cmd *cobra.Command, cfg config.Config) *observability.Printer {
	if !cfg.Verbose {
		return nil
	}
	return observability.NewPrinter(cmd.ErrOrStderr())
}

// generation bundles the client and the two generator tiers built from config.
type generation struct {
	client llm.Client
	gen    *llm.Generator
	retry  *llm.Generator
}

func (g *generation) Close() {
	if g.client != nil {
		_ = g.client.Close()
	}
}

func newGeneration(ctx context.Context, cfg config.Config, logger *slog.Logger) (*generation, error) {
	llmCfg, apiKey, err := cfg.LLMConfig()
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no API key for provider %s: set GEMINI_API_KEY or ANTHROPIC_API_KEY", llmCfg.Provider)
	}
	client, err := newClient(ctx, llmCfg, apiKey, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return &generation{
		client: client,
		gen:    llm.NewGenerator(client, llm.TierStandard),
		retry:  llm.NewGenerator(client, llm.TierAdvanced),
	}, nil
}

func newFetcher(cfg config.Config, logger *slog.Logger) *fetch.Fetcher {
	fc := fetch.FetcherConfig{Logger: logger}
	if cfg.TimeoutSeconds > 0 {
		opts := fetch.DefaultOptions()
		opts.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		fc.Options = opts
	}
	if cfg.UseBrowser {
		fc.Render = fetch.BrowserRenderer(0, logger)
	}
	return fetch.NewFetcher(fc)
}

// jobDescription ingests the job source and ranks its keywords. Metadata is
// analyzed when requested, with the model when a client is given.
func jobDescription(ctx context.Context, cmd *cobra.Command, cfg config.Config, client llm.Client, logger *slog.Logger) (*types.JobDescription, error) {
	if cfg.Job == "" {
		return nil, fmt.Errorf("--job is required (path, URL or - for stdin)")
	}
	text, _, err := ingestion.Ingest(ctx, cfg.Job, ingestion.Options{
		Fetcher: newFetcher(cfg, logger),
		Stdin:   cmd.InOrStdin(),
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read job description: %w", err)
	}
	jd := keywords.ForJob(text, cfg.KeywordCount())
	if cfg.AnalyzeMetadata {
		jd.Metadata, err = parsing.NewAnalyzer(client, logger).Analyze(ctx, text)
		if err != nil {
			return nil, err
		}
	}
	return jd, nil
}

// sectionMarkup reads one section either from a file holding just the
// section or by extracting it from a whole document.
func sectionMarkup(inPath, docPath string, kind types.SectionKind) (string, error) {
	switch {
	case inPath != "" && docPath != "":
		return "", fmt.Errorf("--in and --resume are mutually exclusive")
	case inPath != "":
		data, err := os.ReadFile(inPath)
		if err != nil {
			return "", fmt.Errorf("failed to read section: %w", err)
		}
		return string(data), nil
	case docPath != "":
		data, err := os.ReadFile(docPath)
		if err != nil {
			return "", fmt.Errorf("failed to read document: %w", err)
		}
		return rendering.ExtractSection(string(data), kind)
	default:
		return "", fmt.Errorf("one of --in or --resume is required")
	}
}

// writeOutput writes data to path, or to the command's stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
