package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/section-tailor/internal/config"
	"github.com/jonathan/section-tailor/internal/parsing"
	"github.com/jonathan/section-tailor/internal/server"
	"github.com/jonathan/section-tailor/internal/server/ratelimit"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serves GET /health, POST /v1/keywords, POST /v1/sections/validate,
POST /v1/sections/tailor and POST /v1/sections/tailor/stream until interrupted.
Rate limits come from RATE_LIMIT_* environment variables.`,
	RunE: runServe,
}

var (
	serveAddr           string
	serveProvider       string
	serveModel          string
	serveAnalyze        bool
	serveUseBrowser     bool
	serveRequestTimeout time.Duration
)

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveAddr, "addr", "", "Listen address (default :8080)")
	f.StringVar(&serveProvider, "provider", "", "LLM provider: gemini or anthropic")
	f.StringVar(&serveModel, "model", "", "Model name used for every tier")
	f.BoolVar(&serveAnalyze, "analyze", false, "Analyze job metadata when requests carry none")
	f.BoolVar(&serveUseBrowser, "use-browser", false, "Render script-heavy job pages in headless Chrome")
	f.DurationVar(&serveRequestTimeout, "request-timeout", 2*time.Minute, "Deadline for one tailoring request")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(config.Config{
		Addr:            serveAddr,
		Provider:        serveProvider,
		Model:           serveModel,
		AnalyzeMetadata: serveAnalyze,
		UseBrowser:      serveUseBrowser,
	})
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
	rules, err := cfg.BuildRules()
	if err != nil {
		return err
	}
	rl, err := ratelimit.LoadConfig(os.Getenv)
	if err != nil {
		return err
	}

	g, err := newGeneration(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer g.Close()

	srvCfg := server.Config{
		Addr:           cfg.Addr,
		Generator:      g.gen,
		RetryGenerator: g.retry,
		Rules:          rules,
		TopKeywords:    cfg.KeywordCount(),
		Fetcher:        newFetcher(cfg, logger),
		RateLimit:      &rl,
		RequestTimeout: serveRequestTimeout,
		Logger:         logger,
	}
	if cfg.AnalyzeMetadata {
		srvCfg.Analyzer = parsing.NewAnalyzer(g.client, logger)
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s\n", firstNonEmpty(cfg.Addr, server.DefaultAddr))
	return srv.Start(ctx)
}
