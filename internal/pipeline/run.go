// Package pipeline tailors a whole document: it ingests a job description,
// runs one tailoring session per section concurrently, splices the results
// back and writes the document together with a report.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/section-tailor/internal/compiling"
	"github.com/jonathan/section-tailor/internal/fetch"
	"github.com/jonathan/section-tailor/internal/ingestion"
	"github.com/jonathan/section-tailor/internal/keywords"
	"github.com/jonathan/section-tailor/internal/observability"
	"github.com/jonathan/section-tailor/internal/rendering"
	"github.com/jonathan/section-tailor/internal/tailoring"
	"github.com/jonathan/section-tailor/internal/types"
	"github.com/jonathan/section-tailor/internal/validation"
)

// Output file names inside the output directory
const (
	TailoredFile = "tailored.tex"
	ReportFile   = "report.json"
	PDFFile      = "tailored.pdf"
)

// MetadataAnalyzer derives structured metadata from job description text.
type MetadataAnalyzer interface {
	Analyze(ctx context.Context, text string) (*types.JobMetadata, error)
}

// Options holds configuration for one run.
type Options struct {
	JobSource    string // path, URL or "-"
	ResumePath   string
	OutDir       string
	Rules        validation.Rules
	Strictness   validation.Strictness
	TopKeywords  int
	Kinds        []types.SectionKind // defaults to every kind
	MaxPages     int
	Generator    tailoring.Generator
	RetryGen     tailoring.Generator
	Analyzer     MetadataAnalyzer   // nil skips metadata analysis
	Compiler     compiling.Compiler // nil skips compilation
	Fetcher      *fetch.Fetcher
	Stdin        io.Reader
	OnTransition tailoring.TransitionHook
	Logger       *slog.Logger
	Printer      *observability.Printer // nil disables verbose boxes
}

// Result is what a run produced.
type Result struct {
	Report     *Report
	Document   string
	TexPath    string
	ReportPath string
	PDFPath    string
}

// Run tailors every requested section of the document at ResumePath.
// Section failures are recorded in the report and leave the original markup
// in place; only setup failures, output failures and caller cancellation
// are returned as errors.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Generator == nil {
		return nil, fmt.Errorf("pipeline: generator is required")
	}
	if opts.OutDir == "" {
		return nil, fmt.Errorf("pipeline: output directory is required")
	}
	kinds := opts.Kinds
	if len(kinds) == 0 {
		kinds = types.AllKinds
	}
	topN := opts.TopKeywords
	if topN <= 0 {
		topN = 8
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	docBytes, err := os.ReadFile(opts.ResumePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	doc := string(docBytes)
	if err := rendering.CheckDocumentStructure(doc); err != nil {
		return nil, fmt.Errorf("document is not compilable: %w", err)
	}

	text, meta, err := ingestion.Ingest(ctx, opts.JobSource, ingestion.Options{
		Fetcher: opts.Fetcher,
		Stdin:   opts.Stdin,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("job description ingestion failed: %w", err)
	}

	jd := keywords.ForJob(text, topN)
	if opts.Analyzer != nil {
		jd.Metadata, err = opts.Analyzer.Analyze(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("job description analysis failed: %w", err)
		}
	}
	if opts.Printer != nil {
		opts.Printer.PrintJobDescription(jd)
	}

	orch, err := tailoring.New(opts.Generator, opts.Rules,
		tailoring.WithLogger(logger),
		tailoring.WithRetryGenerator(opts.RetryGen),
		tailoring.WithTransitionHook(opts.OnTransition),
	)
	if err != nil {
		return nil, err
	}

	outcomes, failures := tailorSections(ctx, orch, doc, jd, kinds, logger)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:       runID,
		Source:      opts.JobSource,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Strictness:  string(opts.Strictness),
		Keywords:    jd.Terms(),
		Metadata:    jd.Metadata,
		Sections:    make([]SectionReport, 0, len(kinds)),
		outcomes:    outcomes,
	}

	// Splice in a fixed order so the output does not depend on goroutine timing
	tailored := doc
	for _, kind := range kinds {
		if ferr, failed := failures[kind]; failed {
			report.Sections = append(report.Sections, sectionFromError(kind, ferr))
			continue
		}
		outcome := outcomes[kind]
		entry := sectionFromOutcome(outcome)
		markup, rerr := rendering.RenderSection(outcome.Final.Section)
		if rerr == nil {
			tailored, rerr = rendering.ReplaceSection(tailored, kind, strings.TrimRight(markup, "\n"))
		}
		if rerr != nil {
			logger.Warn("could not splice tailored section, keeping original", "kind", kind, "error", rerr)
			entry = sectionFromError(kind, rerr)
		}
		report.Sections = append(report.Sections, entry)
		if opts.Printer != nil {
			opts.Printer.PrintOutcome(outcome)
		}
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := ingestion.WriteOutput(opts.OutDir, text, meta); err != nil {
		return nil, err
	}

	result := &Result{
		Report:     report,
		Document:   tailored,
		TexPath:    filepath.Join(opts.OutDir, TailoredFile),
		ReportPath: filepath.Join(opts.OutDir, ReportFile),
	}
	if err := os.WriteFile(result.TexPath, []byte(tailored), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write tailored document: %w", err)
	}

	if opts.Compiler != nil {
		report.Compilation, result.PDFPath = compileDocument(ctx, opts.Compiler, tailored, opts.OutDir, opts.MaxPages, logger)
	}

	data, err := report.MarshalValidated()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(result.ReportPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	if opts.Printer != nil {
		opts.Printer.PrintRunSummary(runID, summaryRows(report), []string{result.TexPath, result.ReportPath})
	}
	logger.Info("tailoring run finished", "sections", len(report.Sections), "out_dir", opts.OutDir)
	return result, nil
}

// tailorSections runs one session per section. A failing section never
// cancels its siblings, so every goroutine reports through the maps and returns nil.
func tailorSections(ctx context.Context, orch *tailoring.Orchestrator, doc string, jd *types.JobDescription, kinds []types.SectionKind, logger *slog.Logger) (map[types.SectionKind]*types.Outcome, map[types.SectionKind]error) {
	var (
		mu       sync.Mutex
		outcomes = make(map[types.SectionKind]*types.Outcome, len(kinds))
		failures = make(map[types.SectionKind]error)
	)
	record := func(kind types.SectionKind, outcome *types.Outcome, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failures[kind] = err
			return
		}
		outcomes[kind] = outcome
	}

	var g errgroup.Group
	for _, kind := range kinds {
		g.Go(func() error {
			old, err := rendering.ExtractSection(doc, kind)
			if err != nil {
				logger.Warn("section not found in document", "kind", kind, "error", err)
				record(kind, nil, err)
				return nil
			}
			outcome, err := orch.Run(ctx, tailoring.Request{Kind: kind, OldSection: old, Job: jd})
			if err != nil {
				logger.Warn("section tailoring failed, keeping original", "kind", kind, "error", err)
				record(kind, nil, err)
				return nil
			}
			logger.Info("section tailored",
				"kind", kind,
				"session_id", outcome.SessionID,
				"attempt", outcome.Final.Attempt,
				"score", outcome.Final.Validation.Score,
				"passed", outcome.Final.Validation.Passed,
			)
			record(kind, outcome, nil)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, failures
}

func compileDocument(ctx context.Context, compiler compiling.Compiler, doc, outDir string, maxPages int, logger *slog.Logger) (*CompilationReport, string) {
	report := &CompilationReport{MaxPages: maxPages}

	pdf, err := compiler.Compile(ctx, doc)
	if err != nil {
		logger.Warn("compilation failed", "error", err)
		report.Error = err.Error()
		return report, ""
	}

	pdfPath := filepath.Join(outDir, PDFFile)
	if err := os.WriteFile(pdfPath, pdf, 0o644); err != nil {
		report.Error = fmt.Sprintf("failed to write PDF: %v", err)
		return report, ""
	}

	pages, err := compiling.CountPDFPages(pdfPath)
	if err != nil {
		report.Error = err.Error()
		return report, pdfPath
	}
	report.Pages = pages
	if maxPages > 0 && pages > maxPages {
		report.Error = fmt.Sprintf("document has %d pages, limit is %d", pages, maxPages)
		logger.Warn("page limit exceeded", "pages", pages, "max_pages", maxPages)
		return report, pdfPath
	}
	report.OK = true
	return report, pdfPath
}

func summaryRows(report *Report) []observability.SectionRow {
	rows := make([]observability.SectionRow, len(report.Sections))
	for i, s := range report.Sections {
		attempts := 0
		if o := report.outcomes[s.Kind]; o != nil {
			attempts = len(o.Attempts)
		}
		rows[i] = observability.SectionRow{
			Kind:     s.Kind,
			Status:   string(s.Status),
			Score:    s.Score,
			Attempts: attempts,
			Error:    s.Error,
		}
	}
	return rows
}
