// Package ingestion turns a job description source (a file, a URL or
// standard input) into cleaned text plus provenance metadata.
package ingestion

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jonathan/section-tailor/internal/fetch"
)

// StdinSource is the source name that selects standard input.
const StdinSource = "-"

// Options configures Ingest.
type Options struct {
	Fetcher *fetch.Fetcher
	Stdin   io.Reader
	Logger  *slog.Logger
}

// KindOf reports how a source string would be read.
func KindOf(source string) SourceKind {
	switch {
	case source == StdinSource:
		return SourceStdin
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return SourceURL
	default:
		return SourceFile
	}
}

// Ingest reads a job description from source and cleans it.
func Ingest(ctx context.Context, source string, opts Options) (string, *Metadata, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		text string
		meta *Metadata
		err  error
	)
	switch KindOf(source) {
	case SourceStdin:
		in := opts.Stdin
		if in == nil {
			in = os.Stdin
		}
		text, meta, err = IngestFromReader(in)
	case SourceURL:
		text, meta, err = IngestFromURL(ctx, opts.Fetcher, source)
	default:
		text, meta, err = IngestFromFile(source)
	}
	if err != nil {
		return "", nil, err
	}
	if text == "" {
		return "", nil, ErrEmptyContent
	}

	logger.Info("ingested job description", "source", meta.Source, "chars", len(text), "hash", meta.Hash[:12])
	return text, meta, nil
}
