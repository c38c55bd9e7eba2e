package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/section-tailor/internal/fetch"
)

var (
	// ErrHTTPRequestFailed is returned when the posting could not be fetched
	ErrHTTPRequestFailed = errors.New("HTTP request failed")
	// ErrEmptyContent is returned when a source yields no text after cleaning
	ErrEmptyContent = errors.New("job description is empty")
)

// IngestFromURL fetches a job posting, reduces it to text and cleans it.
// The fetcher decides on platform selectors, caching and the browser fallback.
func IngestFromURL(ctx context.Context, fetcher *fetch.Fetcher, urlStr string) (string, *Metadata, error) {
	if fetcher == nil {
		fetcher = fetch.NewFetcher(fetch.FetcherConfig{})
	}

	result, err := fetcher.Posting(ctx, urlStr)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrHTTPRequestFailed, err)
	}

	cleanedText := CleanText(result.Text)
	metadata := NewMetadata(cleanedText, urlStr)
	metadata.Source = SourceURL
	metadata.Platform = string(result.Platform)
	metadata.Rendered = result.Rendered
	return cleanedText, metadata, nil
}
