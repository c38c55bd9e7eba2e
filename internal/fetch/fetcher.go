package fetch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long a fetched posting is reused.
const DefaultCacheTTL = 15 * time.Minute

// Fetcher retrieves job postings, falling back to a headless browser when
// plain HTTP yields too little text. Successful results are cached in memory
// and concurrent requests for one URL share a single fetch.
type Fetcher struct {
	options *Options
	render  RenderFunc
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	result  *Result
	expires time.Time
}

// FetcherConfig configures a Fetcher. A nil Render disables the browser fallback.
type FetcherConfig struct {
	Options  *Options
	Render   RenderFunc
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// NewFetcher creates a Fetcher. A zero CacheTTL selects DefaultCacheTTL; a
// negative one disables caching.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Options == nil {
		cfg.Options = DefaultOptions()
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Fetcher{
		options: cfg.Options,
		render:  cfg.Render,
		ttl:     cfg.CacheTTL,
		logger:  cfg.Logger,
		now:     time.Now,
		cache:   make(map[string]cacheEntry),
	}
}

// Posting fetches a job posting and extracts its text.
func (f *Fetcher) Posting(ctx context.Context, urlStr string) (*Result, error) {
	if cached := f.lookup(urlStr); cached != nil {
		f.logger.Debug("posting served from cache", "url", urlStr)
		return cached, nil
	}

	v, err, shared := f.group.Do(urlStr, func() (interface{}, error) {
		return f.fetch(ctx, urlStr)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		f.logger.Debug("posting fetch shared with concurrent caller", "url", urlStr)
	}
	result := v.(*Result)
	f.store(urlStr, result)
	return result, nil
}

func (f *Fetcher) fetch(ctx context.Context, urlStr string) (*Result, error) {
	result, err := URL(ctx, urlStr, f.options)
	if err != nil {
		var fetchErr *Error
		// Only transport failures are worth a browser attempt; HTTP error pages are final
		if f.render == nil || !errors.As(err, &fetchErr) || fetchErr.StatusCode != 0 || ctx.Err() != nil {
			return nil, err
		}
		f.logger.Warn("HTTP fetch failed, trying browser", "url", urlStr, "error", err)
		return f.renderPosting(ctx, urlStr, DetectPlatform(urlStr), err)
	}

	text, err := PostingText(result.HTML, result.Platform)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to extract text", Cause: err}
	}
	result.Text = text
	f.logger.Debug("fetched posting", "url", urlStr, "platform", result.Platform, "chars", len(text))

	if f.render != nil && ShouldUseBrowser(text) {
		f.logger.Info("posting text is short, rendering with browser", "url", urlStr, "chars", len(text))
		rendered, renderErr := f.renderPosting(ctx, urlStr, result.Platform, nil)
		if renderErr == nil && len(rendered.Text) > len(text) {
			return rendered, nil
		}
		if renderErr != nil {
			f.logger.Warn("browser rendering failed, keeping HTTP text", "url", urlStr, "error", renderErr)
		}
	}
	return result, nil
}

func (f *Fetcher) renderPosting(ctx context.Context, urlStr string, platform Platform, httpErr error) (*Result, error) {
	html, err := f.render(ctx, urlStr)
	if err != nil {
		if httpErr != nil {
			return nil, httpErr
		}
		return nil, err
	}
	text, err := PostingText(html, platform)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to extract rendered text", Cause: err}
	}
	return &Result{
		URL:        urlStr,
		HTML:       html,
		Text:       text,
		StatusCode: 200,
		Platform:   platform,
		Rendered:   true,
	}, nil
}

func (f *Fetcher) lookup(urlStr string) *Result {
	if f.ttl < 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.cache[urlStr]
	if !ok {
		return nil
	}
	if f.now().After(entry.expires) {
		delete(f.cache, urlStr)
		return nil
	}
	return entry.result
}

func (f *Fetcher) store(urlStr string, result *Result) {
	if f.ttl < 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache[urlStr] = cacheEntry{result: result, expires: f.now().Add(f.ttl)}
}

// Invalidate drops a cached posting so the next request fetches it again.
func (f *Fetcher) Invalidate(urlStr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cache, urlStr)
}
