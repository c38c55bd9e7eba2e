// Package parsing derives structured metadata (hiring company, seniority,
// experience range, leadership expectations) from job description text.
package parsing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/section-tailor/internal/llm"
	"github.com/jonathan/section-tailor/internal/schemas"
	"github.com/jonathan/section-tailor/internal/types"
	"github.com/jonathan/section-tailor/internal/validation"
)

var validate = validator.New()

// Analyzer extracts JobMetadata with the model and falls back to heuristics.
// Results are cached per job description text.
type Analyzer struct {
	client llm.Client
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]*types.JobMetadata
}

// NewAnalyzer creates an Analyzer. A nil client means heuristics only.
func NewAnalyzer(client llm.Client, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{client: client, logger: logger, cache: make(map[string]*types.JobMetadata)}
}

// AnalyzeJobDescription is a one-shot Analyze without caching
func AnalyzeJobDescription(ctx context.Context, text string, client llm.Client, logger *slog.Logger) (*types.JobMetadata, error) {
	return NewAnalyzer(client, logger).Analyze(ctx, text)
}

// Analyze returns metadata for the job description. Model, JSON and
// validation failures are logged and answered with HeuristicMetadata; the
// only error returned is the caller's context error.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*types.JobMetadata, error) {
	key := cacheKey(text)
	a.mu.Lock()
	cached, ok := a.cache[key]
	a.mu.Unlock()
	if ok {
		return cached, nil
	}

	var meta *types.JobMetadata
	if a.client != nil {
		var err error
		meta, err = a.analyzeWithModel(ctx, text)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			a.logger.Warn("job metadata analysis failed, using heuristics", "error", err)
			meta = nil
		}
	}
	if meta == nil {
		meta = HeuristicMetadata(text)
	}

	a.mu.Lock()
	a.cache[key] = meta
	a.mu.Unlock()
	return meta, nil
}

func (a *Analyzer) analyzeWithModel(ctx context.Context, text string) (*types.JobMetadata, error) {
	quoted := validation.GuardExternalContent(a.logger, "job_description", "job description", text)
	prompt := llm.BuildExtractionPrompt(llm.JobMetadataSchema(), quoted)

	// TierLite: extraction needs no deep reasoning
	responseText, err := a.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return nil, &APICallError{Message: "failed to analyze job description", Cause: err}
	}
	return parseMetadataJSON(llm.CleanJSONBlock(responseText))
}

// parseMetadataJSON validates the model's JSON against the schema, decodes
// it, normalizes it and validates the fields
func parseMetadataJSON(jsonText string) (*types.JobMetadata, error) {
	if err := schemas.Validate(schemas.JobMetadataSchema, []byte(jsonText)); err != nil {
		var schemaErr *schemas.ValidationError
		if errors.As(err, &schemaErr) {
			return nil, &ValidationError{Message: "response does not match the metadata schema", Cause: err}
		}
		return nil, &ParseError{Message: "failed to read JSON response", Cause: err}
	}

	var meta types.JobMetadata
	if err := json.Unmarshal([]byte(jsonText), &meta); err != nil {
		return nil, &ParseError{Message: "failed to parse JSON response", Cause: err}
	}

	normalizeMetadata(&meta)

	if err := validate.Struct(&meta); err != nil {
		return nil, &ValidationError{Message: "invalid metadata", Cause: err}
	}
	return &meta, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
