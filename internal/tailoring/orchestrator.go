package tailoring

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jonathan/section-tailor/internal/llm"
	"github.com/jonathan/section-tailor/internal/rendering"
	"github.com/jonathan/section-tailor/internal/types"
	"github.com/jonathan/section-tailor/internal/validation"
)

// Generator is the external text-generation capability
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenerateFunc adapts a plain function to Generator
type GenerateFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f
func (f GenerateFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Request binds the inputs of one session
type Request struct {
	Kind types.SectionKind
	// OldSection is the current markup of the section, parsed before any generation
	OldSection string
	Job        *types.JobDescription
}

// Orchestrator tailors sections. It holds no per-session state and is safe
// for concurrent use; every Run owns its own attempt history.
type Orchestrator struct {
	generator      Generator
	retryGenerator Generator
	rules          validation.Rules
	logger         *slog.Logger
	hook           TransitionHook
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the logger used for state transitions
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTransitionHook registers a callback for every state change
func WithTransitionHook(hook TransitionHook) Option {
	return func(o *Orchestrator) { o.hook = hook }
}

// WithRetryGenerator uses a different generator (typically a stronger model tier) for the corrective attempt
func WithRetryGenerator(g Generator) Option {
	return func(o *Orchestrator) {
		if g != nil {
			o.retryGenerator = g
		}
	}
}

// New creates an Orchestrator. Rules are validated once here.
func New(generator Generator, rules validation.Rules, opts ...Option) (*Orchestrator, error) {
	if generator == nil {
		return nil, &Error{Message: "generator is required"}
	}
	if rules == nil {
		rules = validation.DefaultRules()
	}
	if err := rules.Validate(); err != nil {
		return nil, &Error{Message: "invalid rules", Cause: err}
	}
	o := &Orchestrator{
		generator:      generator,
		retryGenerator: generator,
		rules:          rules,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// session tracks the state of one Run
type session struct {
	o     *Orchestrator
	id    string
	kind  types.SectionKind
	state State
}

func (s *session) enter(to State, attempt int) {
	if !canTransition(s.state, to) {
		s.o.logger.Error("illegal tailoring state transition", "session_id", s.id, "from", s.state, "to", to)
	}
	t := Transition{SessionID: s.id, Kind: s.kind, From: s.state, To: to, Attempt: attempt}
	s.state = to
	s.o.logger.Debug("tailoring state transition",
		"session_id", s.id,
		"kind", s.kind,
		"state", to,
		"attempt", attempt,
	)
	if s.o.hook != nil {
		s.o.hook(t)
	}
}

// Run executes one session. It returns either an Outcome whose final attempt
// is the best one made (passed or not), or an error:
//   - *rendering.ParseError when the old section or a generated section is malformed,
//   - *llm.GenerationError when the generator fails (never retried here),
//   - the context error when the caller gives up at a state boundary.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*types.Outcome, error) {
	s := &session{o: o, id: uuid.NewString(), kind: req.Kind}
	s.enter(StateRequested, 0)

	jd := req.Job
	if jd == nil {
		jd = &types.JobDescription{}
	}
	rs, err := o.rules.For(req.Kind)
	if err != nil {
		return nil, err
	}
	old, err := rendering.ParseSection(req.OldSection, req.Kind)
	if err != nil {
		o.logger.Warn("old section could not be parsed", "session_id", s.id, "kind", req.Kind, "error", err)
		return nil, err
	}
	base, err := buildPrompt(o.logger, req.Kind, req.OldSection, jd, rs)
	if err != nil {
		return nil, err
	}

	attempts := make([]types.GenerationAttempt, 0, MaxAttempts)
	for n := 1; n <= MaxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.enter(StateGenerating, n)

		prompt := base
		generator := o.generator
		if n > 1 {
			prev := attempts[len(attempts)-1]
			prompt, err = buildRetryPrompt(base, prev.RawOutput, prev.Validation.Errors)
			if err != nil {
				return nil, &Error{Message: "failed to build retry prompt", Cause: err}
			}
			generator = o.retryGenerator
		}

		raw, err := generator.Generate(ctx, prompt)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			genErr := llm.Classify(err)
			o.logger.Warn("generation failed", "session_id", s.id, "kind", req.Kind, "attempt", n, "error", genErr)
			return nil, genErr
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		section, err := rendering.ParseSection(llm.CleanLaTeXBlock(raw), req.Kind)
		if err != nil {
			o.logger.Warn("generated section could not be parsed", "session_id", s.id, "kind", req.Kind, "attempt", n, "error", err)
			return nil, err
		}

		s.enter(StateValidating, n)
		result := validation.Validate(section, jd, rs)
		attempts = append(attempts, types.GenerationAttempt{
			Attempt:    n,
			Prompt:     prompt,
			RawOutput:  raw,
			Section:    section,
			Validation: *result,
		})
		o.logger.Info("section attempt validated",
			"session_id", s.id,
			"kind", req.Kind,
			"attempt", n,
			"score", result.Score,
			"passed", result.Passed,
			"errors", len(result.Errors),
		)

		if result.Passed || n == MaxAttempts {
			break
		}
		s.enter(StateRetrying, n)
	}

	final := bestAttempt(attempts)
	s.enter(StateAccepted, final.Attempt)
	o.logger.Info("section accepted",
		"session_id", s.id,
		"kind", req.Kind,
		"attempt", final.Attempt,
		"score", final.Validation.Score,
		"passed", final.Validation.Passed,
		"old_bullets", len(old.Bullets),
		"new_bullets", len(final.Section.Bullets),
	)

	return &types.Outcome{
		SessionID: s.id,
		Kind:      req.Kind,
		Final:     final,
		Attempts:  attempts,
	}, nil
}

// bestAttempt picks the highest score; the later attempt wins ties
func bestAttempt(attempts []types.GenerationAttempt) types.GenerationAttempt {
	best := attempts[0]
	for _, a := range attempts[1:] {
		if a.Validation.Score >= best.Validation.Score {
			best = a
		}
	}
	return best
}
