package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/section-tailor/internal/ingestion"
	"github.com/jonathan/section-tailor/internal/keywords"
	"github.com/jonathan/section-tailor/internal/rendering"
	"github.com/jonathan/section-tailor/internal/tailoring"
	"github.com/jonathan/section-tailor/internal/types"
	"github.com/jonathan/section-tailor/internal/validation"
)

const defaultTopKeywords = 8

type keywordsRequest struct {
	Text string `json:"text" validate:"required"`
	TopN int    `json:"top_n" validate:"gte=0,lte=100"`
}

type keywordsResponse struct {
	Keywords []types.Keyword `json:"keywords"`
}

// sectionRequest carries one section plus the job it is judged against.
// The job comes either inline or as a posting URL.
type sectionRequest struct {
	Kind           string             `json:"kind" validate:"required"`
	Markup         string             `json:"markup" validate:"required"`
	JobDescription string             `json:"job_description" validate:"required_without=JobURL"`
	JobURL         string             `json:"job_url" validate:"omitempty,url"`
	TopN           int                `json:"top_n" validate:"gte=0,lte=100"`
	Metadata       *types.JobMetadata `json:"metadata,omitempty"`
}

type validateResponse struct {
	Kind       types.SectionKind       `json:"kind"`
	Section    *types.Section          `json:"section"`
	Keywords   []types.Keyword         `json:"keywords"`
	Validation *types.ValidationResult `json:"validation"`
}

type tailorResponse struct {
	Accepted bool           `json:"accepted"`
	Markup   string         `json:"markup"`
	Outcome  *types.Outcome `json:"outcome"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	var req keywordsRequest
	if err := s.decode(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	kws := keywords.Extract(req.Text, s.topN(req.TopN))
	if kws == nil {
		kws = []types.Keyword{}
	}
	s.jsonResponse(w, http.StatusOK, keywordsResponse{Keywords: kws})
}

func (s *Server) handleValidateSection(w http.ResponseWriter, r *http.Request) {
	var req sectionRequest
	if err := s.decode(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	kind, err := types.ParseSectionKind(req.Kind)
	if err != nil {
		s.errorResponse(w, r, &RequestError{Message: err.Error()})
		return
	}
	if err := s.checkTopN(kind, req.TopN); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	section, err := rendering.ParseSection(req.Markup, kind)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	jd, err := s.jobDescription(r.Context(), &req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	result, err := validation.ValidateSection(section, jd, s.rules)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, validateResponse{
		Kind:       kind,
		Section:    section,
		Keywords:   jd.Keywords,
		Validation: result,
	})
}

func (s *Server) handleTailorSection(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.tailor(w, r, nil)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	resp, err := newTailorResponse(outcome)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// tailor decodes a section request and runs one orchestrator session for it.
// hook, when set, sees every state transition of the session.
func (s *Server) tailor(w http.ResponseWriter, r *http.Request, hook tailoring.TransitionHook) (*types.Outcome, error) {
	var req sectionRequest
	if err := s.decode(w, r, &req); err != nil {
		return nil, err
	}
	kind, err := types.ParseSectionKind(req.Kind)
	if err != nil {
		return nil, &RequestError{Message: err.Error()}
	}
	if err := s.checkTopN(kind, req.TopN); err != nil {
		return nil, err
	}

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	jd, err := s.jobDescription(ctx, &req)
	if err != nil {
		return nil, err
	}

	opts := []tailoring.Option{
		tailoring.WithLogger(s.logger),
		tailoring.WithRetryGenerator(s.cfg.RetryGenerator),
	}
	if hook != nil {
		opts = append(opts, tailoring.WithTransitionHook(hook))
	}
	orch, err := tailoring.New(s.cfg.Generator, s.rules, opts...)
	if err != nil {
		return nil, err
	}
	return orch.Run(ctx, tailoring.Request{Kind: kind, OldSection: req.Markup, Job: jd})
}

func newTailorResponse(outcome *types.Outcome) (*tailorResponse, error) {
	resp := &tailorResponse{Accepted: outcome.Accepted(), Outcome: outcome}
	if outcome.Final.Section != nil {
		markup, err := rendering.RenderSection(outcome.Final.Section)
		if err != nil {
			return nil, err
		}
		resp.Markup = markup
	}
	return resp, nil
}

// jobDescription builds the JobDescription of a request: text from the body
// or the posting URL, ranked keywords, and metadata when supplied or analyzable.
func (s *Server) jobDescription(ctx context.Context, req *sectionRequest) (*types.JobDescription, error) {
	text := ingestion.CleanText(req.JobDescription)
	if text == "" && req.JobURL != "" {
		var err error
		text, _, err = ingestion.IngestFromURL(ctx, s.fetcher, req.JobURL)
		if err != nil {
			return nil, err
		}
	}
	if text == "" {
		return nil, ingestion.ErrEmptyContent
	}

	jd := keywords.ForJob(text, s.topN(req.TopN))
	switch {
	case req.Metadata != nil:
		jd.Metadata = req.Metadata
	case s.cfg.Analyzer != nil:
		meta, err := s.cfg.Analyzer.Analyze(ctx, text)
		if err != nil {
			return nil, err
		}
		jd.Metadata = meta
	}
	return jd, nil
}

func (s *Server) topN(requested int) int {
	switch {
	case requested > 0:
		return requested
	case s.cfg.TopKeywords > 0:
		return s.cfg.TopKeywords
	default:
		return defaultTopKeywords
	}
}

// checkTopN rejects a keyword count smaller than the one the kind is scored against,
// which would make the keyword coverage rule impossible to meet.
func (s *Server) checkTopN(kind types.SectionKind, requested int) error {
	if requested <= 0 {
		return nil
	}
	rs, err := s.rules.For(kind)
	if err != nil {
		return err
	}
	if requested < rs.TopKeywords {
		return &RequestError{
			Message: fmt.Sprintf("top_n %d is below the %d keywords %s sections are scored against", requested, rs.TopKeywords, kind),
			Fields:  []string{"top_n failed gte"},
		}
	}
	return nil
}

// decode reads a JSON body into dst and validates its tags.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &RequestError{Message: "request body too large", Cause: err}
		}
		return &RequestError{Message: "invalid JSON body", Cause: err}
	}
	if err := s.validate.Struct(dst); err != nil {
		return newValidationError(err)
	}
	return nil
}
