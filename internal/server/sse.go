package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/section-tailor/internal/tailoring"
)

// SSEWriter writes Server-Sent Events
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

// NewSSEWriter wraps w. Headers are sent with the first event.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming not supported")
	}
	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends one named event with a JSON payload
func (s *SSEWriter) WriteEvent(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Started reports whether any event has been written.
func (s *SSEWriter) Started() bool {
	return s.started
}

type transitionEvent struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	From      string `json:"from"`
	To        string `json:"to"`
	Attempt   int    `json:"attempt"`
}

// handleTailorStream runs a tailoring session and streams its state
// transitions as "transition" events, ending with "outcome" or "error".
// Failures before the first event get a plain JSON error response instead.
func (s *Server) handleTailorStream(w http.ResponseWriter, r *http.Request) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	outcome, err := s.tailor(w, r, func(t tailoring.Transition) {
		ev := transitionEvent{
			SessionID: t.SessionID,
			Kind:      string(t.Kind),
			From:      string(t.From),
			To:        string(t.To),
			Attempt:   t.Attempt,
		}
		if werr := sse.WriteEvent("transition", ev); werr != nil {
			s.logger.Debug("stream write failed", "error", werr)
		}
	})
	if err != nil {
		if !sse.Started() {
			s.errorResponse(w, r, err)
			return
		}
		sse.WriteEvent("error", errorBody{Error: errorCode(err), Message: err.Error()}) //nolint:errcheck
		return
	}

	resp, err := newTailorResponse(outcome)
	if err != nil {
		sse.WriteEvent("error", errorBody{Error: errorCode(err), Message: err.Error()}) //nolint:errcheck
		return
	}
	sse.WriteEvent("outcome", resp) //nolint:errcheck
}
