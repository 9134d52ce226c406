package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SSEWriter frames a Server-Sent-Events response. Unnamed frames carry a
// JSON-encoded payload on a single `data:` line; named frames add an
// `event:` line. Every frame is flushed immediately so deltas reach the
// browser as they are produced.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter prepares w for event streaming and writes the SSE headers.
// It fails if the ResponseWriter does not support flushing.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// Data writes one unnamed frame whose data line is the JSON encoding of v.
func (s *SSEWriter) Data(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode SSE payload: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Event writes one named frame with a JSON-encoded payload.
func (s *SSEWriter) Event(name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode SSE payload: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Done writes the literal terminal sentinel frame.
func (s *SSEWriter) Done() error {
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
