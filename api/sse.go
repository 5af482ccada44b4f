package api

import (
	"encoding/json"
	"fmt"
	"iter"
	"net/http"

	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/pipeline"
)

// streamDone terminates a successful event stream.
const streamDone = "[DONE]"

type stageEvent struct {
	Node string             `json:"node"`
	Data core.PipelineState `json:"data"`
}

// streamEvents relays pipeline events as server-sent events. Each stage is
// an "event: message" frame; success ends with "data: [DONE]" and failure
// with an "event: error" frame instead. A client disconnect cancels the
// request context, which stops the pipeline.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, events iter.Seq[pipeline.Event]) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	send := func(event string, payload any) bool {
		data, err := json.Marshal(payload)
		if err != nil {
			s.logger.Error("error encoding event", "err", err)
			return false
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return false
		}
		if flusher != nil {
			flusher.Flush()
		}
		return true
	}

	for ev := range events {
		if ev.Err != nil {
			s.logger.Warn("stream failed", "stage", ev.Stage, "err", ev.Err)
			send("error", errorResponse{Error: ev.Err.Error()})
			return
		}
		if !send("message", stageEvent{Node: ev.Stage, Data: ev.State}) {
			return
		}
	}
	if r.Context().Err() != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", streamDone)
	if flusher != nil {
		flusher.Flush()
	}
}
