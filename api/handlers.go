package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/poiesic/clinroute/conversation"
	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/pipeline"
	"github.com/poiesic/clinroute/storage"
)

type queryRequest struct {
	Query string `json:"query" validate:"required,min=1,max=2000"`
}

type createThreadRequest struct {
	Title string `json:"title" validate:"omitempty,max=255"`
}

type renameThreadRequest struct {
	Title string `json:"title" validate:"required,min=1,max=255"`
}

type queryResponse struct {
	ThreadID     string            `json:"thread_id,omitempty"`
	Route        core.Route        `json:"route"`
	Response     string            `json:"response"`
	ToolsResults []core.ToolRecord `json:"tools_results"`
	OrgsResults  []core.OrgRecord  `json:"orgs_results"`
	Confidence   core.Confidence   `json:"confidence"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newQueryResponse(state core.PipelineState) queryResponse {
	return queryResponse{
		ThreadID:     state.ThreadID,
		Route:        state.Route,
		Response:     state.Response,
		ToolsResults: state.ToolsResults,
		OrgsResults:  state.OrgsResults,
		Confidence:   state.Confidence,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": ServiceName})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[queryRequest](s, w, r)
	if !ok {
		return
	}
	state, err := s.runner.Invoke(r.Context(), core.NewPipelineState(req.Query))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newQueryResponse(state))
}

func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[queryRequest](s, w, r)
	if !ok {
		return
	}
	if err := core.ValidateQuery(req.Query); err != nil {
		s.writeError(w, err)
		return
	}
	s.streamEvents(w, r, s.runner.Stream(r.Context(), core.NewPipelineState(req.Query)))
}

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := s.conversations.ListThreads(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, threads)
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	req := createThreadRequest{}
	// An empty body creates a thread with the default title
	if r.ContentLength != 0 {
		var ok bool
		if req, ok = decode[createThreadRequest](s, w, r); !ok {
			return
		}
	}
	thread, err := s.conversations.CreateThread(r.Context(), req.Title)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, thread)
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	thread, err := s.conversations.GetThread(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

func (s *Server) handleRenameThread(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[renameThreadRequest](s, w, r)
	if !ok {
		return
	}
	thread, err := s.conversations.RenameThread(r.Context(), chi.URLParam(r, "id"), req.Title)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	if err := s.conversations.DeleteThread(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleThreadQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[queryRequest](s, w, r)
	if !ok {
		return
	}
	state, err := s.conversations.Ask(r.Context(), chi.URLParam(r, "id"), req.Query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newQueryResponse(state))
}

func (s *Server) handleThreadQueryStream(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[queryRequest](s, w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := core.ValidateQuery(req.Query); err != nil {
		s.writeError(w, err)
		return
	}
	// Report a missing thread as 404 before the stream starts
	if _, err := s.conversations.GetThread(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.streamEvents(w, r, s.conversations.AskStream(r.Context(), id, req.Query))
}

// decode reads and validates a JSON body. On failure it writes a 422
// response and returns false.
func decode[T any](s *Server, w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid request body"})
		return v, false
	}
	if err := s.validate.Struct(v); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: validationMessage(err)})
		return v, false
	}
	return v, true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, field+" must be at least "+fe.Param()+" characters")
		case "max":
			msgs = append(msgs, field+" must be at most "+fe.Param()+" characters")
		default:
			msgs = append(msgs, field+" failed "+fe.Tag()+" validation")
		}
	}
	return strings.Join(msgs, "; ")
}

// writeError maps domain errors to status codes: validation failures are
// 422, missing threads 404, everything else 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidQuery),
		errors.Is(err, core.ErrInvalidTitle),
		errors.Is(err, pipeline.ErrInvalidState):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, conversation.ErrThreadNotFound), errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Thread not found"})
	default:
		s.logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
