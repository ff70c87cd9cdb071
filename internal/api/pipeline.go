package api

import (
	"errors"
	"net/http"

	"github.com/jaimegago/toolrouter/internal/pipeline"
)

// TranslateResponse is returned by POST /api/v1/translate
type TranslateResponse struct {
	Translation string `json:"translation"`
	Source      string `json:"source"`
	Target      string `json:"target"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if s.translator == nil {
		writeError(w, http.StatusServiceUnavailable, "translation pipeline not configured")
		return
	}
	text, ok := decodeText(w, r)
	if !ok {
		return
	}

	out, err := s.translator.Translate(r.Context(), text)
	if err != nil {
		s.pipelineError(w, "translate", err)
		return
	}
	src, dst := s.translator.Languages()
	writeJSON(w, http.StatusOK, TranslateResponse{Translation: out, Source: src, Target: dst})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if s.summarizer == nil {
		writeError(w, http.StatusServiceUnavailable, "summarization pipeline not configured")
		return
	}
	text, ok := decodeText(w, r)
	if !ok {
		return
	}

	out, err := s.summarizer.Summarize(r.Context(), text)
	if err != nil {
		s.pipelineError(w, "summarize", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) pipelineError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, pipeline.ErrEmptyInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("pipeline_failed", "pipeline", op, "error", err)
	writeError(w, http.StatusBadGateway, err.Error())
}
