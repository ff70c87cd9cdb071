package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/jaimegago/toolrouter/internal/router"
)

const maxBodyBytes = 1 << 20

// ChatRequest is the body of POST /api/v1/chat
type ChatRequest struct {
	Text string `json:"text"`
}

// ChatResponse is returned to clients that accept JSON
type ChatResponse struct {
	Answer     string            `json:"answer"`
	Dispatches []router.Dispatch `json:"dispatches"`
	Iterations int               `json:"iterations"`
}

func decodeText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body is empty")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		}
		return "", false
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return "", false
	}
	return req.Text, true
}

// handleChat runs one stateless conversation and answers in plain text, or
// in JSON with the dispatch record when the client asks for it.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	text, ok := decodeText(w, r)
	if !ok {
		return
	}

	conv := router.NewConversation()
	conv.AddUserText(text)
	res, err := s.router.Invoke(r.Context(), conv)
	if err != nil {
		status := routerErrorStatus(err)
		s.logger.Error("chat_failed", "error", err, "status", status)
		writeError(w, status, err.Error())
		return
	}

	s.logger.Info("chat",
		"iterations", res.Iterations,
		"dispatches", len(res.Dispatches),
		"tokens", res.Usage.TotalTokens,
	)

	if wantsJSON(r) {
		dispatches := res.Dispatches
		if dispatches == nil {
			dispatches = []router.Dispatch{}
		}
		writeJSON(w, http.StatusOK, ChatResponse{
			Answer:     res.Answer(),
			Dispatches: dispatches,
			Iterations: res.Iterations,
		})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, res.Answer())
}

// routerErrorStatus maps model failures to 502 and everything else to 500
func routerErrorStatus(err error) int {
	switch {
	case errors.Is(err, router.ErrModel):
		return http.StatusBadGateway
	case errors.Is(err, router.ErrNoUserMessage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func wantsJSON(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mt == "application/json" {
			return true
		}
	}
	return false
}
