package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jaimegago/toolrouter/internal/router"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSRequest is a client frame on the chat websocket.
// Type is "message" (default) or "reset".
type WSRequest struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

// WSEvent is a server frame on the chat websocket
type WSEvent struct {
	Type       string           `json:"type"` // "dispatch", "answer", "error", "reset"
	Session    string           `json:"session"`
	Dispatch   *router.Dispatch `json:"dispatch,omitempty"`
	Answer     string           `json:"answer,omitempty"`
	Iterations int              `json:"iterations,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// handleChatWS keeps one conversation per connection. Each user frame runs
// the routing loop; dispatches are streamed as they happen and the turn ends
// with an answer or error event.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	logger := s.logger.With("session", sessionID)
	logger.Info("ws_session_started")
	defer logger.Info("ws_session_closed")

	conv := router.NewConversation()
	conv.MaxMessages = s.maxHistory

	send := func(evt WSEvent) error {
		evt.Session = sessionID
		return conn.WriteJSON(evt)
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req WSRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			if send(WSEvent{Type: "error", Error: "invalid frame: " + err.Error()}) != nil {
				return
			}
			continue
		}

		if req.Type == "reset" {
			conv.Clear()
			if send(WSEvent{Type: "reset"}) != nil {
				return
			}
			continue
		}

		if strings.TrimSpace(req.Text) == "" {
			if send(WSEvent{Type: "error", Error: "text is required"}) != nil {
				return
			}
			continue
		}

		// A failed turn leaves the history as it was before the turn
		cp := conv.Checkpoint()
		conv.AddUserText(req.Text)

		var writeErr error
		res, err := s.router.Invoke(r.Context(), conv, router.WithDispatchHook(func(d router.Dispatch) {
			if writeErr == nil {
				writeErr = send(WSEvent{Type: "dispatch", Dispatch: &d})
			}
		}))
		if writeErr != nil {
			return
		}
		if err != nil {
			conv.Rollback(cp)
			logger.Warn("ws_turn_failed", "error", err)
			if send(WSEvent{Type: "error", Error: err.Error()}) != nil {
				return
			}
			continue
		}

		if send(WSEvent{Type: "answer", Answer: res.Answer(), Iterations: res.Iterations}) != nil {
			return
		}
	}
}
