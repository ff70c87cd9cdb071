package router

import (
	"github.com/jaimegago/toolrouter/internal/llm"
	"github.com/jaimegago/toolrouter/internal/tools"
)

// State is the phase of a routing run
type State string

const (
	// StateAwaitingModel is both the initial and the terminal state
	StateAwaitingModel   State = "AWAITING_MODEL"
	StateDispatchingTool State = "DISPATCHING_TOOL"
)

// Dispatch records one tool call made during a run
type Dispatch struct {
	Iteration int             `json:"iteration"`
	CallID    string          `json:"call_id"`
	Tool      string          `json:"tool"`
	Args      map[string]any  `json:"args"`
	Result    any             `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Kind      tools.ErrorKind `json:"kind,omitempty"`
}

// Failed reports whether the dispatch produced an error
func (d Dispatch) Failed() bool {
	return d.Kind != tools.KindNone
}

// Result is the outcome of a completed run
type Result struct {
	// Final is the tool-call-free assistant message that ended the run
	Final      llm.Message
	Dispatches []Dispatch
	Iterations int
	Usage      llm.TokenUsage
}

// Answer returns the final text
func (r *Result) Answer() string {
	return r.Final.Content
}

func newDispatch(iteration int, res tools.ToolCallResult) Dispatch {
	d := Dispatch{
		Iteration: iteration,
		CallID:    res.ID,
		Tool:      res.Name,
		Args:      res.Args,
		Result:    res.Result,
		Kind:      res.Kind,
	}
	if res.Error != nil {
		d.Error = res.Error.Error()
	}
	return d
}
