package tools

import "errors"

var (
	// ErrUnknownTool is returned when a call names a tool that is not registered
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArguments is returned when call arguments do not satisfy the tool schema
	ErrInvalidArguments = errors.New("invalid tool arguments")

	// ErrToolFault is returned when a registered tool fails while executing
	ErrToolFault = errors.New("tool execution failed")

	// ErrRemoteUnavailable marks faults caused by an unreachable out-of-process worker
	ErrRemoteUnavailable = errors.New("remote worker unavailable")

	// ErrAllToolsFailed is returned when all tools in a batch fail
	ErrAllToolsFailed = errors.New("all tools in batch failed")
)

// ErrorKind names the class of a dispatch failure
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindUnknownTool       ErrorKind = "unknown_tool"
	KindInvalidArguments  ErrorKind = "invalid_arguments"
	KindToolFault         ErrorKind = "tool_fault"
	KindRemoteUnavailable ErrorKind = "remote_unavailable"
)

// Classify maps a dispatch error onto its kind. Remote unavailability is
// checked before the generic fault since it is also wrapped as one.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnknownTool):
		return KindUnknownTool
	case errors.Is(err, ErrInvalidArguments):
		return KindInvalidArguments
	case errors.Is(err, ErrRemoteUnavailable):
		return KindRemoteUnavailable
	default:
		return KindToolFault
	}
}
