// Package linesock exposes a single TCP endpoint as a line-buffered,
// poll-only socket. No operation waits for the network.
package linesock

// State is the lifecycle of the single connection slot.
type State int

const (
	Closed State = iota
	Listening
	Established
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Listening:
		return "listening"
	case Established:
		return "established"
	default:
		return "unknown"
	}
}

// Socket is the line-oriented view of one connection slot.
type Socket interface {
	State() State
	OpenListening(port int) error
	// HasCompleteLine reports whether a newline-terminated line is buffered.
	HasCompleteLine() bool
	// MatchesPrefix reports whether the current line starts with text and,
	// if so, consumes text. The rest of the line stays buffered.
	MatchesPrefix(text string) bool
	// DiscardLine drops the current line including its terminator.
	DiscardLine()
	// IsBlankLine reports whether the current complete line is empty.
	IsBlankLine() bool
	BytesAvailable() int
	WriteText(s string)
	WriteRaw(b byte)
	Close()
}
