// Package protocol parses the controller's HTTP-like request protocol one
// buffered line at a time. Only the method is extracted; headers and body
// are consumed and discarded.
package protocol

// State is the position of the parser within a request.
type State int

const (
	StateEmpty State = iota
	StateAwaitingRequestLine
	StateInHeaders
	StateInBody
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAwaitingRequestLine:
		return "awaiting_request_line"
	case StateInHeaders:
		return "in_headers"
	case StateInBody:
		return "in_body"
	default:
		return "invalid"
	}
}

// ApiCall is the decoded request method.
type ApiCall int

const (
	CallNone ApiCall = iota
	CallGet
	CallPut
	CallDelete
)

func (c ApiCall) String() string {
	switch c {
	case CallNone:
		return "NONE"
	case CallGet:
		return "GET"
	case CallPut:
		return "PUT"
	case CallDelete:
		return "DELETE"
	default:
		return "INVALID"
	}
}

// Request is the per-connection parse state. The zero value is an empty
// request waiting for its first line.
type Request struct {
	State State
	Call  ApiCall
}

// Reset returns the request to StateEmpty with no decoded call.
func (r *Request) Reset() {
	r.State = StateEmpty
	r.Call = CallNone
}

// LineReader is the subset of the socket the parser consumes.
type LineReader interface {
	HasCompleteLine() bool
	MatchesPrefix(text string) bool
	DiscardLine()
	IsBlankLine() bool
	BytesAvailable() int
}

// methods are tried in order against each candidate request line.
var methods = []struct {
	prefix string
	call   ApiCall
}{
	{"GET ", CallGet},
	{"PUT ", CallPut},
	{"DELETE ", CallDelete},
}
