package protocol

import "sensor_node/internal/logger"

// Parser advances a Request over lines already buffered in a LineReader.
// A call to Pump never waits: when it runs out of complete lines it returns
// and the next call resumes where it stopped.
type Parser struct {
	log *logger.Logger
}

func NewParser(log *logger.Logger) *Parser {
	return &Parser{log: logger.OrNop(log)}
}

// Pump performs one state transition's worth of work on req.
func (p *Parser) Pump(in LineReader, req *Request) {
	switch req.State {
	case StateEmpty:
		if in.HasCompleteLine() {
			req.Call = CallNone
			req.State = StateAwaitingRequestLine
		}

	case StateAwaitingRequestLine:
		for in.HasCompleteLine() {
			call := matchMethod(in)
			in.DiscardLine()
			if call != CallNone {
				req.Call = call
				req.State = StateInHeaders
				return
			}
		}

	case StateInHeaders:
		if !skipToBlankLine(in) {
			return
		}
		if in.BytesAvailable() > 0 {
			req.State = StateInBody
		} else {
			req.State = StateEmpty
		}

	case StateInBody:
		if skipToBlankLine(in) {
			req.State = StateEmpty
		}

	default:
		p.log.Errorw("parser_invalid_state", "state", int(req.State))
		req.Reset()
	}
}

func matchMethod(in LineReader) ApiCall {
	for _, m := range methods {
		if in.MatchesPrefix(m.prefix) {
			return m.call
		}
	}
	return CallNone
}

// skipToBlankLine discards lines up to and including the next blank line.
// It reports false if the buffered lines ran out first.
func skipToBlankLine(in LineReader) bool {
	for in.HasCompleteLine() {
		if in.IsBlankLine() {
			in.DiscardLine()
			return true
		}
		in.DiscardLine()
	}
	return false
}
