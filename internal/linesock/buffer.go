package linesock

import "bytes"

// lineBuffer holds received bytes and implements the line primitives shared
// by every Socket implementation. Lines end with "\n"; a preceding "\r" is
// not part of the line.
type lineBuffer struct {
	rx []byte
}

func (b *lineBuffer) lineEnd() int {
	return bytes.IndexByte(b.rx, '\n')
}

func (b *lineBuffer) hasCompleteLine() bool {
	return b.lineEnd() >= 0
}

// currentLine returns the current complete line without its terminator.
func (b *lineBuffer) currentLine() ([]byte, bool) {
	end := b.lineEnd()
	if end < 0 {
		return nil, false
	}
	return bytes.TrimSuffix(b.rx[:end], []byte{'\r'}), true
}

func (b *lineBuffer) matchesPrefix(text string) bool {
	line, ok := b.currentLine()
	if !ok || !bytes.HasPrefix(line, []byte(text)) {
		return false
	}
	b.rx = b.rx[len(text):]
	return true
}

func (b *lineBuffer) discardLine() {
	end := b.lineEnd()
	if end < 0 {
		return
	}
	b.rx = b.rx[end+1:]
}

func (b *lineBuffer) isBlankLine() bool {
	line, ok := b.currentLine()
	return ok && len(line) == 0
}

func (b *lineBuffer) bytesAvailable() int {
	return len(b.rx)
}

func (b *lineBuffer) reset() {
	b.rx = b.rx[:0]
}

// Buffer is an in-memory Socket. The peer side is driven through Feed and
// Output; it backs the loopback mode and the tests.
type Buffer struct {
	lineBuffer
	state  State
	port   int
	out    bytes.Buffer
	opens  int
	closes int
}

// NewBuffer returns a closed in-memory socket.
func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) State() State { return b.state }

func (b *Buffer) OpenListening(port int) error {
	b.lineBuffer.reset()
	b.port = port
	b.state = Listening
	b.opens++
	return nil
}

// Feed delivers raw bytes from the peer. A listening socket becomes
// established; bytes fed to a closed socket are dropped.
func (b *Buffer) Feed(data string) {
	switch b.state {
	case Closed:
		return
	case Listening:
		b.state = Established
	}
	b.rx = append(b.rx, data...)
}

// Hangup simulates the peer dropping the connection.
func (b *Buffer) Hangup() {
	b.lineBuffer.reset()
	b.state = Closed
}

func (b *Buffer) HasCompleteLine() bool          { return b.hasCompleteLine() }
func (b *Buffer) MatchesPrefix(text string) bool { return b.matchesPrefix(text) }
func (b *Buffer) DiscardLine()                   { b.discardLine() }
func (b *Buffer) IsBlankLine() bool              { return b.isBlankLine() }
func (b *Buffer) BytesAvailable() int            { return b.bytesAvailable() }

func (b *Buffer) WriteText(s string) {
	if b.state == Established {
		b.out.WriteString(s)
	}
}

func (b *Buffer) WriteRaw(c byte) {
	if b.state == Established {
		b.out.WriteByte(c)
	}
}

func (b *Buffer) Close() {
	b.lineBuffer.reset()
	b.state = Closed
	b.closes++
}

// Output returns everything written so far.
func (b *Buffer) Output() string { return b.out.String() }

// TakeOutput returns and clears everything written so far.
func (b *Buffer) TakeOutput() string {
	s := b.out.String()
	b.out.Reset()
	return s
}

// Opens and Closes count lifecycle calls.
func (b *Buffer) Opens() int  { return b.opens }
func (b *Buffer) Closes() int { return b.closes }

// Port is the port passed to the last OpenListening.
func (b *Buffer) Port() int { return b.port }
