package linesock

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"sensor_node/internal/logger"
)

// Buffer limits mirror a small network controller: the receive side holds
// at most maxRx bytes, the transmit side is pushed out once it reaches txChunk.
const (
	maxRx     = 2048
	txChunk   = 2048
	readChunk = 512
	writeWait = 2 * time.Second
)

var errRxOverflow = errors.New("receive buffer overflow")

// TCPSocket is a Socket over one TCP port. Accept and receive run on
// background goroutines that fill the receive buffer; every exported method
// returns immediately.
type TCPSocket struct {
	host string
	log  *logger.Logger

	mu         sync.Mutex
	lineBuffer
	state      State
	ln         net.Listener
	conn       net.Conn
	peerClosed bool
	tx         []byte
	// gen invalidates goroutines that belong to a torn-down connection.
	gen int
}

// NewTCP returns a closed socket that will listen on host.
func NewTCP(host string, log *logger.Logger) *TCPSocket {
	return &TCPSocket{host: host, log: logger.OrNop(log)}
}

// State reports the slot state. A connection whose peer has gone away is
// reported Closed once no complete line is left to parse.
func (s *TCPSocket) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Established && s.peerClosed && !s.hasCompleteLine() {
		s.teardownLocked()
	}
	return s.state
}

// OpenListening drops any current connection and starts accepting exactly
// one client on port.
func (s *TCPSocket) OpenListening(port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()

	ln, err := net.Listen("tcp", net.JoinHostPort(s.host, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", port, err)
	}
	s.ln = ln
	s.state = Listening
	go s.acceptOne(ln, s.gen)
	return nil
}

// Addr returns the listening address, or nil when not listening.
func (s *TCPSocket) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *TCPSocket) acceptOne(ln net.Listener, gen int) {
	conn, err := ln.Accept()
	_ = ln.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	s.ln = nil
	if err != nil {
		s.log.Errorw("socket_accept_failed", "err", err)
		s.state = Closed
		return
	}
	s.conn = conn
	s.state = Established
	s.log.Debugw("socket_established", "remote", conn.RemoteAddr().String())
	go s.readLoop(conn, gen)
}

func (s *TCPSocket) readLoop(conn net.Conn, gen int) {
	buf := make([]byte, readChunk)
	for {
		n, err := conn.Read(buf)

		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return
		}
		s.rx = append(s.rx, buf[:n]...)
		if len(s.rx) > maxRx {
			err = errRxOverflow
			s.rx = s.rx[:maxRx]
		}
		if err != nil {
			s.peerClosed = true
			s.mu.Unlock()
			if errors.Is(err, errRxOverflow) {
				s.log.Errorw("socket_rx_overflow", "limit", maxRx)
				_ = conn.Close()
			}
			return
		}
		s.mu.Unlock()
	}
}

func (s *TCPSocket) HasCompleteLine() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasCompleteLine()
}

func (s *TCPSocket) MatchesPrefix(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matchesPrefix(text)
}

func (s *TCPSocket) DiscardLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discardLine()
}

func (s *TCPSocket) IsBlankLine() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isBlankLine()
}

func (s *TCPSocket) BytesAvailable() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytesAvailable()
}

func (s *TCPSocket) WriteText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Established {
		return
	}
	s.tx = append(s.tx, text...)
	if len(s.tx) >= txChunk {
		s.flushLocked()
	}
}

func (s *TCPSocket) WriteRaw(b byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Established {
		return
	}
	s.tx = append(s.tx, b)
	if len(s.tx) >= txChunk {
		s.flushLocked()
	}
}

// Close sends any pending output and releases the slot.
func (s *TCPSocket) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
	s.teardownLocked()
}

func (s *TCPSocket) flushLocked() {
	if s.conn == nil || len(s.tx) == 0 {
		s.tx = s.tx[:0]
		return
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if _, err := s.conn.Write(s.tx); err != nil {
		s.log.Errorw("socket_write_failed", "err", err, "bytes", len(s.tx))
	}
	s.tx = s.tx[:0]
}

func (s *TCPSocket) teardownLocked() {
	s.gen++
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	if s.ln != nil {
		_ = s.ln.Close()
		s.ln = nil
	}
	s.lineBuffer.reset()
	s.tx = s.tx[:0]
	s.peerClosed = false
	s.state = Closed
}
