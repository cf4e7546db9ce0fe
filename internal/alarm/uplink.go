package alarm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sensor_node/internal/logger"
	"sensor_node/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection timing for the master controller link.
const (
	writeWait        = 5 * time.Second
	handshakeTimeout = 5 * time.Second
	pingPeriod       = 30 * time.Second
	minBackoff       = 500 * time.Millisecond
	maxBackoff       = 30 * time.Second
	DefaultQueueSize = 32
)

var errLinkClosed = errors.New("master link closed")

// TokenIssuer mints the bearer token presented when connecting.
type TokenIssuer interface {
	Issue(serial string) (string, error)
}

// Uplink queues alarm frames without blocking the caller and delivers them
// over a websocket from its own goroutine (see Run).
type Uplink struct {
	url    string
	serial string
	tokens TokenIssuer
	log    *logger.Logger
	now    func() time.Time
	dialer websocket.Dialer
	queue  chan models.AlarmFrame
}

func NewUplink(url, serial string, queueSize int, tokens TokenIssuer, log *logger.Logger) *Uplink {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Uplink{
		url:    url,
		serial: serial,
		tokens: tokens,
		log:    logger.OrNop(log),
		now:    time.Now,
		dialer: websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		queue:  make(chan models.AlarmFrame, queueSize),
	}
}

// Send enqueues an alarm. When the queue is full the alarm is dropped and
// logged; the caller never waits.
func (u *Uplink) Send(code models.EventCode, reading int) {
	f := models.AlarmFrame{
		ID:        uuid.NewString(),
		Serial:    u.serial,
		Event:     code,
		Reading:   reading,
		Timestamp: u.now().UTC(),
	}
	select {
	case u.queue <- f:
	default:
		u.log.Errorw("alarm_dropped", "event", code.String(), "reading", reading, "queue", cap(u.queue))
	}
}

// Run connects to the master controller and drains the queue until ctx is
// cancelled, reconnecting with exponential backoff.
func (u *Uplink) Run(ctx context.Context) {
	backoff := minBackoff
	var pending *models.AlarmFrame
	for {
		conn, err := u.dial(ctx)
		if err != nil {
			u.log.Infow("alarm_link_dial_failed", "url", u.url, "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = minBackoff
		u.log.Infow("alarm_link_up", "url", u.url)

		pending, err = u.pump(ctx, conn, pending)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		u.log.Infow("alarm_link_down", "err", err)
	}
}

func (u *Uplink) dial(ctx context.Context) (*websocket.Conn, error) {
	token, err := u.tokens.Issue(u.serial)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := u.dialer.DialContext(ctx, u.url, header)
	return conn, err
}

// pump writes queued frames until the link fails. The frame that was being
// written when it failed is returned so the next connection resends it.
func (u *Uplink) pump(ctx context.Context, conn *websocket.Conn, pending *models.AlarmFrame) (*models.AlarmFrame, error) {
	done := make(chan struct{})
	go drainReads(conn, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if pending != nil {
		if err := u.write(conn, *pending); err != nil {
			return pending, err
		}
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"),
				time.Now().Add(writeWait))
			return nil, ctx.Err()
		case <-done:
			return nil, errLinkClosed
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil, err
			}
		case f := <-u.queue:
			if err := u.write(conn, f); err != nil {
				return &f, err
			}
		}
	}
}

func (u *Uplink) write(conn *websocket.Conn, f models.AlarmFrame) error {
	data, err := Encode(f)
	if err != nil {
		u.log.Errorw("alarm_encode_failed", "err", err, "id", f.ID)
		return nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return err
	}
	u.log.Debugw("alarm_sent", "id", f.ID, "event", f.Event.String())
	return nil
}

// drainReads consumes control frames and signals when the peer goes away.
func drainReads(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
