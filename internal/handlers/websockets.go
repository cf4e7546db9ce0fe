package handlers

import (
	"net/http"
	"time"

	"sensor_node/internal/alarm"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Receive timing and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12 // 4 KB
)

// Nodes are not browsers; any origin is accepted once the token checks out.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsIngest records every alarm frame the authenticated node sends until
// the connection drops.
func (h *Handler) wsIngest(c *gin.Context) {
	serial := c.GetString(ctxSerial)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.readFrames(conn, serial, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "serial", serial, "err", err)
				}
				return
			}
		}
	}
}

// readFrames decodes binary alarm frames. Frames claiming another node's
// serial are dropped.
func (h *Handler) readFrames(conn *websocket.Conn, serial string, done chan<- struct{}) {
	defer close(done)
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "serial", serial, "err", err)
			}
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}

		f, err := alarm.Decode(data)
		if err != nil {
			if h.log != nil {
				h.log.Errorw("alarm_decode_failed", "serial", serial, "err", err)
			}
			continue
		}
		if f.Serial != serial {
			if h.log != nil {
				h.log.Errorw("alarm_serial_mismatch", "token_serial", serial, "frame_serial", f.Serial)
			}
			continue
		}

		h.services.Alarms.Record(f)
		if h.log != nil {
			h.log.Infow("alarm_received", "serial", f.Serial, "event", f.Event.String(), "reading", f.Reading)
		}
	}
}
