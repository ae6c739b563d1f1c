package ws

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeTimeout bounds every frame written to a subscriber.
	writeTimeout = 10 * time.Second

	// idleTimeout drops a subscriber that has not answered a ping in time.
	idleTimeout = time.Minute

	// keepalive must stay below idleTimeout.
	keepalive = 50 * time.Second

	// outboxDepth is how many snapshots may queue before a subscriber is
	// considered too slow.
	outboxDepth = 16

	// maxInbound caps client frames; the stream is one-way.
	maxInbound = 512
)

// subscriber is one connected dashboard. The hub only ever touches outbox;
// pump owns all writes to conn.
type subscriber struct {
	conn   *websocket.Conn
	outbox chan []byte
}

func newSubscriber(conn *websocket.Conn) *subscriber {
	return &subscriber{conn: conn, outbox: make(chan []byte, outboxDepth)}
}

// offer queues frame without blocking and reports whether it fit.
func (s *subscriber) offer(frame []byte) bool {
	select {
	case s.outbox <- frame:
		return true
	default:
		return false
	}
}

// pump writes queued snapshots and keepalive pings until the outbox is
// closed or a write fails.
func (s *subscriber) pump() {
	ping := time.NewTicker(keepalive)
	defer ping.Stop()
	defer s.conn.Close()

	for {
		select {
		case frame, open := <-s.outbox:
			if !open {
				s.goodbye()
				return
			}
			if err := s.write(frame); err != nil {
				slog.Debug("ws: write failed", "remote", s.remote(), "err", err)
				return
			}
		case <-ping.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (s *subscriber) write(frame []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *subscriber) goodbye() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
}

// drain discards whatever the client sends so that pongs and close frames
// get processed. It returns once the peer is gone or stops answering pings.
func (s *subscriber) drain() {
	defer s.conn.Close()

	s.conn.SetReadLimit(maxInbound)
	extend := func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	}
	_ = extend("")
	s.conn.SetPongHandler(extend)

	for {
		if _, _, err := s.conn.NextReader(); err != nil {
			return
		}
	}
}

func (s *subscriber) remote() string {
	return s.conn.RemoteAddr().String()
}
