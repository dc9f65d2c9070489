package ws

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single write to the peer.
	writeWait = 10 * time.Second

	// pongWait is how long a silent peer is tolerated before the connection
	// counts as dead. Pings go out well inside that window.
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10

	// outBufSize is the per-subscriber outgoing buffer. A full buffer marks
	// the subscriber as too slow and the hub drops it.
	outBufSize = 16
)

// subscriber is one connected WebSocket peer.
type subscriber struct {
	conn *websocket.Conn
	out  chan []byte
}

func newSubscriber(conn *websocket.Conn) *subscriber {
	return &subscriber{
		conn: conn,
		out:  make(chan []byte, outBufSize),
	}
}

// enqueue offers msg to the subscriber without blocking. False means the
// buffer was full.
func (s *subscriber) enqueue(msg []byte) bool {
	select {
	case s.out <- msg:
		return true
	default:
		return false
	}
}

// shutdown closes the outgoing channel, which makes writeLoop send a close
// frame and tear the connection down. Callers must hold the hub lock and must
// call it at most once per subscriber; the hub's membership check guarantees
// that.
func (s *subscriber) shutdown() {
	close(s.out)
}

// write sends one frame with the write deadline applied.
func (s *subscriber) write(messageType int, payload []byte) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
	return s.conn.WriteMessage(messageType, payload)
}

// writeLoop drains the outgoing buffer onto the connection and keeps the
// peer alive with pings. Runs in its own goroutine per subscriber.
func (s *subscriber) writeLoop() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.out:
			if !ok {
				// Hub is shutting down or dropped us.
				s.write(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := s.write(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ping.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop consumes frames so control messages (pong, close) are processed
// and disconnects surface. Subscribers send nothing meaningful; inbound data
// frames are discarded. Blocks until the connection closes.
func (s *subscriber) readLoop() {
	defer s.conn.Close()

	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
