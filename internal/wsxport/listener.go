package wsxport

import (
	"net"
	"time"

	log "github.com/rqnio/padgate/pkg/minilog"
)

// handshakeBufSize covers the worst-case handshake header plus whatever of
// the first websocket frame happens to have arrived in the same read.
const handshakeBufSize = maxHandshakeHeader + 256

// Listener accepts TCP connections and drives them through the websocket
// upgrade handshake without ever blocking the tick loop. At most one
// handshake attempt is ever in flight: if it doesn't complete in one tick
// it is parked in pending and resumed on the next call to AcceptPending,
// and no new connection is accepted from the OS listener until that slot
// frees up.
type Listener struct {
	ln      net.Listener
	pending *pendingHandshake
}

type pendingHandshake struct {
	conn net.Conn
	peer *peeker
}

func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln}, nil
}

func (l *Listener) Close() error {
	return l.ln.Close()
}

// AcceptPending returns every connection that finished its handshake
// during this call. It never blocks: accepts go through a
// zero-deadline-equivalent on the underlying listener. A previously parked
// handshake is resumed first; after that it keeps accepting new
// connections, giving each one handshake attempt, until an accept produces
// nothing or an attempt is parked for a later call. This matches the
// original's new_connections loop, which stops the moment a single attempt
// produces nothing.
func (l *Listener) AcceptPending() []*Conn {
	var ready []*Conn

	for {
		conn, got := l.resumeOrAccept()
		if !got {
			return ready
		}

		done, err := tryHandshake(conn.peer)
		if err != nil {
			log.Warn("wsxport: handshake with %v failed: %v", conn.conn.RemoteAddr(), err)
			_ = conn.conn.Close()
			l.pending = nil
			continue
		}
		if !done {
			l.pending = conn
			return ready
		}

		l.pending = nil
		ready = append(ready, newConn(conn.peer, conn.conn.RemoteAddr().String()))
	}
}

// resumeOrAccept returns the parked handshake if one exists, otherwise
// attempts exactly one non-blocking accept. ok=false means there is
// nothing to work on right now.
func (l *Listener) resumeOrAccept() (*pendingHandshake, bool) {
	if l.pending != nil {
		p := l.pending
		return p, true
	}

	type deadlineListener interface {
		SetDeadline(time.Time) error
	}
	if dl, ok := l.ln.(deadlineListener); ok {
		_ = dl.SetDeadline(time.Now())
	}

	conn, err := l.ln.Accept()
	if err != nil {
		return nil, false
	}

	return &pendingHandshake{conn: conn, peer: newPeeker(conn, handshakeBufSize)}, true
}
