package wsxport

import (
	log "github.com/rqnio/padgate/pkg/minilog"
)

// MsgKind distinguishes the frame kinds a caller above wsxport cares about.
type MsgKind int

const (
	MsgBinary MsgKind = iota
	MsgText
)

// Msg is one complete message handed to or received from a Conn.
type Msg struct {
	Kind    MsgKind
	Payload []byte
}

// Conn is one accepted, handshake-complete websocket connection. It is not
// safe for concurrent use: the gateway's single-threaded tick loop is the
// only intended caller.
type Conn struct {
	peer *peeker
	addr string
	dead bool
}

func newConn(p *peeker, addr string) *Conn {
	return &Conn{peer: p, addr: addr}
}

func (c *Conn) Addr() string { return c.addr }

func (c *Conn) IsDead() bool { return c.dead }

// RecvOne returns at most one complete message without blocking. ok=false
// means nothing is available yet (try again next tick); a dead connection
// always returns (nil, false) once its Close frame has been observed.
func (c *Conn) RecvOne() (*Msg, bool) {
	if c.dead {
		return nil, false
	}

	fr, ok, err := readFrame(c.peer)
	if err != nil {
		c.dead = true
		log.Warn("wsxport: %v: closing after read error: %v", c.addr, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	switch fr.opcode {
	case opBinary:
		return &Msg{Kind: MsgBinary, Payload: fr.payload}, true
	case opText:
		return &Msg{Kind: MsgText, Payload: fr.payload}, true
	case opClose:
		c.dead = true
		_ = writeFrame(c.peer.conn, opClose, nil)
		return nil, false
	case opPing:
		log.Debug("wsxport: %v: replying to ping with pong", c.addr)
		_ = writeFrame(c.peer.conn, opPong, fr.payload)
		return nil, true
	case opPong:
		log.Debug("wsxport: %v: received unsolicited pong", c.addr)
		return nil, true
	default:
		// Continuation frames (fragmentation) and anything else unsupported
		// are swallowed rather than killing the connection.
		log.Debug("wsxport: %v: ignoring unsupported frame kind %v", c.addr, fr.opcode)
		return nil, true
	}
}

// RecvAll drains every message currently available on the connection.
func (c *Conn) RecvAll() []*Msg {
	var msgs []*Msg
	for {
		m, ok := c.RecvOne()
		if c.dead {
			return msgs
		}
		if m == nil && !ok {
			return msgs
		}
		if m != nil {
			msgs = append(msgs, m)
		}
	}
}

// Send writes one message to the client. Send errors are logged and
// swallowed, not surfaced as a dead connection: the read path (a Close
// frame or a hard read error) is the sole source of truth for liveness, so
// a transient write failure doesn't reap a client that's still receiving.
func (c *Conn) Send(m Msg) {
	op := opBinary
	if m.Kind == MsgText {
		op = opText
	}
	if err := writeFrame(c.peer.conn, op, m.Payload); err != nil {
		log.Warn("wsxport: %v: send failed: %v", c.addr, err)
	}
}
