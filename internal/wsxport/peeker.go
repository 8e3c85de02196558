package wsxport

import (
	"bufio"
	"net"
	"time"
)

// peeker lets both the handshake parser and the frame decoder read from a
// connection without ever losing buffered bytes to a would-block timeout:
// everything goes through bufio.Reader.Peek, which never consumes input,
// so a short read simply leaves state for the next call to pick up where
// it left off. This is what makes the single-slot handshake continuation
// and the per-tick non-blocking frame reads possible without a hand-rolled
// partial-read buffer.
type peeker struct {
	conn net.Conn
	br   *bufio.Reader
}

func newPeeker(conn net.Conn, bufSize int) *peeker {
	return &peeker{conn: conn, br: bufio.NewReaderSize(conn, bufSize)}
}

// peekAtLeast tries, without blocking past "now", to make n bytes
// available. ok=false means "no error, but not enough data yet" (the
// caller should try again on a later tick); ok=true with a non-nil err
// means a real failure (the connection is dead or the peer violated the
// protocol).
func (p *peeker) peekAtLeast(n int) (buf []byte, ok bool, err error) {
	// A zero/past deadline makes the next Read return immediately with
	// whatever is already available, or a timeout error if nothing is --
	// the standard non-blocking-read idiom for net.Conn.
	if err := p.conn.SetReadDeadline(time.Now()); err != nil {
		return nil, true, err
	}

	buf, err = p.br.Peek(n)
	if err == nil {
		return buf, true, nil
	}

	if ne, isNet := err.(net.Error); isNet && ne.Timeout() {
		return nil, false, nil
	}

	return nil, true, err
}

func (p *peeker) discard(n int) error {
	_, err := p.br.Discard(n)
	return err
}
