package wsxport

import "net"

// NewTestConn builds a Conn around an already-established net.Conn,
// bypassing the handshake entirely. Exported only for other packages'
// tests (e.g. registry) that need to drive a Conn without standing up a
// real TCP listener and client.
func NewTestConn(c net.Conn, addr string) *Conn {
	return newConn(newPeeker(c, maxFramePayload+16), addr)
}

// TestWriteMaskedClientFrame writes one masked client->server frame,
// exported for cross-package tests that need to feed a Conn built via
// NewTestConn.
func TestWriteMaskedClientFrame(w interface{ Write([]byte) (int, error) }, op byte, payload []byte) error {
	return writeMaskedClientFrameForTests(w, opcode(op), payload)
}

func writeMaskedClientFrameForTests(w interface{ Write([]byte) (int, error) }, op opcode, payload []byte) error {
	header := []byte{0x80 | byte(op), 0x80 | byte(len(payload))}
	key := []byte{0x12, 0x34, 0x56, 0x78}
	masked := make([]byte, len(payload))
	for i, b := range payload {
		masked[i] = b ^ key[i%4]
	}

	if _, err := w.Write(header); err != nil {
		return err
	}
	if _, err := w.Write(key); err != nil {
		return err
	}
	_, err := w.Write(masked)
	return err
}
