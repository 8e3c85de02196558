package wsxport

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptKeyMatchesRFC6455Example(t *testing.T) {
	// The example key/accept pair from RFC 6455 §1.3.
	got := acceptKey("dGhlIHNhbXBsZSBub25jZQ==")
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", got)
}

func TestFrameRoundTrip_Masked(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	payload := []byte("hello control pad")
	go func() {
		_ = writeMaskedClientFrame(c1, opBinary, payload)
	}()

	p := newPeeker(c2, 4096)
	var fr *frame
	require.Eventually(t, func() bool {
		var ok bool
		var err error
		fr, ok, err = readFrame(p)
		require.NoError(t, err)
		return ok && fr != nil
	}, time.Second, time.Millisecond)

	assert.Equal(t, opBinary, fr.opcode)
	assert.Equal(t, payload, fr.payload)
}

func TestReadFrame_RejectsUnmaskedDataFrame(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	go func() {
		_ = writeFrame(c1, opBinary, []byte("not masked"))
	}()

	p := newPeeker(c2, 4096)
	var err error
	require.Eventually(t, func() bool {
		_, ok, e := readFrame(p)
		if e != nil {
			err = e
			return true
		}
		return ok
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, err, errUnmaskedClientFrame)
}

func TestWriteFrame_LengthEncodingBranches(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	// Pong is used because readFrame accepts it unmasked; length decoding
	// does not depend on the opcode, and unmasked data frames are rejected.
	sizes := []int{0, 10, 125, 126, 1000, 65536}
	go func() {
		for _, n := range sizes {
			_ = writeFrame(c1, opPong, make([]byte, n))
		}
	}()

	p := newPeeker(c2, 200000)
	for _, want := range sizes {
		require.Eventually(t, func() bool {
			fr, ok, err := readFrame(p)
			require.NoError(t, err)
			if !ok {
				return false
			}
			assert.Equal(t, want, len(fr.payload))
			return true
		}, 2*time.Second, time.Millisecond)
	}
}

func TestTryHandshake_RoundTrip(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	key := "dGhlIHNhbXBsZSBub25jZQ=="
	req := "GET /pad HTTP/1.1\r\n" +
		"Host: localhost\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: " + key + "\r\n" +
		"Sec-WebSocket-Version: 13\r\n\r\n"

	go func() {
		_, _ = c1.Write([]byte(req))
	}()

	p := newPeeker(c2, handshakeBufSize)
	var done bool
	var err error
	require.Eventually(t, func() bool {
		done, err = tryHandshake(p)
		return done || err != nil
	}, time.Second, time.Millisecond)

	require.NoError(t, err)
	assert.True(t, done)

	resp := make([]byte, 4096)
	c1.SetReadDeadline(time.Now().Add(time.Second))
	n, err := c1.Read(resp)
	require.NoError(t, err)

	respStr := string(resp[:n])
	assert.Contains(t, respStr, "101 Switching Protocols")
	assert.Contains(t, respStr, "Sec-WebSocket-Accept: "+acceptKey(key))
}

func TestTryHandshake_IncompleteReturnsNoError(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	go func() {
		_, _ = c1.Write([]byte("GET /pad HTTP/1.1\r\nHost: x\r\n"))
	}()

	p := newPeeker(c2, handshakeBufSize)
	time.Sleep(20 * time.Millisecond)

	done, err := tryHandshake(p)
	assert.False(t, done)
	assert.NoError(t, err)
}

func TestTryHandshake_RejectsMissingUpgradeHeader(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	go func() {
		_, _ = c1.Write([]byte("GET /pad HTTP/1.1\r\nHost: x\r\n\r\n"))
	}()

	p := newPeeker(c2, handshakeBufSize)
	var done bool
	var err error
	require.Eventually(t, func() bool {
		done, err = tryHandshake(p)
		return done
	}, time.Second, time.Millisecond)

	assert.Error(t, err)
}

func TestListener_SingleSlotContinuation(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	addr := ln.ln.Addr().String()
	key := "dGhlIHNhbXBsZSBub25jZQ=="

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	// Write only a partial request line; the handshake must park, not fail,
	// and AcceptPending must not attempt any other accept while it's parked.
	_, err = conn.Write([]byte("GET /pad HTTP/1.1\r\nHost: x\r\n"))
	require.NoError(t, err)

	got := ln.AcceptPending()
	assert.Empty(t, got)
	require.NotNil(t, ln.pending)

	req := fmt.Sprintf("Upgrade: websocket\r\nConnection: Upgrade\r\nSec-WebSocket-Key: %s\r\nSec-WebSocket-Version: 13\r\n\r\n", key)
	_, err = conn.Write([]byte(req))
	require.NoError(t, err)

	var ready []*Conn
	require.Eventually(t, func() bool {
		ready = ln.AcceptPending()
		return len(ready) == 1
	}, time.Second, time.Millisecond)

	assert.Nil(t, ln.pending)
	assert.Contains(t, ready[0].Addr(), "127.0.0.1")
}

// writeMaskedClientFrame is an alias of the exported test helper in
// testsupport.go, kept local so in-package tests don't need the opcode
// conversion at every call site.
func writeMaskedClientFrame(w interface{ Write([]byte) (int, error) }, op opcode, payload []byte) error {
	return writeMaskedClientFrameForTests(w, op, payload)
}
