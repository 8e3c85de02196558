package gateway

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/rqnio/padgate/internal/mailbox"
	"github.com/rqnio/padgate/internal/namedir"
	"github.com/rqnio/padgate/internal/registry"
	"github.com/rqnio/padgate/internal/wsxport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoop(t *testing.T) (*Loop, *mailbox.Store, *registry.Registry) {
	t.Helper()
	dir := t.TempDir()
	store := mailbox.New(dir, dir)
	names := namedir.New()
	reg := registry.New(store, names)

	return &Loop{
		Registry: reg,
		Names:    names,
		Store:    store,
	}, store, reg
}

func connectClient(t *testing.T, reg *registry.Registry, addr string, subid byte) (*wsxport.Conn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	conn := wsxport.NewTestConn(server, addr)

	go wsxport.TestWriteMaskedClientFrame(client, 0x2, []byte{subid})

	reg.AcceptPending([]*wsxport.Conn{conn})
	require.Eventually(t, func() bool {
		reg.DrainSubids()
		return reg.PendingCount() == 0
	}, time.Second, time.Millisecond)

	return conn, client
}

// readServerFrame reads one unmasked server->client frame with a payload
// shorter than 126 bytes from the client end of the pipe, returning its
// first header byte (FIN + opcode) and its payload.
func readServerFrame(t *testing.T, client net.Conn) (byte, []byte) {
	t.Helper()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))

	header := make([]byte, 2)
	_, err := io.ReadFull(client, header)
	require.NoError(t, err)

	payload := make([]byte, header[1]&0x7f)
	_, err = io.ReadFull(client, payload)
	require.NoError(t, err)
	return header[0], payload
}

// Rename via the control protocol replies on both the client socket and
// the game-facing "<id>_in" mailbox.
func TestRename_DualReplyToSocketAndMailbox(t *testing.T) {
	l, store, reg := newTestLoop(t)
	_, client := connectClient(t, reg, "192.168.0.42:1", 7)
	defer client.Close()

	require.NoError(t, store.Write("0x42-7_out", []byte("_change_name:   Dr.  Alphonse!  \x00")))

	// A net.Pipe write blocks until the other end reads, so the socket
	// reply is read here while pumpOutgoing runs.
	done := make(chan struct{})
	go func() {
		l.pumpOutgoing()
		close(done)
	}()

	first, reply := readServerFrame(t, client)
	<-done

	assert.Equal(t, byte(0x81), first, "FIN + text opcode")
	assert.Equal(t, "_name:Dr Alphonse", string(reply))
	assert.Equal(t, "Dr Alphonse", nameOf(t, l))

	in, err := store.Consume("0x42-7_in")
	require.NoError(t, err)
	assert.Equal(t, "_name:Dr Alphonse\x00", string(in))
}

func nameOf(t *testing.T, l *Loop) string {
	t.Helper()
	return l.Names.Get("0x42-7")
}

// An external writer's "reload" record in rpc_out triggers a 0x01
// broadcast to every socket of every client on the next tick.
func TestPumpReload_BroadcastsToEveryClientSocket(t *testing.T) {
	l, store, reg := newTestLoop(t)
	_, client := connectClient(t, reg, "192.168.0.42:1", 7)
	defer client.Close()

	require.NoError(t, store.Write("rpc_out", []byte("reload\x00")))

	// The broadcast goes out to the client end of the pipe, which must be
	// read while pumpReload's write is in progress.
	go l.pumpReload()

	first, payload := readServerFrame(t, client)

	assert.Equal(t, byte(0x82), first, "FIN + binary opcode")
	assert.Equal(t, []byte{0x01}, payload)
}

// A 2-byte 0x99 0x99 RPC frame produces "quit\0" in rpc_in.
func TestPumpIncoming_RPCQuitFrameWritesRPCIn(t *testing.T) {
	l, store, reg := newTestLoop(t)
	_, client := connectClient(t, reg, "192.168.0.42:1", 7)
	defer client.Close()

	go wsxport.TestWriteMaskedClientFrame(client, 0x2, []byte{0x99, 0x99})

	require.Eventually(t, func() bool {
		l.pumpIncoming()
		has, err := store.HasNew("rpc_in")
		require.NoError(t, err)
		return has
	}, time.Second, time.Millisecond)

	payload, err := store.Read("rpc_in")
	require.NoError(t, err)
	assert.Equal(t, "quit\x00", string(payload))
}

func TestPumpIncoming_GameRecordsConcatenated(t *testing.T) {
	l, store, reg := newTestLoop(t)
	_, client := connectClient(t, reg, "192.168.0.42:1", 7)
	defer client.Close()

	go func() {
		_ = wsxport.TestWriteMaskedClientFrame(client, 0x1, []byte("move:up"))
	}()

	require.Eventually(t, func() bool {
		l.pumpIncoming()
		has, err := store.HasNew("0x42-7_in")
		require.NoError(t, err)
		return has
	}, time.Second, time.Millisecond)

	payload, err := store.Read("0x42-7_in")
	require.NoError(t, err)
	assert.Equal(t, "move:up\x00", string(payload))
}
