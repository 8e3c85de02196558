package registry

import (
	"net"
	"testing"
	"time"

	"github.com/rqnio/padgate/internal/mailbox"
	"github.com/rqnio/padgate/internal/namedir"
	"github.com/rqnio/padgate/internal/wsxport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, *mailbox.Store) {
	t.Helper()
	dir := t.TempDir()
	store := mailbox.New(dir, dir)
	reg := New(store, namedir.New())
	return reg, store
}

// fakeConn lets tests drive the registry without going through a real TCP
// handshake; it satisfies the subset of *wsxport.Conn behavior the
// registry depends on by wrapping a net.Pipe pair and real frame codecs.
type fakeConn struct {
	addr string
	c    net.Conn
	conn *wsxport.Conn
}

func newFakeConn(t *testing.T, addr string) (*fakeConn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	wc := wsxport.NewTestConn(server, addr)
	return &fakeConn{addr: addr, c: client, conn: wc}, client
}

func TestDrainSubids_PromotesAndWritesClientsMailbox(t *testing.T) {
	reg, store := newTestRegistry(t)

	fc, client := newFakeConn(t, "192.168.0.42:51000")
	defer client.Close()

	go wsxport.TestWriteMaskedClientFrame(client, 0x2, []byte{0x07})

	reg.AcceptPending([]*wsxport.Conn{fc.conn})

	require.Eventually(t, func() bool {
		reg.DrainSubids()
		_, ok := reg.Client("0x42-7")
		return ok
	}, time.Second, time.Millisecond)

	payload, err := store.Read("cp_clients")
	require.NoError(t, err)
	assert.Equal(t, "0x42-7\x00", string(payload))
}

func TestClearDead_ReapsAndRewritesClientsMailbox(t *testing.T) {
	reg, store := newTestRegistry(t)

	fc, client := newFakeConn(t, "192.168.0.42:51000")

	go wsxport.TestWriteMaskedClientFrame(client, 0x2, []byte{0x07})
	reg.AcceptPending([]*wsxport.Conn{fc.conn})
	require.Eventually(t, func() bool {
		reg.DrainSubids()
		_, ok := reg.Client("0x42-7")
		return ok
	}, time.Second, time.Millisecond)

	client.Close()
	require.Eventually(t, func() bool {
		// Liveness is learned on the read path, as the loop's pumpIncoming
		// does before ClearDead each tick.
		fc.conn.RecvAll()
		reg.ClearDead()
		_, ok := reg.Client("0x42-7")
		return !ok
	}, time.Second, time.Millisecond)

	has, err := store.HasNew("cp_clients")
	require.NoError(t, err)
	assert.True(t, has)

	payload, err := store.Read("cp_clients")
	require.NoError(t, err)
	assert.Equal(t, "", string(payload))
}

func TestMultipleSocketsFoldIntoOneClient(t *testing.T) {
	reg, _ := newTestRegistry(t)

	fc1, c1 := newFakeConn(t, "192.168.0.42:51000")
	fc2, c2 := newFakeConn(t, "192.168.0.42:51001")
	defer c1.Close()
	defer c2.Close()

	go wsxport.TestWriteMaskedClientFrame(c1, 0x2, []byte{0x07})
	go wsxport.TestWriteMaskedClientFrame(c2, 0x2, []byte{0x07})

	reg.AcceptPending([]*wsxport.Conn{fc1.conn, fc2.conn})

	require.Eventually(t, func() bool {
		reg.DrainSubids()
		c, ok := reg.Client("0x42-7")
		return ok && len(c.sockets) == 2
	}, time.Second, time.Millisecond)
}
