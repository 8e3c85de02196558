// Package registry folds accepted websocket sockets into logical clients
// once they announce their subid, and keeps the well-known cp_clients
// mailbox in sync as clients appear and disappear.
package registry

import (
	"fmt"

	"github.com/rqnio/padgate/internal/mailbox"
	"github.com/rqnio/padgate/internal/namedir"
	"github.com/rqnio/padgate/internal/wsxport"
	log "github.com/rqnio/padgate/pkg/minilog"
)

const clientsMailbox = "cp_clients"

// Registry holds the pending-socket list and the live logical clients, and
// keeps the Name Directory and cp_clients mailbox consistent with them.
type Registry struct {
	idBase IDBaseFunc
	names  *namedir.Directory
	store  *mailbox.Store

	pending []*wsxport.Conn
	clients map[string]*Client
}

func New(store *mailbox.Store, names *namedir.Directory) *Registry {
	return &Registry{
		idBase:  defaultIDBase,
		names:   names,
		store:   store,
		clients: make(map[string]*Client),
	}
}

// WithIDBase overrides address-to-id-base derivation, primarily so tests
// running every connection over loopback can assign distinct ids instead
// of colliding on 127.0.0.1.
func (r *Registry) WithIDBase(fn IDBaseFunc) *Registry {
	r.idBase = fn
	return r
}

// AcceptPending appends newly handshake-completed sockets to the pending
// list.
func (r *Registry) AcceptPending(conns []*wsxport.Conn) {
	r.pending = append(r.pending, conns...)
}

// DrainSubids promotes every pending socket that has delivered its subid
// into a logical client; everything
// else (no message yet, wrong kind, wrong length) stays pending for a
// later tick, except sockets that died in the meantime, which are dropped.
func (r *Registry) DrainSubids() {
	still := r.pending[:0]

	for _, conn := range r.pending {
		if conn.IsDead() {
			continue
		}

		msg, _ := conn.RecvOne()
		if msg == nil {
			if !conn.IsDead() {
				still = append(still, conn)
			}
			continue
		}

		if msg.Kind == wsxport.MsgText {
			log.Warn("registry: %v sent text before subid, ignoring", conn.Addr())
			still = append(still, conn)
			continue
		}

		if len(msg.Payload) != 1 {
			log.Warn("registry: %v sent %d-byte subid frame, expected 1", conn.Addr(), len(msg.Payload))
			still = append(still, conn)
			continue
		}

		r.promote(conn, msg.Payload[0])
	}

	r.pending = still
}

func (r *Registry) promote(conn *wsxport.Conn, subid byte) {
	id := fmt.Sprintf("%s-%d", r.idBase(conn.Addr()), subid)

	if c, exists := r.clients[id]; exists {
		c.sockets = append(c.sockets, conn)
		log.Debug("registry: folded new socket from %v into existing client %v", conn.Addr(), id)
		return
	}

	r.clients[id] = &Client{ID: id, sockets: []*wsxport.Conn{conn}}

	if err := r.names.Add(id); err != nil {
		log.Warn("registry: name assignment for %v: %v", id, err)
	}

	if err := r.store.Write(clientsMailbox, append([]byte(id), 0x00)); err != nil {
		log.Warn("registry: %v", err)
	}
}

// ClearDead drops sockets that died from their client; clients left with
// no live sockets are removed
// entirely, and if that happened at all, cp_clients is rewritten from
// scratch to reflect the surviving set.
func (r *Registry) ClearDead() {
	removed := false

	for id, c := range r.clients {
		c.dropDead()
		if c.isDead() {
			delete(r.clients, id)
			r.names.Remove(id)
			removed = true
			log.Debug("registry: reaped dead client %v", id)
		}
	}

	if !removed {
		return
	}

	if _, err := r.store.Consume(clientsMailbox); err != nil {
		log.Warn("registry: rewriting cp_clients: %v", err)
		return
	}

	for id := range r.clients {
		if err := r.store.Write(clientsMailbox, append([]byte(id), 0x00)); err != nil {
			log.Warn("registry: rewriting cp_clients: %v", err)
		}
	}
}

// Clients returns every live logical client. The order is unspecified.
func (r *Registry) Clients() []*Client {
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Client(id string) (*Client, bool) {
	c, ok := r.clients[id]
	return c, ok
}

func (r *Registry) PendingCount() int { return len(r.pending) }
