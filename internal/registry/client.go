package registry

import "github.com/rqnio/padgate/internal/wsxport"

// Client is the aggregate of every live websocket connection sharing one
// (id_base, subid) identity.
type Client struct {
	ID      string
	sockets []*wsxport.Conn
}

func (c *Client) dropDead() {
	live := c.sockets[:0]
	for _, s := range c.sockets {
		if !s.IsDead() {
			live = append(live, s)
		}
	}
	c.sockets = live
}

func (c *Client) isDead() bool {
	return len(c.sockets) == 0
}

// Send fans a message out to every socket sharing this client's identity.
func (c *Client) Send(m wsxport.Msg) {
	for _, s := range c.sockets {
		s.Send(m)
	}
}

// RecvAll fans in every currently-available message across every socket
// sharing this client's identity. There is no guaranteed relative order
// beyond whatever order the sockets happen to be iterated in.
func (c *Client) RecvAll() []*wsxport.Msg {
	var all []*wsxport.Msg
	for _, s := range c.sockets {
		all = append(all, s.RecvAll()...)
	}
	return all
}
