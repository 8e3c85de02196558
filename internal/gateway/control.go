package gateway

import (
	"strings"

	"github.com/rqnio/padgate/internal/mailbox"
	"github.com/rqnio/padgate/internal/namedir"
	"github.com/rqnio/padgate/internal/registry"
	"github.com/rqnio/padgate/internal/wsxport"
	log "github.com/rqnio/padgate/pkg/minilog"
)

// handleControl dispatches one underscore control record, format
// "_cmd[:arg[:arg...]]". It is reached from both directions: a client's
// own "_..." text frame, and a "_..." record the game wrote to "<id>_out"
// -- both carry the same commands, addressed at the same client id.
func handleControl(reg *registry.Registry, names *namedir.Directory, store *mailbox.Store, metrics controlMetrics, id, record string) {
	parts := strings.Split(strings.TrimPrefix(record, "_"), ":")
	cmd := parts[0]
	args := parts[1:]

	if metrics != nil {
		metrics.IncControlCommand(cmd)
	}

	switch cmd {
	case "get_name":
		if len(args) != 0 {
			log.Warn("gateway: _get_name takes no arguments, got %v", args)
			return
		}
		replyName(reg, store, id, names.Get(id))

	case "change_name":
		if len(args) != 1 {
			log.Warn("gateway: _change_name takes exactly one argument, got %v", args)
			return
		}
		names.TryChange(id, args[0])
		replyName(reg, store, id, names.Get(id))

	case "print":
		if len(args) != 0 {
			log.Warn("gateway: _print takes no arguments, got %v", args)
			return
		}
		names.Print()

	default:
		log.Warn("gateway: unrecognized control command %q from %v", cmd, id)
	}
}

// replyName sends the "_get_name"/"_change_name" result to both
// observers: the client sees it over its own socket, and the game sees
// the identical record via "<id>_in", so neither side can end up with a
// stale view of the other's display name.
func replyName(reg *registry.Registry, store *mailbox.Store, id, name string) {
	reply := "_name:" + name

	if c, ok := reg.Client(id); ok {
		c.Send(wsxport.Msg{Kind: wsxport.MsgText, Payload: []byte(reply)})
	}

	if err := store.Write(id+"_in", []byte(reply+"\x00")); err != nil {
		log.Warn("gateway: %v", err)
	}
}

// controlMetrics is the subset of *metrics.Metrics gateway needs, kept as
// an interface so gateway does not import prometheus directly.
type controlMetrics interface {
	IncControlCommand(cmd string)
	IncRPCCommand(cmd string)
	IncTick()
	SetClientsConnected(n int)
	SetPendingSockets(n int)
}
