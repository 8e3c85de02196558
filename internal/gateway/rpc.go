package gateway

import (
	"github.com/rqnio/padgate/internal/mailbox"
	log "github.com/rqnio/padgate/pkg/minilog"
)

// dispatchRPC handles a 2-byte binary RPC frame: quit and get-QR are the
// only two recognized commands, each written as a NUL-terminated record
// to the rpc_in mailbox for system tooling to act on.
func dispatchRPC(store *mailbox.Store, metrics controlMetrics, payload []byte) {
	if len(payload) != 2 {
		log.Warn("gateway: dropping %d-byte RPC frame, expected 2", len(payload))
		return
	}

	var cmd string
	switch {
	case payload[0] == 0x99 && payload[1] == 0x99:
		cmd = "quit"
	case payload[0] == 0x98 && payload[1] == 0x98:
		cmd = "getqr"
	default:
		log.Warn("gateway: unrecognized RPC frame %#v", payload)
		return
	}

	if metrics != nil {
		metrics.IncRPCCommand(cmd)
	}

	if err := store.Write("rpc_in", []byte(cmd+"\x00")); err != nil {
		log.Warn("gateway: %v", err)
	}
}
