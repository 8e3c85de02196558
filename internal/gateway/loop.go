// Package gateway implements the single-threaded server loop: each tick
// accepts new sockets, promotes them into logical clients, relays records
// between the websocket clients and the filesystem mailboxes, reaps dead
// clients, and processes the out-of-band reload broadcast.
package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/rqnio/padgate/internal/mailbox"
	"github.com/rqnio/padgate/internal/namedir"
	"github.com/rqnio/padgate/internal/registry"
	"github.com/rqnio/padgate/internal/wsxport"
	log "github.com/rqnio/padgate/pkg/minilog"
)

// DefaultTickInterval is the pause between ticks when a loop isn't given
// an explicit interval: short enough that control-pad input feels
// immediate, long enough not to spin a core polling empty mailboxes.
const DefaultTickInterval = 1500 * time.Microsecond

// Loop owns every moving part of one gateway process and drives them
// through the 6-phase tick.
type Loop struct {
	Listener *wsxport.Listener
	Registry *registry.Registry
	Names    *namedir.Directory
	Store    *mailbox.Store
	Metrics  controlMetrics

	TickInterval time.Duration
}

// Run drives the loop until ctx is canceled.
func (l *Loop) Run(ctx context.Context) {
	interval := l.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		l.Tick()

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// Tick runs exactly one pass of the loop's phases: accept, promote,
// relay outgoing, relay incoming, reap, and broadcast any pending reload.
func (l *Loop) Tick() {
	l.acceptPending()
	l.drainSubids()
	l.pumpOutgoing()
	l.pumpIncoming()
	l.Registry.ClearDead()
	l.pumpReload()

	if l.Metrics != nil {
		l.Metrics.IncTick()
		l.Metrics.SetClientsConnected(len(l.Registry.Clients()))
		l.Metrics.SetPendingSockets(l.Registry.PendingCount())
	}
}

func (l *Loop) acceptPending() {
	l.Registry.AcceptPending(l.Listener.AcceptPending())
}

func (l *Loop) drainSubids() {
	l.Registry.DrainSubids()
}

// pumpOutgoing relays target -> clients: consume "<id>_out", split on NUL,
// and either hand underscore records to the control handler or forward
// everything else verbatim to every socket of the client.
func (l *Loop) pumpOutgoing() {
	for _, c := range l.Registry.Clients() {
		payload, err := l.Store.Consume(c.ID + "_out")
		if err != nil {
			log.Warn("gateway: %v", err)
			continue
		}

		for _, record := range splitRecords(payload) {
			if strings.HasPrefix(record, "_") {
				handleControl(l.Registry, l.Names, l.Store, l.Metrics, c.ID, record)
				continue
			}
			c.Send(wsxport.Msg{Kind: wsxport.MsgText, Payload: []byte(record)})
		}
	}
}

// pumpIncoming relays clients -> target: recv_all per client, sorting
// game-protocol text into "<id>_in", underscore text into the control
// handler, and 2-byte binary frames into RPC dispatch.
func (l *Loop) pumpIncoming() {
	for _, c := range l.Registry.Clients() {
		msgs := c.RecvAll()

		var gameRecords []string
		var controlRecords []string

		for _, m := range msgs {
			switch m.Kind {
			case wsxport.MsgText:
				text := string(m.Payload)
				if strings.HasPrefix(text, "_") {
					controlRecords = append(controlRecords, text)
				} else {
					gameRecords = append(gameRecords, text)
				}
			case wsxport.MsgBinary:
				if len(m.Payload) == 2 {
					dispatchRPC(l.Store, l.Metrics, m.Payload)
				} else {
					log.Warn("gateway: dropping %d-byte binary frame from %v", len(m.Payload), c.ID)
				}
			}
		}

		if len(gameRecords) > 0 {
			payload := strings.Join(gameRecords, "\x00") + "\x00"
			if err := l.Store.Write(c.ID+"_in", []byte(payload)); err != nil {
				log.Warn("gateway: %v", err)
			}
		}

		for _, record := range controlRecords {
			handleControl(l.Registry, l.Names, l.Store, l.Metrics, c.ID, record)
		}
	}
}

// pumpReload consumes rpc_out and, if it contains the literal "reload"
// record, broadcasts a single 0x01 byte to every socket of every client --
// the client-side convention for "reload the page".
func (l *Loop) pumpReload() {
	payload, err := l.Store.Consume("rpc_out")
	if err != nil {
		log.Warn("gateway: %v", err)
		return
	}

	reload := false
	for _, record := range splitRecords(payload) {
		if record == "reload" {
			reload = true
		}
	}

	if !reload {
		return
	}

	for _, c := range l.Registry.Clients() {
		c.Send(wsxport.Msg{Kind: wsxport.MsgBinary, Payload: []byte{0x01}})
	}
}

// splitRecords splits a NUL-delimited mailbox payload into records,
// discarding the trailing empty token every well-formed payload ends with.
func splitRecords(payload []byte) []string {
	if len(payload) == 0 {
		return nil
	}

	all := strings.Split(string(payload), "\x00")
	if len(all) > 0 && all[len(all)-1] == "" {
		all = all[:len(all)-1]
	}
	return all
}
