// Command padgate is the local gateway that bridges browser-based
// control-pad clients to a game process over a file-backed mailbox
// layer (see SPEC_FULL.md). It takes no flags: every setting is either
// compiled in, or supplied via an optional YAML file named by the
// PADGATE_CONFIG environment variable.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rqnio/padgate/internal/config"
	"github.com/rqnio/padgate/internal/gateway"
	"github.com/rqnio/padgate/internal/mailbox"
	"github.com/rqnio/padgate/internal/metrics"
	"github.com/rqnio/padgate/internal/namedir"
	"github.com/rqnio/padgate/internal/peripheral"
	"github.com/rqnio/padgate/internal/registry"
	"github.com/rqnio/padgate/internal/wsxport"
	log "github.com/rqnio/padgate/pkg/minilog"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "padgate",
		Short:         "Bridge browser control-pad clients to a local game process",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the padgate version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "doctor",
		Short: "Check that padgate's environment is ready to run",
		RunE:  runDoctor,
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "padgate:", err)
		os.Exit(1)
	}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := peripheral.RefuseRoot(); err != nil {
		return err
	}
	fmt.Println("ok: not running as root")

	if err := peripheral.EnsureDirs(cfg.IPCDir, cfg.LockDir); err != nil {
		return err
	}
	fmt.Printf("ok: ipc dir %v and lock dir %v are writable\n", cfg.IPCDir, cfg.LockDir)

	ln, err := wsxport.Listen(cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("cannot bind %v: %w", cfg.ListenAddr, err)
	}
	ln.Close()
	fmt.Printf("ok: %v is free\n", cfg.ListenAddr)

	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := peripheral.RefuseRoot(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := log.Setup(level, cfg.LogFile); err != nil {
		return err
	}

	recent := log.NewRing(200)
	log.AddSink("ring", recent, log.DEBUG, false)

	instanceID := uuid.New().String()
	log.Info("padgate %v starting, instance %v", version, instanceID)

	if err := peripheral.EnsureDirs(cfg.IPCDir, cfg.LockDir); err != nil {
		return err
	}
	if err := peripheral.ClearStaleMailboxes(cfg.IPCDir); err != nil {
		return err
	}

	tickInterval, err := time.ParseDuration(cfg.TickInterval)
	if err != nil {
		return fmt.Errorf("config: invalid tick_interval %q: %w", cfg.TickInterval, err)
	}

	m := metrics.New()

	store := mailbox.New(cfg.IPCDir, cfg.LockDir)
	store.Counter = m

	names := namedir.New()
	reg := registry.New(store, names)

	ln, err := wsxport.Listen(cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("bind %v: %w", cfg.ListenAddr, err)
	}
	defer ln.Close()
	log.Info("padgate: listening for control-pad connections on %v", cfg.ListenAddr)

	loop := &gateway.Loop{
		Listener:     ln,
		Registry:     reg,
		Names:        names,
		Store:        store,
		Metrics:      m,
		TickInterval: tickInterval,
	}

	stopWatch := make(chan struct{})
	defer close(stopWatch)
	config.WatchLogLevel(func(l log.Level) {
		_ = log.SetLevel("stderr", l)
	}, stopWatch)

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/debug/log", func(w http.ResponseWriter, r *http.Request) {
		for _, line := range recent.Grep(r.URL.Query().Get("q")) {
			fmt.Fprintln(w, line)
		}
	})

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("padgate: metrics server: %v", err)
		}
	}()
	defer metricsSrv.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loop.Run(ctx)

	log.Info("padgate: shutting down")
	return nil
}
