package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/thinktopic/peer/config"
	"github.com/thinktopic/peer/log"
	"github.com/thinktopic/peer/metrics"
	"github.com/thinktopic/peer/transport/rest"
	"github.com/thinktopic/peer/transport/ws"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "peerrpcd",
	Short: "peerrpcd runs a bidirectional peer-connected API listener",
	Long: `peerrpcd accepts websocket connections from peers and multiplexes
events, RPCs, and subscriptions over a single framed duplex channel per
peer. A REST shim exposes the same RPC handlers synchronously for
clients that don't want to hold a connection open.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the listener, websocket transport, and REST shim",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringP("config", "c", "", "path to a YAML configuration file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})

	promReg := prometheus.NewRegistry()
	metrics.MustRegister(promReg)

	l := newDemoListener(cfg)

	mux := http.NewServeMux()
	mux.Handle(cfg.WSPath, ws.NewHandler(l, cfg.AllowedOrigins))
	mux.Handle(cfg.RESTPrefix+"/", http.StripPrefix(cfg.RESTPrefix, rest.NewHandler(l.API(), cfg.RESTPrefix, cfg.AllowedOrigins)))
	if cfg.MetricsPath != "" {
		mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	}

	srv := &http.Server{Addr: cfg.Listen, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.WithComponent("peerrpcd").Info().Str("addr", cfg.Listen).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.WithComponent("peerrpcd").Info().Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("listener error: %w", err)
	}

	l.Close()
	return srv.Close()
}
