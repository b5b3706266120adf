package main

import (
	"bufio"
	"bytes"
	"log/slog"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"

	"github.com/matkrin/lintgutter/internal/linter"
	"github.com/matkrin/lintgutter/internal/lsp"
	"github.com/matkrin/lintgutter/internal/server"
)

const maxMessageSize = 64 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a language server over stdin and stdout",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. localhost:9464")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	metricsAddr, err := cmd.Flags().GetString("metrics-addr")
	if err != nil {
		return err
	}

	lint, err := linter.New(cfg.LinterOptions(), logger)
	if err != nil {
		return err
	}

	state := server.NewState(server.Config{
		Language: cfg.Language,
		Encoding: cfg.Encoding,
		Debounce: cfg.DebounceDuration(),
		Priority: cfg.Priority,
	})
	srv, err := server.NewServer(name, version, state, cmd.OutOrStdout(), lint, logger)
	if err != nil {
		return err
	}
	defer srv.Stop()

	if metricsAddr != "" {
		go serveMetrics(metricsAddr, logger)
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	scanner.Split(lsp.Split)

	for scanner.Scan() {
		method, contents, err := lsp.DecodeMessage(scanner.Bytes())
		if err != nil {
			srv.HandleDecodeError(err)
			continue
		}
		srv.HandleMessage(method, bytes.Clone(contents))
	}
	return scanner.Err()
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	logger.Info("Serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server stopped", "err", err)
	}
}
