package main

import (
	"github.com/spf13/cobra"

	"github.com/matkrin/lintgutter/internal/linter"
	"github.com/matkrin/lintgutter/internal/tui"
)

var viewCmd = &cobra.Command{
	Use:   "view FILE",
	Short: "Browse a file with live lint markers",
	Args:  cobra.ExactArgs(1),
	RunE:  runView,
}

func runView(cmd *cobra.Command, args []string) error {
	cfg, logger, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	lint, err := linter.New(cfg.LinterOptions(), logger)
	if err != nil {
		return err
	}

	return tui.Run(args[0], tui.Options{
		Runner:   lint,
		Language: cfg.Language,
		Encoding: cfg.Encoding,
		Debounce: cfg.DebounceDuration(),
		Priority: cfg.Priority,
		Logger:   logger,
	})
}
