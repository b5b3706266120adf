package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/matkrin/lintgutter/internal/config"
	"github.com/matkrin/lintgutter/internal/logger"
)

const (
	name    = "lintgutter"
	version = "0.1.0"
)

// errIssuesFound makes check exit with status 1 without printing anything.
var errIssuesFound = errors.New("error diagnostics found")

var rootCmd = &cobra.Command{
	Use:           name,
	Short:         "Run a linter in the background and mark its findings in the gutter",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = version

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(viewCmd)

	registerPersistentFlags(rootCmd.PersistentFlags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errIssuesFound) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		}
		os.Exit(1)
	}
}

func registerPersistentFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "config file (.toml, .yaml or .yml)")
	flags.String("log-level", "", "log level (debug|info|warn|error), overrides the config file")
	flags.String("log-file", "", "write logs to this file instead of stderr")
	flags.String("color", "auto", "colorize output (auto|on|off)")
}

// setup loads the configuration and initializes logging for a command. The
// returned cleanup closes the log file.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, func(), error) {
	flags := cmd.Root().PersistentFlags()

	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, nil, nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	if level, _ := flags.GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if file, _ := flags.GetString("log-file"); file != "" {
		cfg.Log.File = file
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("validating config: %w", err)
	}

	log, closer, err := logger.Init(logger.Config{
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
		Format: cfg.Log.Format,
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, nil, err
	}
	log.Debug("Logging initialized", "level", cfg.Log.Level, "command", cfg.Command)

	cleanup := func() {
		if err := closer.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "%s: closing log file: %v\n", name, err)
		}
	}
	return cfg, log, cleanup, nil
}

func useColor(cmd *cobra.Command, out io.Writer) (bool, error) {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, err
	}
	switch colorFlag {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto":
		f, ok := out.(*os.File)
		return ok && isTerminal(f), nil
	default:
		return false, fmt.Errorf("unknown --color value %q", colorFlag)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
