package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sweeney/trigger-loop/internal/config"
	"github.com/sweeney/trigger-loop/internal/logger"
)

// DefaultConfigPath is read when --config is not given.
const DefaultConfigPath = "/etc/trigger-loop/config.yaml"

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath string
	LogLevel   string // overrides the config file when set
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "trigger-loop",
		Short:         "Run tasks from debounced GPIO conditions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", DefaultConfigPath, "config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (trace|debug|info|warn|error)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newValidateCommand(opts))
	cmd.AddCommand(newPrintStateCommand(opts))

	return cmd
}

// load reads the config and builds the logger it asks for.
func (o *rootOptions) load(w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("--log-level: %w", err)
	}
	log, _, err := logger.New(w, cfg.LogFormat, level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
