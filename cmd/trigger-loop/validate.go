package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sweeney/trigger-loop/internal/binding"
	"github.com/sweeney/trigger-loop/internal/config"
	"github.com/sweeney/trigger-loop/internal/gpio"
	"github.com/sweeney/trigger-loop/internal/loop"
	"github.com/sweeney/trigger-loop/internal/task"
)

func newValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config file and exit",
		Long: `Load the config file, apply environment overrides and compile every
binding without touching GPIO or the broker.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			inputs := gpio.NewInputs(gpio.NewFakeReader(nil))
			n, err := binding.Build(cfg, loop.New(inputs, nil, log), inputs, task.NewScheduler(nil, nil), binding.WithLogger(log))
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), opts.ConfigPath, cfg, n)
			return nil
		},
	}
}

func printSummary(w io.Writer, path string, cfg *config.Config, reactions int) {
	fmt.Fprintf(w, "%s: ok\n", path)
	fmt.Fprintf(w, "  poll=%v heartbeat=%v broker=%s http=%q\n", cfg.Poll, cfg.Heartbeat, cfg.Broker, cfg.HTTP)
	fmt.Fprintf(w, "  %d inputs, %d tasks, %d bindings\n", len(cfg.Inputs), len(cfg.Tasks), reactions)
}
