package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sweeney/trigger-loop/internal/gpio"
)

func newPrintStateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "print-state",
		Short: "Print the current level of every input and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			reader, err := gpio.NewRealReader(cfg.Chip, cfg.Lines())
			if err != nil {
				return fmt.Errorf("init gpio: %w", err)
			}
			defer reader.Close()
			return printState(cmd.OutOrStdout(), reader, cfg.InputNames())
		},
	}
}

func printState(w io.Writer, reader gpio.Reader, names []string) error {
	sample, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	for _, name := range names {
		fmt.Fprintf(w, "%s: %s\n", name, levelString(sample[name]))
	}
	return nil
}

func levelString(on bool) string {
	if on {
		return "HIGH"
	}
	return "LOW"
}
