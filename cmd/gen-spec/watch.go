package main

import (
	"fmt"
	"time"

	"genspec/internal/driver"
	"genspec/internal/logging"

	"github.com/spf13/cobra"
)

func newWatchCmd(opts *options) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate whenever a base or override module changes",
		Long: `Runs one full generation, then watches <root>/phase0 and every fork
directory. Each settled change to a base or override module triggers a full
regeneration; failures are reported and watching continues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			gen := opts.generator(false)

			if results, err := gen.Run(ctx); err != nil {
				fmt.Fprintln(out, errorStyle.Render("error:"), err)
			} else {
				fmt.Fprint(out, renderSummary(results, false))
			}

			w, err := driver.NewWatcher(gen, debounce)
			if err != nil {
				return err
			}
			w.OnRun = func(results []driver.Result, err error) {
				if err != nil {
					fmt.Fprintln(out, errorStyle.Render("error:"), err)
					return
				}
				fmt.Fprint(out, renderSummary(results, false))
			}
			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("watch %s: %w", gen.Root(), err)
			}
			defer w.Stop()

			logging.Watch("watching %s", gen.Root())
			fmt.Fprintf(out, "watching %s, press ctrl-c to stop\n", gen.Root())

			select {
			case <-ctx.Done():
			case <-w.Done():
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", driver.DefaultDebounce, "quiet period before regenerating")
	return cmd
}
