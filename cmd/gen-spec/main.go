// Command gen-spec derives the fork-specific consensus modules (altair,
// bellatrix) from the phase0 base modules and their per-fork overrides.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"genspec/internal/config"
	"genspec/internal/driver"
	"genspec/internal/logging"

	"github.com/spf13/cobra"
)

// options carries flag values and the resolved configuration between the
// root command and its subcommands.
type options struct {
	configPath string
	root       string
	jobs       int
	check      bool
	verbose    bool

	cfg *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "gen-spec",
		Short: "Generate fork modules from the phase0 base",
		Long: `gen-spec regenerates <root>/<fork>/<source>.rs for every fork and source module.

Each output is the phase0 base module with overridden and expired functions
removed, generic shapes patched for the fork, the overrides from
<root>/<fork>/<source>_<fork>.rs re-exported, and the spec alias pointed at
the fork.

Run without arguments to regenerate ./src.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.DefaultPath, "config file")
	flags.StringVar(&opts.root, "root", "", "source root holding phase0/ and the fork directories (default \"src\")")
	flags.IntVar(&opts.jobs, "jobs", 1, "number of pairs generated concurrently")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().BoolVar(&opts.check, "check", false, "fail if any generated module is out of date instead of writing")

	cmd.AddCommand(newWatchCmd(opts), newConfigCmd(opts))
	return cmd
}

// setup resolves the configuration (file, then environment, then flags) and
// initializes logging.
func (o *options) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("root") {
		cfg.Root = o.root
	}
	if cmd.Flags().Changed("jobs") {
		cfg.Jobs = o.jobs
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := logging.Configure(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}
	logging.BootDebug("config file %s, log level %s, format %s", o.configPath, cfg.Logging.Level, cfg.Logging.Format)
	logging.Boot("gen-spec %s: root=%s jobs=%d", cmd.Name(), cfg.Root, cfg.Jobs)
	o.cfg = cfg
	return nil
}

func (o *options) generator(check bool) *driver.Generator {
	return driver.NewGenerator(driver.Options{
		Root:  o.cfg.Root,
		Jobs:  o.cfg.Jobs,
		Check: check,
	})
}

func runGenerate(cmd *cobra.Command, opts *options) error {
	results, err := opts.generator(opts.check).Run(cmd.Context())

	var stale *driver.StaleError
	if err != nil && !errors.As(err, &stale) {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderSummary(results, opts.check))
	return err
}
