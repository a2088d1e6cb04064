// cmd/steely/root.go
package main

import (
	"context"
	"log/slog"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"go-steely/internal/config"
	"go-steely/internal/design"
	"go-steely/internal/logger"
	"go-steely/internal/logging"
)

// app carries what every subcommand needs after flags are parsed.
type app struct {
	cfgPath string
	verbose bool
	cfg     config.Config
	log     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "steely",
		Short: "Trace, time and log Go function calls",
		Long: `steely decorates Go functions: scan prints local bindings as they change,
cronos times calls and the logger reports their start and end.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	// Persistent flags (available to all commands)
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "YAML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log debug diagnostics to stderr")
	root.PersistentFlags().Bool("no-color", false, "Disable colored output")
	root.PersistentFlags().String("app-name", "", "Application name shown in log lines")

	root.AddCommand(newDemoCmd(a), newServeCmd(a), newInstrumentCmd(a), newVersionCmd())
	return root
}

// load reads the config file, then applies flags the user set explicitly.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("no-color") {
		cfg.NoColor, _ = flags.GetBool("no-color")
	}
	if flags.Changed("app-name") {
		cfg.AppName, _ = flags.GetString("app-name")
	}
	a.cfg = cfg

	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.log = logging.NewWithWriter(cmd.ErrOrStderr(), level)
	return nil
}

func (a *app) palette() []design.Option {
	if a.cfg.NoColor {
		return []design.Option{design.WithProfile(termenv.Ascii)}
	}
	return nil
}

// startLogging starts a dispatcher sized by the config and returns logger
// options bound to it. stop drains the queue.
func (a *app) startLogging(cmd *cobra.Command) (opts []logger.Option, stop func(), err error) {
	d := logger.NewDispatcher(logger.WithQueueSize(a.cfg.QueueSize), logger.WithWorkers(a.cfg.Workers))
	if err := d.Start(); err != nil {
		return nil, nil, err
	}
	opts = []logger.Option{
		logger.WithOutput(cmd.OutOrStdout(), a.palette()...),
		logger.WithDispatcher(d),
		logger.WithDestination(a.cfg.LogDir),
		logger.WithDebug(a.cfg.Debug),
		logger.WithClean(a.cfg.Clean),
		logger.WithDiagnostics(a.log),
	}
	stop = func() {
		if err := d.Stop(context.Background()); err != nil {
			a.log.Warn("stop log dispatcher", "err", err)
		}
	}
	return opts, stop, nil
}
