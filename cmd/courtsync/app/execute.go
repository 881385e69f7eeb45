package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/courtsync/cmd/courtsync/cmd"
	"github.com/agentstation/courtsync/internal/cmd/output"
	"github.com/agentstation/courtsync/internal/config"
	"github.com/agentstation/courtsync/pkg/errors"
)

// Execute runs the CLI with args.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "courtsync",
		Short:   "Court register to NOMIS reconciliation",
		Version: a.version.Version,
		Long: `courtsync keeps the courts held in NOMIS in line with the court register.

It can run a one-off reconciliation, serve the reconciliation over HTTP, or
consume court register change events and reconcile each court as it changes.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	rootCmd.SetOut(a.out)

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.flags.ConfigFile, "config", "", "config file (default is ./courtsync.yaml)")
	flags.BoolVarP(&a.flags.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	flags.BoolVarP(&a.flags.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	flags.BoolVar(&a.flags.NoColor, "no-color", false, "disable colored output")
	flags.StringVarP(&a.flags.Format, "format", "o", "", "output format: table, wide, json, yaml")
	flags.StringVar(&a.flags.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.SetVersionTemplate("courtsync {{.Version}}\n")

	rootCmd.AddCommand(
		cmd.NewServeCommand(a),
		cmd.NewSyncCommand(a),
		cmd.NewListenCommand(a),
		cmd.NewVersionCommand(a),
	)
	return rootCmd
}

// setupCommand runs before every command: it loads an explicit --config,
// checks --format and rebuilds the logger from the parsed flags.
func (a *App) setupCommand(_ *cobra.Command, _ []string) error {
	if _, err := output.ParseFormat(a.flags.Format); err != nil {
		return err
	}

	if a.flags.ConfigFile != "" && !a.configInjected {
		cfg, err := config.Load(a.flags.ConfigFile)
		if err != nil {
			return errors.WrapResource("load", "config", a.flags.ConfigFile, err)
		}
		a.config = cfg
	}

	if !a.loggerInjected {
		logger := NewLogger(a.config, a.flags)
		a.logger = &logger
	}
	if a.config.File != "" {
		a.logger.Debug().Str("file", a.config.File).Msg("Loaded config")
	}
	return nil
}

// ExitOnError prints err and exits with status 1.
func ExitOnError(err error) {
	if err != nil {
		//nolint:errcheck // exiting anyway
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
