// Package cmd holds the courtsync subcommands. Each constructor takes an
// application.Application so commands can run against a Mock in tests.
package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/courtsync/cmd/application"
	"github.com/agentstation/courtsync/internal/cmd/output"
	"github.com/agentstation/courtsync/pkg/differ"
	"github.com/agentstation/courtsync/pkg/logging"
	"github.com/agentstation/courtsync/pkg/sync"
)

// TriggerCLI labels passes started from the command line.
const TriggerCLI = "cli"

// NewSyncCommand creates the sync command.
func NewSyncCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sync",
		GroupID: "core",
		Short:   "Reconcile courts from the court register into NOMIS",
		Long: `Run a single reconciliation pass and print the per-court statistics.

Without --court every active register court is reconciled, legacy courts the
register no longer lists are deactivated, and courts that already match are
left alone. Writes are only issued when sync.apply-changes is true and
--dry-run is not given.`,
		Example: `  # Preview a full pass
  courtsync sync --dry-run

  # Reconcile one court and print YAML
  courtsync sync --court SHFCC --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, app)
		},
	}

	cmd.Flags().String("court", "", "reconcile a single court id")
	cmd.Flags().Bool("dry-run", false, "compute differences without writing to NOMIS")

	return cmd
}

func runSync(cmd *cobra.Command, app application.Application) error {
	courtID, _ := cmd.Flags().GetString("court")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	var opts []sync.Option
	if dryRun {
		opts = append(opts, sync.WithDryRun(true))
	}

	ctx := logging.WithTrigger(logging.WithLogger(cmd.Context(), app.Logger()), TriggerCLI)
	svc, err := app.Services(ctx, opts...)
	if err != nil {
		return err
	}

	start := time.Now()
	var stats *sync.Statistics
	if courtID != "" {
		stats, err = svc.Syncer.SyncCourt(ctx, courtID)
	} else {
		stats, err = svc.Syncer.FullSync(ctx)
	}
	svc.Metrics.ObserveSync(TriggerCLI, time.Since(start), stats)
	if err != nil {
		return err
	}

	logging.Ctx(ctx).Info().
		Int("courts", stats.Len()).
		Int("errors", stats.Count(differ.ClassError)).
		Dur("elapsed", time.Since(start)).
		Msg("Sync complete")

	return output.NewFormatter(app.OutputFormat()).Format(cmd.OutOrStdout(), stats)
}
