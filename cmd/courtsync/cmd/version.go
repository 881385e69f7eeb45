package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/agentstation/courtsync/cmd/application"
	"github.com/agentstation/courtsync/internal/cmd/output"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := app.Version()
			w := cmd.OutOrStdout()

			switch format := app.OutputFormat(); format {
			case output.FormatJSON, output.FormatYAML:
				return output.NewFormatter(format).Format(w, info)
			}

			fmt.Fprintf(w, "courtsync version %s\n", info.Version)
			fmt.Fprintf(w, "commit: %s\n", info.Commit)
			fmt.Fprintf(w, "built: %s\n", info.Date)
			fmt.Fprintf(w, "built by: %s\n", info.BuiltBy)
			fmt.Fprintf(w, "go version: %s\n", runtime.Version())
			fmt.Fprintf(w, "platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
