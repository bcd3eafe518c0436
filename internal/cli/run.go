package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/workflow"
	"github.com/spf13/cobra"
)

var dryRun bool

var runCommand = &cobra.Command{
	Use:     "run",
	GroupID: "snapsentry",
	Short:   "Execute the snapshot retention workflow once",
	Long: `Authenticates once, fetches the project's snapshots, and for every NAS name
creates a snapshot, deletes expired snapshots, or does nothing. The outcome per
NAS name is printed as JSON on stdout.`,
	Example: `  nas-snapsentry run --user alice --nas data --nas logs
  NAS_SNAPSENTRY_JOB_PASSWORD=... nas-snapsentry run --user alice --nas data --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		printHeader(cmd.ErrOrStderr(), "Snapsentry - Retention Workflow")

		if !cfg.HasJob() {
			return errors.New("a user and at least one --nas name are required")
		}

		inv := workflow.Invocation{
			User:     cfg.Job.User,
			Password: cfg.Job.Password,
			NASNames: cfg.Job.NASNames,
		}
		return printResult(cmd, workflow.RunRetentionWorkflow(cfg, inv, dryRun))
	},
}

// printResult writes res as JSON to stdout and turns a fatal run into a non-zero exit.
func printResult(cmd *cobra.Command, res workflow.Result) error {
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if res.Failed() {
		return fmt.Errorf("run failed: %s", res.Error)
	}
	return nil
}

func init() {
	rootCommand.AddCommand(runCommand)
	runCommand.Flags().String("user", "", "Account user name, also the project name")
	runCommand.Flags().String("pwd", "", "Account password (prefer NAS_SNAPSENTRY_JOB_PASSWORD)")
	runCommand.Flags().StringSlice("nas", nil, "NAS share name to process (repeatable)")
	runCommand.Flags().BoolVar(&dryRun, "dry-run", false, "Evaluate decisions without creating or deleting snapshots")
}
