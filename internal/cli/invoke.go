package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/workflow"
	"github.com/spf13/cobra"
)

var paramsPath string

var invokeCommand = &cobra.Command{
	Use:     "invoke",
	GroupID: "snapsentry",
	Short:   "Execute one run from a JSON parameter mapping",
	Long: `Reads a JSON object {"user": ..., "pwd": ..., "nasname": ...} from a file or
stdin, where "nasname" is a single name or a list of names, runs the retention
workflow and prints the JSON result. Invalid parameters are reported as
{"error": ...} like any other fatal failure.`,
	Example: `  echo '{"user":"alice","pwd":"...","nasname":["data","logs"]}' | nas-snapsentry invoke --params -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		printHeader(cmd.ErrOrStderr(), "Snapsentry - Invocation")

		params, err := readParams(cmd, paramsPath)
		if err != nil {
			return printResult(cmd, workflow.Result{Error: err.Error()})
		}

		inv, err := workflow.DecodeInvocation(params)
		if err != nil {
			return printResult(cmd, workflow.Result{Error: err.Error()})
		}

		return printResult(cmd, workflow.RunRetentionWorkflow(cfg, inv, dryRun))
	},
}

func readParams(cmd *cobra.Command, path string) (map[string]any, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open parameters: %w", err)
		}
		defer f.Close()
		r = f
	}

	var params map[string]any
	if err := json.NewDecoder(r).Decode(&params); err != nil {
		return nil, fmt.Errorf("failed to parse parameters: %w", err)
	}
	return params, nil
}

func init() {
	rootCommand.AddCommand(invokeCommand)
	invokeCommand.Flags().StringVar(&paramsPath, "params", "-", "Path to the JSON parameters, or - for stdin")
	invokeCommand.Flags().BoolVar(&dryRun, "dry-run", false, "Evaluate decisions without creating or deleting snapshots")
}
