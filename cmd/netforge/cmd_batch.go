package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/netforge-io/netforge/pkg/attemptlog"
	"github.com/netforge-io/netforge/pkg/cli"
	"github.com/netforge-io/netforge/pkg/deploy"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch history operations",
	Long: `Inspect finished and running batches through the attempt log.

Examples:
  netforge batch attempts 3fa85f64-5717-4562-b3fc-2c963f66afa6
  netforge batch attempts 3fa85f64-5717-4562-b3fc-2c963f66afa6 --device leaf1-ny
  netforge batch attempts 3fa85f64-5717-4562-b3fc-2c963f66afa6 --outcome timeout`,
}

var (
	attemptsDevice  string
	attemptsOutcome string
	attemptsLimit   int
)

var batchAttemptsCmd = &cobra.Command{
	Use:   "attempts <batch-id>",
	Short: "Query the attempt log for a batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := attemptlog.Query(attemptlog.Filter{
			BatchID:  args[0],
			DeviceID: attemptsDevice,
			Outcome:  attemptlog.Outcome(attemptsOutcome),
			Limit:    attemptsLimit,
		})
		if err != nil {
			return fmt.Errorf("querying attempt log: %w", err)
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(records)
		}

		t := cli.NewTable("TIME", "DEVICE", "CONNECTOR", "OPERATION", "OUTCOME", "LATENCY", "ERROR")
		for _, r := range records {
			t.Row(
				r.Started.Format("2006-01-02 15:04:05"),
				r.DeviceID,
				r.Connector,
				r.Operation,
				string(r.Outcome),
				r.Latency.String(),
				r.Error,
			)
		}
		t.Flush()
		if len(records) == 0 {
			fmt.Println("No attempts recorded.")
		}
		return nil
	},
}

func init() {
	batchAttemptsCmd.Flags().StringVar(&attemptsDevice, "device", "", "Filter by device id")
	batchAttemptsCmd.Flags().StringVar(&attemptsOutcome, "outcome", "", "Filter by outcome (success, connect-error, auth-error, timeout, rejected, unsupported)")
	batchAttemptsCmd.Flags().IntVar(&attemptsLimit, "limit", 0, "Max records to return")

	batchCmd.AddCommand(batchAttemptsCmd)
}

// printBatchResult renders the batch report as tables.
func printBatchResult(result deploy.BatchResult) {
	fmt.Printf("\nBatch %s\n", cli.Bold(result.BatchID))
	fmt.Printf("Started: %s\n", result.Started.Format("2006-01-02 15:04:05"))
	if result.Done {
		fmt.Printf("Ended:   %s (%s)\n", result.Ended.Format("2006-01-02 15:04:05"), result.Ended.Sub(result.Started))
	}
	if result.Cancelled {
		fmt.Println(cli.Yellow("Batch was cancelled."))
	}
	if result.DryRun {
		fmt.Println(cli.Dim("Dry run: nothing was applied."))
	}
	fmt.Println()

	t := cli.NewTable("DEVICE", "STATE", "ATTEMPTS", "DETAIL")
	for _, task := range result.Tasks {
		detail := task.Reason
		if task.RollbackFailed {
			detail = cli.Red("ROLLBACK FAILED: ") + detail
		}
		t.Row(task.DeviceID, formatState(task.State), fmt.Sprintf("%d", len(task.Attempts)), detail)
	}
	t.Flush()

	fmt.Printf("\n%s succeeded, %s failed, %s rolled back, %s skipped (%d total)\n",
		cli.Green(fmt.Sprintf("%d", result.Counts.Succeeded)),
		cli.Red(fmt.Sprintf("%d", result.Counts.Failed)),
		cli.Yellow(fmt.Sprintf("%d", result.Counts.RolledBack)),
		cli.Dim(fmt.Sprintf("%d", result.Counts.Skipped)),
		result.Counts.Total())
}
