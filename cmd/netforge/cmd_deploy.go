package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/netforge-io/netforge/pkg/cli"
	"github.com/netforge-io/netforge/pkg/deploy"
	"github.com/netforge-io/netforge/pkg/util"
)

var (
	deployPayloadFile string
	deployPriorFile   string
	deployConcurrency int
	deployExecute     bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy <device>...",
	Short: "Deploy a configuration payload to one or more devices",
	Long: `Deploy a configuration payload to the named devices.

The engine resolves the best connection method per device (centralized
management API when available, direct SSH otherwise) and falls back down
the candidate list on transient failures. Without -x the batch is a dry
run: connectors are resolved and probed but nothing is applied.

A rollback payload (--prior-file) enables automatic rollback when
post-apply verification fails. Without one, a verification mismatch is
reported as a failure and the device is left as applied.

The command blocks until the batch finishes. Ctrl-C requests graceful
cancellation: pending devices are skipped, in-flight devices finish their
current operation.

Examples:
  netforge deploy leaf1-ny --payload-file golden.conf            # dry run
  netforge deploy leaf1-ny leaf2-ny --payload-file golden.conf -x
  netforge deploy leaf1-ny --payload-file new.conf --prior-file old.conf -x
  netforge deploy $(cat devices.txt) --payload-file new.conf -c 10 -x`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Accept both space- and comma-separated device lists.
		var deviceIDs []string
		for _, arg := range args {
			deviceIDs = append(deviceIDs, util.SplitCommaSeparated(arg)...)
		}

		payload, err := os.ReadFile(deployPayloadFile)
		if err != nil {
			return fmt.Errorf("reading payload: %w", err)
		}

		payloads := deploy.StaticPayloads{Default: payload}
		if deployPriorFile != "" {
			prior, err := os.ReadFile(deployPriorFile)
			if err != nil {
				return fmt.Errorf("reading prior payload: %w", err)
			}
			payloads.Priors = make(map[string][]byte, len(deviceIDs))
			for _, id := range deviceIDs {
				payloads.Priors[id] = prior
			}
		}

		if deployConcurrency == 0 {
			deployConcurrency = userSettings.MaxConcurrent
		}

		batchID, err := orchestrator.Submit(context.Background(), deploy.BatchRequest{
			DeviceIDs: deviceIDs,
			Payloads:  payloads,
			Options: deploy.Options{
				MaxConcurrent: deployConcurrency,
				DryRun:        !deployExecute,
			},
		})
		if err != nil {
			return err
		}

		if !deployExecute {
			fmt.Printf("Dry run (use -x to apply). Batch: %s\n", batchID)
		} else {
			fmt.Printf("Batch submitted: %s\n", batchID)
		}

		// First Ctrl-C cancels the batch gracefully, a second one kills us.
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		defer signal.Stop(interrupt)
		go func() {
			<-interrupt
			fmt.Fprintln(os.Stderr, "\nCancelling batch, in-flight devices will finish their current operation...")
			if err := orchestrator.Cancel(batchID); err != nil {
				util.Errorf("cancel failed: %v", err)
			}
			signal.Stop(interrupt)
		}()

		result, err := orchestrator.Wait(batchID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(result)
		}
		printBatchResult(result)
		if result.Counts.Failed > 0 {
			return fmt.Errorf("%d device(s) failed", result.Counts.Failed)
		}
		return nil
	},
}

func init() {
	deployCmd.Flags().StringVarP(&deployPayloadFile, "payload-file", "f", "", "File holding the payload to apply (required)")
	deployCmd.Flags().StringVar(&deployPriorFile, "prior-file", "", "File holding the known-good payload for rollback")
	deployCmd.Flags().IntVarP(&deployConcurrency, "max-concurrent", "c", 0,
		fmt.Sprintf("Max devices in flight (default %d)", deploy.DefaultMaxConcurrent))
	deployCmd.Flags().BoolVarP(&deployExecute, "execute", "x", false, "Apply the payload (default is dry run)")
	deployCmd.MarkFlagRequired("payload-file")
}

// formatState colors a terminal task state for the report tables.
func formatState(s deploy.State) string {
	switch s {
	case deploy.StateSucceeded:
		return cli.Green(string(s))
	case deploy.StateFailed:
		return cli.Red(string(s))
	case deploy.StateRolledBack:
		return cli.Yellow(string(s))
	case deploy.StateSkipped:
		return cli.Dim(string(s))
	default:
		return string(s)
	}
}
