package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/netforge-io/netforge/pkg/cli"
)

var connectivityCmd = &cobra.Command{
	Use:   "connectivity <device>",
	Short: "Probe every candidate connection method for a device",
	Long: `Probe each ranked connection method for a device without applying
anything. Candidates are probed in resolution order, centralized endpoints
first, direct SSH session last.

Examples:
  netforge connectivity leaf1-ny
  netforge connectivity ap-branch-12 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := orchestrator.TestConnectivity(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(results)
		}

		fmt.Printf("\nConnectivity for %s\n\n", cli.Bold(args[0]))
		for kind, res := range results {
			verdict := cli.Green(fmt.Sprintf("reachable (%s)", res.Latency.Round(time.Millisecond)))
			if !res.Reachable {
				verdict = cli.Red("unreachable") + cli.Dim(" "+res.Error)
			}
			fmt.Printf("%s %s\n", cli.DotPad(string(kind), 36), verdict)
		}
		return nil
	},
}
