package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/netforge-io/netforge/pkg/cli"
	"github.com/netforge-io/netforge/pkg/endpoint"
)

var endpointCmd = &cobra.Command{
	Use:   "endpoint",
	Short: "Endpoint registry operations",
	Long: `Inspect the centralized management endpoints known to the engine.

Examples:
  netforge endpoint list
  netforge endpoint health
  netforge endpoint health mist-us-east`,
}

var endpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		statuses := registry.List()
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(statuses)
		}

		t := cli.NewTable("NAME", "PLATFORM", "BASE URL", "PRIORITY", "STATE")
		for _, s := range statuses {
			state := cli.Green("enabled")
			if s.Config.LoadErr != "" {
				state = cli.Red("invalid: " + s.Config.LoadErr)
			} else if !s.Config.Enabled {
				state = cli.Dim("disabled")
			}
			t.Row(s.Config.Name, string(s.Config.Platform), s.Config.BaseURL,
				fmt.Sprintf("%d", s.Config.Priority), state)
		}
		t.Flush()
		if len(statuses) == 0 {
			fmt.Println("No endpoints registered.")
		}
		return nil
	},
}

var endpointHealthCmd = &cobra.Command{
	Use:   "health [name]",
	Short: "Probe endpoint health",
	Long: `Probe registered endpoints and report health. With a name, probes that
endpoint only; without, probes every available endpoint. Results are cached
for the registry's health TTL.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if len(args) == 1 {
			health := registry.HealthCheck(ctx, args[0])
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(map[string]endpoint.Health{args[0]: health})
			}
			fmt.Printf("%s %s\n", cli.DotPad(args[0], 36), formatHealth(health))
			return nil
		}

		statuses := registry.View(ctx)
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(statuses)
		}
		for _, s := range statuses {
			fmt.Printf("%s %s\n", cli.DotPad(s.Config.Name, 36), formatHealth(s.Health))
		}
		return nil
	},
}

func formatHealth(h endpoint.Health) string {
	switch h {
	case endpoint.Healthy:
		return cli.Green(string(h))
	case endpoint.Unhealthy:
		return cli.Red(string(h))
	default:
		return cli.Yellow(string(h))
	}
}

func init() {
	endpointCmd.AddCommand(endpointListCmd)
	endpointCmd.AddCommand(endpointHealthCmd)
}
