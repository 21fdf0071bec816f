// Netforge - Connectivity Resolution & Concurrent Deployment Engine
//
// A CLI for pushing configuration payloads to heterogeneous network devices:
//   - Per-device connection resolution (centralized management API first,
//     direct SSH session as the universal fallback)
//   - Bounded concurrent deployment with ordered connector fallback
//   - Post-apply verification with same-connector rollback
//   - Dry-run by default (probe connectivity, require -x to apply)
//   - Attempt logging of every connector attempt
//
// Examples:
//
//	netforge deploy leaf1-ny leaf2-ny --payload-file golden.conf -x
//	netforge deploy leaf1-ny --payload-file new.conf --prior-file old.conf -x
//	netforge batch attempts 3fa85f64-5717-4562-b3fc-2c963f66afa6
//	netforge connectivity leaf1-ny
//	netforge endpoint list
//	netforge endpoint health mist-us-east
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/netforge-io/netforge/pkg/attemptlog"
	"github.com/netforge-io/netforge/pkg/connector"
	"github.com/netforge-io/netforge/pkg/deploy"
	"github.com/netforge-io/netforge/pkg/endpoint"
	"github.com/netforge-io/netforge/pkg/inventory"
	"github.com/netforge-io/netforge/pkg/settings"
	"github.com/netforge-io/netforge/pkg/util"
	"github.com/netforge-io/netforge/pkg/version"
)

var (
	// Global option flags
	endpointsFile string
	inventoryFile string
	directCredRef string
	promptAuth    bool
	verbose       bool
	jsonOutput    bool

	// Global state
	userSettings *settings.Settings
	inv          *inventory.StaticStore
	registry     *endpoint.Registry
	pool         *connector.Pool
	orchestrator *deploy.Orchestrator
	attempts     attemptlog.Logger
)

func main() {
	defer func() {
		if attempts != nil {
			attempts.Close()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "netforge",
	Short:             "Network Deployment Engine",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Netforge deploys configuration payloads to network devices over the best
available management channel, falling back from centralized controller APIs
to direct SSH sessions per device.

Write commands preview connectivity by default — use -x to apply.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Settings and version commands run without the engine.
		if isSettingsOrHelp(cmd) {
			return nil
		}

		// Credentials commonly live in a local .env during lab work.
		_ = godotenv.Load()

		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		if endpointsFile == "" {
			endpointsFile = userSettings.GetEndpointsFile()
		}
		if inventoryFile == "" {
			inventoryFile = userSettings.GetInventoryFile()
		}

		// Quiet by default, verbose on -v
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}

		inv, err = inventory.LoadFile(inventoryFile)
		if err != nil {
			return fmt.Errorf("loading inventory: %w", err)
		}

		configs, err := endpoint.LoadFile(endpointsFile)
		if err != nil {
			return fmt.Errorf("loading endpoints: %w", err)
		}
		registry = endpoint.NewRegistry(configs)

		pool = connector.NewPool(directCredRef)
		if promptAuth {
			creds, err := promptCredentials()
			if err != nil {
				return err
			}
			pool.ResolveCredentials = func(ref string) connector.Credentials {
				return creds
			}
		}

		attempts, err = openAttemptLog(userSettings)
		if err != nil {
			util.Warnf("Could not initialize attempt logging: %v", err)
		} else {
			attemptlog.SetDefaultLogger(attempts)
		}

		orchestrator = deploy.NewOrchestrator(inv, registry, pool, attempts)
		return nil
	},
}

// openAttemptLog builds the attempt log backend named in settings.
func openAttemptLog(s *settings.Settings) (attemptlog.Logger, error) {
	switch backend := s.GetAttemptLogBackend(); backend {
	case "redis":
		addr := s.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		l, err := attemptlog.NewRedisLogger(addr)
		if err != nil {
			return nil, err
		}
		return l, nil
	case "file":
		l, err := attemptlog.NewFileLogger(s.GetAttemptLog(), attemptlog.RotationConfig{
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxBackups: 10,
		})
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown attempt log backend %q (valid: file, redis)", backend)
	}
}

// isSettingsOrHelp reports whether cmd runs without loading the engine.
func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "settings", "version", "help", "completion":
			return true
		}
	}
	return false
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&endpointsFile, "endpoints", "E", "", "Endpoint registry file")
	rootCmd.PersistentFlags().StringVarP(&inventoryFile, "inventory", "I", "", "Device inventory file")
	rootCmd.PersistentFlags().StringVar(&directCredRef, "cred-ref", "NETFORGE_SSH", "Env credential ref for direct sessions")
	rootCmd.PersistentFlags().BoolVar(&promptAuth, "prompt-auth", false, "Prompt for credentials instead of reading env")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "JSON output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "deploy", Title: "Deployment Operations:"},
		&cobra.Group{ID: "query", Title: "Query Operations:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{deployCmd, batchCmd} {
		cmd.GroupID = "deploy"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{connectivityCmd, endpointCmd} {
		cmd.GroupID = "query"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{settingsCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("netforge dev build (use 'make build' for version info)")
		} else {
			fmt.Printf("netforge %s\n", version.Info())
		}
	},
}
