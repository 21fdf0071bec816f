package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/netforge-io/netforge/pkg/cli"
	"github.com/netforge-io/netforge/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persistent settings",
	Long: `Manage persistent settings stored in ~/.netforge/settings.json.

Settings provide defaults for flags:
  - endpoints_file:      Endpoint registry file (-E flag default)
  - inventory_file:      Device inventory file (-I flag default)
  - attempt_log:         Attempt log file path
  - attempt_log_backend: Attempt log backend (file or redis)
  - redis_addr:          Redis address for the redis backend
  - max_concurrent:      Default per-batch concurrency cap

Examples:
  netforge settings show
  netforge settings set endpoints /etc/netforge/endpoints.yaml
  netforge settings set backend redis
  netforge settings clear`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		fmt.Printf("Settings file: %s\n\n", settings.DefaultSettingsPath())

		t := cli.NewTable("SETTING", "VALUE")

		printSetting := func(name, value string) {
			if value == "" {
				value = "(not set)"
			}
			t.Row(name, value)
		}

		printSetting("endpoints_file", s.EndpointsFile)
		printSetting("inventory_file", s.InventoryFile)
		printSetting("attempt_log", s.AttemptLog)
		printSetting("attempt_log_backend", s.AttemptLogBackend)
		printSetting("redis_addr", s.RedisAddr)
		if s.MaxConcurrent > 0 {
			t.Row("max_concurrent", strconv.Itoa(s.MaxConcurrent))
		} else {
			t.Row("max_concurrent", "(not set)")
		}

		t.Flush()
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Set a setting value",
	Long: `Set a persistent setting value.

Available settings:
  endpoints       - Endpoint registry file (-E flag default)
  inventory       - Device inventory file (-I flag default)
  attempt_log     - Attempt log file path
  backend         - Attempt log backend (file or redis)
  redis_addr      - Redis address for the redis backend
  max_concurrent  - Default per-batch concurrency cap

Examples:
  netforge settings set endpoints /etc/netforge/endpoints.yaml
  netforge settings set backend redis
  netforge settings set max_concurrent 10`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		setting := args[0]
		value := args[1]

		s, err := settings.Load()
		if err != nil {
			s = &settings.Settings{}
		}

		switch setting {
		case "endpoints", "endpoints_file":
			s.EndpointsFile = value
			fmt.Printf("Endpoints file set to: %s\n", value)
		case "inventory", "inventory_file":
			s.InventoryFile = value
			fmt.Printf("Inventory file set to: %s\n", value)
		case "attempt_log":
			s.AttemptLog = value
			fmt.Printf("Attempt log set to: %s\n", value)
		case "backend", "attempt_log_backend":
			if value != "file" && value != "redis" {
				return fmt.Errorf("invalid backend %q (valid: file, redis)", value)
			}
			s.AttemptLogBackend = value
			fmt.Printf("Attempt log backend set to: %s\n", value)
		case "redis_addr":
			s.RedisAddr = value
			fmt.Printf("Redis address set to: %s\n", value)
		case "max_concurrent":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return fmt.Errorf("max_concurrent must be a positive integer, got %q", value)
			}
			s.MaxConcurrent = n
			fmt.Printf("Max concurrent set to: %d\n", n)
		default:
			return fmt.Errorf("unknown setting: %s (valid: endpoints, inventory, attempt_log, backend, redis_addr, max_concurrent)", setting)
		}

		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}

		return nil
	},
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := &settings.Settings{}
		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Println("All settings cleared.")
		return nil
	},
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show settings file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(settings.DefaultSettingsPath())
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsClearCmd)
	settingsCmd.AddCommand(settingsPathCmd)
}
