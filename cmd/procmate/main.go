package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all commands
type GlobalFlags struct {
	ConfigPath string
}

// APIFlags holds daemon connection flags for client commands
type APIFlags struct {
	URL     string
	Timeout time.Duration
}

// ProcessFlags holds per-process flags for client commands
type ProcessFlags struct {
	Key  string
	Wait time.Duration
	API  APIFlags
}

// buildRoot assembles the root command and all subcommands
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	root := createRootCommand(globalFlags)

	root.AddCommand(
		createServeCommand(globalFlags),
		createStatusCommand(),
		createStartCommand(),
		createStopCommand(),
		createRestartCommand(),
		createEnsureCommand(),
		createLogsCommand(),
		createAutostartCommand(),
		createSweepCommand(),
	)

	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "procmate",
		Short: "Standalone process supervision tool",
		Long: `Procmate keeps long-lived helper processes registered, running,
and restarted on crash or schedule.

Examples:
  procmate serve --config=procmate.toml   # Start daemon
  procmate status                         # Show all processes
  procmate restart --key=bridge           # Restart one process
  procmate status --api-url=http://remote:8321/api`,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file")

	return root
}

// addAPIFlags attaches daemon connection flags to a client command
func addAPIFlags(cmd *cobra.Command, api *APIFlags) {
	cmd.Flags().StringVar(&api.URL, "api-url", "", "daemon URL (default http://127.0.0.1:8321/api)")
	cmd.Flags().DurationVar(&api.Timeout, "api-timeout", 30*time.Second, "request timeout")
}

func createStatusCommand() *cobra.Command {
	flags := &ProcessFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show process status",
		Long: `Show the status of processes managed by the procmate daemon.

Examples:
  procmate status               # All processes
  procmate status --key=bridge  # One process, including metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(flags.API).Status(flags.Key)
		},
	}
	cmd.Flags().StringVar(&flags.Key, "key", "", "process key (optional)")
	addAPIFlags(cmd, &flags.API)
	return cmd
}

func createStartCommand() *cobra.Command {
	flags := &ProcessFlags{}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(flags.API).Start(flags.Key)
		},
	}
	cmd.Flags().StringVar(&flags.Key, "key", "", "process key (required)")
	addAPIFlags(cmd, &flags.API)
	if err := cmd.MarkFlagRequired("key"); err != nil {
		panic(err)
	}
	return cmd
}

func createStopCommand() *cobra.Command {
	flags := &ProcessFlags{}
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a process",
		Long: `Stop a running process. The daemon sends SIGTERM to the process
group and escalates to SIGKILL after the wait window.

Examples:
  procmate stop --key=bridge
  procmate stop --key=bridge --wait=5s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(flags.API).Stop(flags.Key, flags.Wait)
		},
	}
	cmd.Flags().StringVar(&flags.Key, "key", "", "process key (required)")
	cmd.Flags().DurationVar(&flags.Wait, "wait", 0, "graceful shutdown window (daemon default when unset)")
	addAPIFlags(cmd, &flags.API)
	if err := cmd.MarkFlagRequired("key"); err != nil {
		panic(err)
	}
	return cmd
}

func createRestartCommand() *cobra.Command {
	flags := &ProcessFlags{}
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart a process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(flags.API).Restart(flags.Key, flags.Wait)
		},
	}
	cmd.Flags().StringVar(&flags.Key, "key", "", "process key (required)")
	cmd.Flags().DurationVar(&flags.Wait, "wait", 0, "graceful shutdown window (daemon default when unset)")
	addAPIFlags(cmd, &flags.API)
	if err := cmd.MarkFlagRequired("key"); err != nil {
		panic(err)
	}
	return cmd
}

func createEnsureCommand() *cobra.Command {
	flags := &ProcessFlags{}
	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Start a process unless it is already running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(flags.API).Ensure(flags.Key)
		},
	}
	cmd.Flags().StringVar(&flags.Key, "key", "", "process key (required)")
	addAPIFlags(cmd, &flags.API)
	if err := cmd.MarkFlagRequired("key"); err != nil {
		panic(err)
	}
	return cmd
}

func createLogsCommand() *cobra.Command {
	flags := &ProcessFlags{}
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show captured process output",
		Long: `Show the most recent output lines captured from a process,
including synthetic lifecycle entries.

Examples:
  procmate logs --key=bridge
  procmate logs --key=bridge --limit=200`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(flags.API).Logs(flags.Key, limit)
		},
	}
	cmd.Flags().StringVar(&flags.Key, "key", "", "process key (required)")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of lines")
	addAPIFlags(cmd, &flags.API)
	if err := cmd.MarkFlagRequired("key"); err != nil {
		panic(err)
	}
	return cmd
}

func createAutostartCommand() *cobra.Command {
	flags := &ProcessFlags{}
	var enabled bool
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Toggle the autostart flag for a process",
		Long: `Enable or disable the autostart flag. The daemon's periodic sweep
starts every autostart-enabled process that is not running.

Examples:
  procmate autostart --key=bridge --enabled=true
  procmate autostart --key=bridge --enabled=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(flags.API).Autostart(flags.Key, enabled)
		},
	}
	cmd.Flags().StringVar(&flags.Key, "key", "", "process key (required)")
	cmd.Flags().BoolVar(&enabled, "enabled", true, "desired autostart state")
	addAPIFlags(cmd, &flags.API)
	if err := cmd.MarkFlagRequired("key"); err != nil {
		panic(err)
	}
	return cmd
}

func createSweepCommand() *cobra.Command {
	flags := &ProcessFlags{}
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the autostart and schedule sweep now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(flags.API).Sweep()
		},
	}
	addAPIFlags(cmd, &flags.API)
	return cmd
}

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the procmate daemon",
		Long: `Start the procmate daemon to supervise configured processes.
All configuration is loaded from a TOML config file.

Examples:
  procmate serve --config=procmate.toml
  procmate serve procmate.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := globalFlags.ConfigPath
			if len(args) > 0 {
				configPath = args[0]
			}
			return runServe(configPath)
		},
	}
	return cmd
}
