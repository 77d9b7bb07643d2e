package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/btrfs-snapraid/internal/version"
	"github.com/arthur-debert/btrfs-snapraid/pkg/config"
	"github.com/arthur-debert/btrfs-snapraid/pkg/logging"
	"github.com/arthur-debert/btrfs-snapraid/pkg/maintenance"
	"github.com/arthur-debert/btrfs-snapraid/pkg/runner"
	"github.com/arthur-debert/btrfs-snapraid/pkg/snapraid"
	"github.com/arthur-debert/btrfs-snapraid/pkg/subvol"
)

// NewRootCmd creates and returns the root command. Running it with no
// subcommand performs the full maintenance sequence, which is what a cron
// or systemd timer entry wants.
func NewRootCmd() *cobra.Command {
	var (
		configPath string
		verbosity  int
		quiet      bool
		dryRun     bool
	)

	rootCmd := &cobra.Command{
		Use:   "btrfs-snapraid",
		Short: "SnapRAID maintenance over btrfs snapshots",
		Long: `btrfs-snapraid closes the SnapRAID sync hole on btrfs arrays. It
points SnapRAID at a read-only snapshot per data drive, refreshes the
snapshots before each sync, and keeps a rotated chain of previously
synced snapshots so the array state that parity describes stays frozen
while the live data keeps changing.

With no subcommand the full maintenance sequence runs: touch, snapshot
refresh, diff, threshold check, sync, snapshot save, and scrub.`,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Flag-driven setup so config loading itself gets logged; the
			// [logging] section is applied right after the config loads
			logging.SetupLogger(logging.Options{
				Verbosity: verbosity,
				Quiet:     quiet,
				DryRun:    dryRun,
			})
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := buildOrchestrator(configPath, verbosity, quiet, dryRun)
			if err != nil {
				return err
			}
			return orch.Maintenance()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default is ./btrfs-snapraid.toml, /usr/local/etc or /etc)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Log errors only")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Log commands without executing them")

	maintenanceCmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Run the full maintenance sequence",
		Long: `Run the full maintenance sequence: touch (when enabled), snapshot
refresh, diff, threshold check, sync, snapshot save, and scrub (when a
scrub plan is configured). This is the same as running with no
subcommand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := buildOrchestrator(configPath, verbosity, quiet, dryRun)
			if err != nil {
				return err
			}
			return orch.Maintenance()
		},
	}

	touchCmd := &cobra.Command{
		Use:   "touch",
		Short: "Set sub-second timestamps on the live data",
		Long: `Run snapraid touch against the live data subvolumes. Touching
happens on the live data rather than the snapshots, so a temporary
snapraid config pointing at the live paths is generated for the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := buildOrchestrator(configPath, verbosity, quiet, dryRun)
			if err != nil {
				return err
			}
			return orch.Touch()
		},
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh snapshots, sync the array, save snapshots",
		Long: `Refresh every drive's snapshot from its live data, run snapraid
sync, and on success rotate the refreshed snapshots into the saved
chain. No diff or threshold check is performed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := buildOrchestrator(configPath, verbosity, quiet, dryRun)
			if err != nil {
				return err
			}
			return orch.Sync()
		},
	}

	diffCmd := &cobra.Command{
		Use:   "diff",
		Short: "Report pending changes against the live data",
		Long: `Run snapraid diff against the live data and report the removed and
updated file counts. The snapshots are left untouched, so this shows
what the next sync would pick up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := buildOrchestrator(configPath, verbosity, quiet, dryRun)
			if err != nil {
				return err
			}

			result, err := orch.Diff(true)
			if err != nil {
				return err
			}
			fmt.Printf("%d removed\n%d updated\n", result.Removed, result.Updated)
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print version information for btrfs-snapraid`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("btrfs-snapraid version %s\n", version.Version)
			fmt.Printf("  commit: %s\n", version.Commit)
			fmt.Printf("  built:  %s\n", version.Date)
		},
	}

	rootCmd.AddCommand(maintenanceCmd)
	rootCmd.AddCommand(touchCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

// buildOrchestrator loads the config and wires the component stack for
// the action commands
func buildOrchestrator(configPath string, verbosity int, quiet, dryRun bool) (*maintenance.Orchestrator, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	// Re-run setup now that the [logging] section is known
	logging.SetupLogger(logging.Options{
		Verbosity:    verbosity,
		Quiet:        quiet,
		DryRun:       dryRun,
		ConsoleLevel: cfg.Logging.ConsoleLevel,
		File:         cfg.Logging.File,
		FileLevel:    cfg.Logging.FileLevel,
	})

	run := runner.New(runner.Options{DryRun: dryRun})
	subvols := subvol.New(subvol.Options{Runner: run, Config: cfg})
	tool := snapraid.New(snapraid.Options{Runner: run, Config: cfg})

	return maintenance.New(maintenance.Options{
		Config:     cfg,
		Subvolumes: subvols,
		Tool:       tool,
		DryRun:     dryRun,
	}), nil
}
