// Package maintenance sequences the four supported array actions (touch,
// sync, diff, maintenance) over the snapshot manager and the SnapRAID
// tool, gating the irreversible sync behind the configured change
// thresholds.
package maintenance

import (
	"github.com/rs/zerolog"

	"github.com/arthur-debert/btrfs-snapraid/pkg/config"
	"github.com/arthur-debert/btrfs-snapraid/pkg/errors"
	"github.com/arthur-debert/btrfs-snapraid/pkg/logging"
	"github.com/arthur-debert/btrfs-snapraid/pkg/snapraid"
)

// SnapshotManager refreshes and saves the per-drive snapshots.
// Satisfied by *subvol.Manager.
type SnapshotManager interface {
	RefreshAll() error
	SaveAll() error
}

// Tool invokes SnapRAID actions. Satisfied by *snapraid.Tool.
type Tool interface {
	Invoke(inv snapraid.Invocation) (string, error)
	Scrub(plan string, age int) error
}

// Options contains configuration for the orchestrator
type Options struct {
	Config     *config.Config
	Subvolumes SnapshotManager
	Tool       Tool
	DryRun     bool

	// Logger overrides the default component logger, mainly for tests
	Logger *zerolog.Logger

	// WriteLiveConfig and RemoveLiveConfig override the live-config
	// functions, mainly for tests
	WriteLiveConfig  func(*config.Config) (string, error)
	RemoveLiveConfig func(string)
}

// Orchestrator runs the maintenance sequences. All operations are fully
// sequential; every step blocks until the previous one has finished.
type Orchestrator struct {
	cfg        *config.Config
	subvols    SnapshotManager
	tool       Tool
	dryRun     bool
	logger     zerolog.Logger
	writeLive  func(*config.Config) (string, error)
	removeLive func(string)
}

// New creates a new orchestrator instance
func New(opts Options) *Orchestrator {
	logger := logging.GetLogger("maintenance")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	writeLive := opts.WriteLiveConfig
	if writeLive == nil {
		writeLive = snapraid.WriteLiveConfig
	}
	removeLive := opts.RemoveLiveConfig
	if removeLive == nil {
		removeLive = snapraid.RemoveLiveConfig
	}

	return &Orchestrator{
		cfg:        opts.Config,
		subvols:    opts.Subvolumes,
		tool:       opts.Tool,
		dryRun:     opts.DryRun,
		logger:     logger,
		writeLive:  writeLive,
		removeLive: removeLive,
	}
}

// Touch runs the touch action against a temporary live-data config, since
// touching the snapshots would be pointless
func (o *Orchestrator) Touch() error {
	tmp, err := o.writeLive(o.cfg)
	if err != nil {
		return err
	}
	defer o.removeLive(tmp)

	o.logger.Info().Msg("Starting snapraid touch on the live data")
	_, err = o.tool.Invoke(snapraid.Invocation{Action: "touch", ConfigOverride: tmp})
	return err
}

// Sync refreshes every drive's snapshot, syncs the array, and saves the
// snapshots. Save runs only after a successful sync.
func (o *Orchestrator) Sync() error {
	if err := o.subvols.RefreshAll(); err != nil {
		return err
	}

	o.logger.Info().Msg("Starting snapraid sync")
	if _, err := o.tool.Invoke(snapraid.Invocation{Action: "sync"}); err != nil {
		return err
	}

	return o.subvols.SaveAll()
}

// Diff reports the removed and updated file counts. With useLive a
// temporary live-data config is used, which shows current numbers without
// touching the snapraid subvolumes; within the maintenance sequence the
// snapshots themselves have just been refreshed, so the regular config is
// used instead.
func (o *Orchestrator) Diff(useLive bool) (snapraid.DiffResult, error) {
	var tmp string
	if useLive {
		var err error
		if tmp, err = o.writeLive(o.cfg); err != nil {
			return snapraid.DiffResult{}, err
		}
		defer o.removeLive(tmp)
	}

	o.logger.Info().Msg("Starting snapraid diff")

	// Exit code 2 just means diff found changes
	out, err := o.tool.Invoke(snapraid.Invocation{
		Action:         "diff",
		ConfigOverride: tmp,
		Capture:        true,
		OKCodes:        []int{2},
	})
	if err != nil {
		return snapraid.DiffResult{}, err
	}

	return snapraid.ParseDiff(out, o.dryRun), nil
}

// Maintenance runs the full sequence: touch (when enabled), refresh,
// diff, threshold gate, sync, save, and scrub (when configured)
func (o *Orchestrator) Maintenance() error {
	o.logger.Info().Msg("btrfs-snapraid maintenance")
	o.logger.Info().Msg(banner)

	if o.cfg.Maintenance.Touch {
		if err := o.Touch(); err != nil {
			return err
		}
	}

	if err := o.subvols.RefreshAll(); err != nil {
		return err
	}

	diff, err := o.Diff(false)
	if err != nil {
		return err
	}

	// The gate sits immediately before sync: past this point the parity
	// update is irreversible
	if err := o.checkThresholds(diff); err != nil {
		return err
	}

	o.logger.Info().Msg("Starting snapraid sync")
	if _, err := o.tool.Invoke(snapraid.Invocation{Action: "sync"}); err != nil {
		return err
	}

	if err := o.subvols.SaveAll(); err != nil {
		return err
	}

	if o.cfg.Maintenance.ScrubPlan != "" {
		o.logger.Info().Msg("Starting snapraid scrub")
		if err := o.tool.Scrub(o.cfg.Maintenance.ScrubPlan, o.cfg.Maintenance.ScrubAge); err != nil {
			return err
		}
	}

	o.logger.Info().Msg(banner)
	return nil
}

// checkThresholds aborts the sequence when the diff counts exceed a
// configured threshold. This is a safety valve against mass deletion or
// corruption propagating into parity, so the comparison is strict and an
// unset threshold skips the check entirely.
func (o *Orchestrator) checkThresholds(diff snapraid.DiffResult) error {
	const text = "the number of %s files (%d) exceeds the configured threshold of %d;" +
		" aborting sync and scrub. Once you confirm that all of the changes are" +
		" desired, you will need to run a manual `snapraid sync` on the array." +
		" WARNING: the snapraid array is NOT SYNCED"

	if t := o.cfg.Maintenance.DeleteThreshold; t != nil && diff.Removed > *t {
		return errors.Newf(errors.ErrThresholdExceeded, text, "deleted", diff.Removed, *t)
	}
	if t := o.cfg.Maintenance.UpdateThreshold; t != nil && diff.Updated > *t {
		return errors.Newf(errors.ErrThresholdExceeded, text, "updated", diff.Updated, *t)
	}

	return nil
}

var banner = "= = = = = = = = = = = = = = = = = = = = = = = = = = = = = ="
